package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/vmq-next/internal/queue"

	"github.com/hibiken/asynq"
)

type fakeExpirer struct {
	ids []string
	err error
}

func (f *fakeExpirer) ExpireOrder(orderID string) error {
	f.ids = append(f.ids, orderID)
	return f.err
}

func TestHandleOrderExpire(t *testing.T) {
	expirer := &fakeExpirer{}
	consumer := &Consumer{orders: expirer}

	task, err := queue.NewOrderExpireTask(queue.OrderExpirePayload{OrderID: " 20250101120000123 "})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderExpire(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if len(expirer.ids) != 1 || expirer.ids[0] != "20250101120000123" {
		t.Fatalf("expire calls unexpected: %v", expirer.ids)
	}
}

func TestHandleOrderExpireSkipsEmptyPayload(t *testing.T) {
	expirer := &fakeExpirer{}
	consumer := &Consumer{orders: expirer}

	task := asynq.NewTask(queue.TaskOrderExpire, []byte(`{"order_id":"  "}`))
	if err := consumer.handleOrderExpire(context.Background(), task); err != nil {
		t.Fatalf("empty payload should be skipped, got %v", err)
	}
	if len(expirer.ids) != 0 {
		t.Fatalf("expire should not be called, got %v", expirer.ids)
	}
}

func TestHandleOrderExpireErrors(t *testing.T) {
	bad := asynq.NewTask(queue.TaskOrderExpire, []byte(`not-json`))
	consumer := &Consumer{orders: &fakeExpirer{}}
	if err := consumer.handleOrderExpire(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should return error for retry")
	}

	failing := &Consumer{orders: &fakeExpirer{err: errors.New("db down")}}
	task, _ := queue.NewOrderExpireTask(queue.OrderExpirePayload{OrderID: "o-1"})
	if err := failing.handleOrderExpire(context.Background(), task); err == nil {
		t.Fatalf("store failure should return error for retry")
	}

	var nilConsumer *Consumer
	if err := nilConsumer.handleOrderExpire(context.Background(), task); err != nil {
		t.Fatalf("nil consumer should be no-op, got %v", err)
	}
}
