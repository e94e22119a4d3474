package worker

import (
	"context"

	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/provider"
	"github.com/vmq-next/internal/queue"

	"github.com/hibiken/asynq"
)

// OrderExpirer 到期关闭单个订单
type OrderExpirer interface {
	ExpireOrder(orderID string) error
}

// Consumer 异步任务消费者
type Consumer struct {
	orders OrderExpirer
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil || c.OrderService == nil {
		return &Consumer{}
	}
	return &Consumer{orders: c.OrderService}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderExpire, c.handleOrderExpire)
}

func (c *Consumer) handleOrderExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderExpirePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_order_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == "" {
		logger.Debugw("worker_order_expire_skip_invalid_payload")
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_expire_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.orders.ExpireOrder(payload.OrderID); err != nil {
		logger.Warnw("worker_order_expire_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}
