package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"
)

type fakeDoer struct {
	mu       sync.Mutex
	body     string
	err      error
	requests []*http.Request
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     make(http.Header),
	}, nil
}

func createPaidOrder(t *testing.T, ts *testServices, payID, notifyURL string) *models.Order {
	t.Helper()
	input := signedCreateInput(payID, "1", "10.00")
	input.NotifyURL = notifyURL
	created, err := ts.orders.CreateOrder(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := ts.orderRepo.MarkPaid(created.OrderID, time.Now()); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	order, err := ts.orderRepo.GetByOrderID(created.OrderID)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return order
}

func TestNotifyDeliverSuccess(t *testing.T) {
	ts := newTestServices(t, "notify_success")
	order := createPaidOrder(t, ts, "p1", "https://shop.example.com/notify?from=vmq")
	doer := &fakeDoer{body: "success"}
	notifier := NewNotifyService(ts.orderRepo, ts.settings, doer, time.Second, ts.events)

	if ok := notifier.Deliver(context.Background(), order, constants.NotifyMethodGet); !ok {
		t.Fatalf("expected delivery success")
	}
	if len(doer.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(doer.requests))
	}
	req := doer.requests[0]
	if req.Method != http.MethodGet {
		t.Fatalf("unexpected method: %s", req.Method)
	}
	wantSign := NotifySign("p1", "", "1", "10.00", "10.00", testSigningKey)
	wantURL := "https://shop.example.com/notify?from=vmq&payId=p1&param=&type=1&price=10.00&reallyPrice=10.00&sign=" + wantSign
	if req.URL.String() != wantURL {
		t.Fatalf("unexpected notify url:\n got %s\nwant %s", req.URL.String(), wantURL)
	}
	reloaded, _ := ts.orderRepo.GetByOrderID(order.OrderID)
	if reloaded == nil || reloaded.State != constants.OrderStatePaid {
		t.Fatalf("expected order to stay paid")
	}
}

func TestNotifyDeliverFailureMarksOrder(t *testing.T) {
	cases := []struct {
		name string
		doer *fakeDoer
	}{
		{name: "unexpected body", doer: &fakeDoer{body: "fail"}},
		{name: "trailing newline", doer: &fakeDoer{body: "success\n"}},
		{name: "padded body", doer: &fakeDoer{body: " success "}},
		{name: "transport error", doer: &fakeDoer{err: errors.New("connection refused")}},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServices(t, "notify_failure")
			order := createPaidOrder(t, ts, "p"+string(rune('a'+i)), "https://shop.example.com/notify")
			notifier := NewNotifyService(ts.orderRepo, ts.settings, tc.doer, time.Second, ts.events)

			if ok := notifier.Deliver(context.Background(), order, constants.NotifyMethodPost); ok {
				t.Fatalf("expected delivery failure")
			}
			if tc.doer.requests[0].Method != http.MethodPost {
				t.Fatalf("expected POST, got %s", tc.doer.requests[0].Method)
			}
			reloaded, _ := ts.orderRepo.GetByOrderID(order.OrderID)
			if reloaded == nil || reloaded.State != constants.OrderStateNotifyFailed {
				t.Fatalf("expected notify failed state")
			}
			// 通知失败仍视为已支付
			result, err := ts.orders.CheckOrder(order.OrderID)
			if err != nil {
				t.Fatalf("check order failed: %v", err)
			}
			if result.Message != "支付成功" {
				t.Fatalf("expected paid message, got %s", result.Message)
			}
		})
	}
}

func TestNotifySkipsEmptyURL(t *testing.T) {
	ts := newTestServices(t, "notify_empty")
	order := createPaidOrder(t, ts, "p1", "")
	doer := &fakeDoer{body: "success"}
	notifier := NewNotifyService(ts.orderRepo, ts.settings, doer, time.Second, ts.events)

	if ok := notifier.Deliver(context.Background(), order, constants.NotifyMethodGet); !ok {
		t.Fatalf("expected empty url to count as delivered")
	}
	if len(doer.requests) != 0 {
		t.Fatalf("expected no request, got %d", len(doer.requests))
	}
}
