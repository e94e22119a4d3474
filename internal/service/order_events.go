package service

import (
	"context"
	"sync"
	"time"

	"github.com/vmq-next/internal/cache"
)

// OrderEvent 订单状态变更事件
type OrderEvent struct {
	OrderID string    `json:"orderId"`
	State   int       `json:"state"`
	At      time.Time `json:"at"`
}

// OrderEventBus 进程内订单事件分发，用于支付页实时推送
type OrderEventBus struct {
	mu   sync.RWMutex
	subs map[string]map[chan OrderEvent]struct{}
}

// NewOrderEventBus 创建事件总线
func NewOrderEventBus() *OrderEventBus {
	return &OrderEventBus{subs: make(map[string]map[chan OrderEvent]struct{})}
}

// Subscribe 订阅单个订单的事件，返回的函数用于取消订阅
func (b *OrderEventBus) Subscribe(orderID string) (<-chan OrderEvent, func()) {
	ch := make(chan OrderEvent, 4)
	if b == nil {
		close(ch)
		return ch, func() {}
	}
	b.mu.Lock()
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[chan OrderEvent]struct{})
	}
	b.subs[orderID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[orderID], ch)
			if len(b.subs[orderID]) == 0 {
				delete(b.subs, orderID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish 发布事件，订阅方缓冲已满时丢弃
func (b *OrderEventBus) Publish(event OrderEvent) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[event.OrderID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount 当前订阅数量
func (b *OrderEventBus) SubscriberCount(orderID string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[orderID])
}

// publishOrderEvent 发布订单状态变更，并让状态面板缓存失效
func publishOrderEvent(bus *OrderEventBus, orderID string, state int) {
	bus.Publish(OrderEvent{OrderID: orderID, State: state})
	_ = cache.InvalidateStatusSnapshot(context.Background())
}
