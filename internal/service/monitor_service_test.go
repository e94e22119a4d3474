package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/vmq-next/internal/constants"
)

func TestMonitorHeartbeatAndRefresh(t *testing.T) {
	ts := newTestServices(t, "monitor_refresh")
	ts.setSetting(t, constants.SettingKeyMonitor, constants.MonitorStateUnbound)

	status, err := ts.monitor.RefreshState()
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if status != constants.MonitorStatusUnknown {
		t.Fatalf("expected unknown status without heartbeat, got %d", status)
	}

	now := time.Now()
	ts.monitor.now = func() time.Time { return now }
	stamp := strconv.FormatInt(now.Unix(), 10)
	if err := ts.monitor.Heartbeat(stamp, HeartbeatSign(stamp, testSigningKey), false); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	online, err := ts.settings.MonitorOnline()
	if err != nil || !online {
		t.Fatalf("expected monitor online after heartbeat, err=%v", err)
	}
	if status, _ = ts.monitor.RefreshState(); status != constants.MonitorStatusNormal {
		t.Fatalf("expected normal status, got %d", status)
	}

	ts.monitor.now = func() time.Time { return now.Add(200 * time.Second) }
	if status, _ = ts.monitor.RefreshState(); status != constants.MonitorStatusAbnormal {
		t.Fatalf("expected abnormal status, got %d", status)
	}
	if online, _ = ts.settings.MonitorOnline(); online {
		t.Fatalf("expected monitor offline after timeout")
	}
	// 离线后拒绝创建订单
	if _, err := ts.orders.CreateOrder(signedCreateInput("p1", "1", "1.00")); !errors.Is(err, ErrMonitorOffline) {
		t.Fatalf("expected monitor offline, got %v", err)
	}
}

func TestMonitorHeartbeatRejectsBadSign(t *testing.T) {
	ts := newTestServices(t, "monitor_bad_sign")
	if err := ts.monitor.Heartbeat("1700000000", "bad", false); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}
	if err := ts.monitor.Heartbeat("", "", false); !errors.Is(err, ErrMonitorParamsMissing) {
		t.Fatalf("expected params missing, got %v", err)
	}
	if err := ts.monitor.Heartbeat("1700000000 ", HeartbeatSign("1700000000", testSigningKey), true); err != nil {
		t.Fatalf("legacy heartbeat should accept trimmed timestamp, got %v", err)
	}
}

func TestMonitorStatusCountsOrders(t *testing.T) {
	ts := newTestServices(t, "monitor_status")
	paid, err := ts.orders.CreateOrder(signedCreateInput("p1", "1", "10.00"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := ts.push.Push(pushInput("1", paid.ReallyPrice.String())); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	closed, err := ts.orders.CreateOrder(signedCreateInput("p2", "2", "3.00"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := ts.orders.CloseOrder(closed.OrderID); err != nil {
		t.Fatalf("close order failed: %v", err)
	}
	if _, err := ts.orders.CreateOrder(signedCreateInput("p3", "1", "1.00")); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	view, err := ts.monitor.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if view.TodayOrder != 3 || view.TodaySuccessOrder != 1 || view.TodayCloseOrder != 1 {
		t.Fatalf("unexpected today counters: %+v", view)
	}
	if view.TodayMoney != "10.00" || view.CountMoney != "10.00" || view.CountOrder != 3 {
		t.Fatalf("unexpected money counters: %+v", view)
	}
	if view.LastPayTime == "" {
		t.Fatalf("expected last pay time")
	}
	if view.LastHeartTime != "" || view.MonitorStatus != constants.MonitorStatusUnknown {
		t.Fatalf("expected no heartbeat yet, got %+v", view)
	}
}
