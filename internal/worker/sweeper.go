package worker

import (
	"context"
	"time"

	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/provider"
	"github.com/vmq-next/internal/service"
)

const historyCleanupInterval = time.Hour

// OrderSweeper 周期关闭过期订单并清理历史订单
type OrderSweeper interface {
	SweepExpired() (*service.SweepResult, error)
	DeleteHistory(olderThan time.Duration) (int64, error)
}

// MonitorRefresher 根据心跳刷新监控端状态
type MonitorRefresher interface {
	RefreshState() (int, error)
}

// SweeperOptions 周期任务参数
type SweeperOptions struct {
	SweepInterval    time.Duration
	MonitorInterval  time.Duration
	HistoryRetention time.Duration // 0 表示不清理
}

// Sweeper 周期任务服务
type Sweeper struct {
	orders  OrderSweeper
	monitor MonitorRefresher
	opts    SweeperOptions
	done    chan struct{}
}

// NewSweeper 创建周期任务服务
func NewSweeper(orders OrderSweeper, monitor MonitorRefresher, opts SweeperOptions) *Sweeper {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = 30 * time.Second
	}
	return &Sweeper{
		orders:  orders,
		monitor: monitor,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

// NewSweeperFromContainer 使用容器中的服务与配置创建周期任务服务
func NewSweeperFromContainer(c *provider.Container) *Sweeper {
	cfg := c.Config
	return NewSweeper(c.OrderService, c.MonitorService, SweeperOptions{
		SweepInterval:    time.Duration(cfg.Order.SweepIntervalSeconds) * time.Second,
		MonitorInterval:  time.Duration(cfg.Monitor.CheckIntervalSeconds) * time.Second,
		HistoryRetention: time.Duration(cfg.Order.HistoryRetentionHours) * time.Hour,
	})
}

// Name 服务名称
func (s *Sweeper) Name() string {
	return "sweeper"
}

// Start 运行周期任务直到 ctx 取消
func (s *Sweeper) Start(ctx context.Context) error {
	defer close(s.done)

	sweepTicker := time.NewTicker(s.opts.SweepInterval)
	defer sweepTicker.Stop()
	monitorTicker := time.NewTicker(s.opts.MonitorInterval)
	defer monitorTicker.Stop()

	var historyC <-chan time.Time
	if s.opts.HistoryRetention > 0 {
		historyTicker := time.NewTicker(historyCleanupInterval)
		defer historyTicker.Stop()
		historyC = historyTicker.C
	}

	s.sweepOnce()
	s.refreshMonitor()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sweepTicker.C:
			s.sweepOnce()
		case <-monitorTicker.C:
			s.refreshMonitor()
		case <-historyC:
			s.cleanupHistory()
		}
	}
}

// Stop 等待当前轮次结束
func (s *Sweeper) Stop(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweepOnce() {
	if s.orders == nil {
		return
	}
	result, err := s.orders.SweepExpired()
	if err != nil {
		logger.Warnw("sweeper_sweep_failed", "error", err)
		return
	}
	if result != nil && (result.Closed > 0 || result.Released > 0) {
		logger.Debugw("sweeper_sweep_done", "closed", result.Closed, "released", result.Released)
	}
}

func (s *Sweeper) refreshMonitor() {
	if s.monitor == nil {
		return
	}
	if _, err := s.monitor.RefreshState(); err != nil {
		logger.Warnw("sweeper_monitor_refresh_failed", "error", err)
	}
}

func (s *Sweeper) cleanupHistory() {
	if s.orders == nil || s.opts.HistoryRetention <= 0 {
		return
	}
	if _, err := s.orders.DeleteHistory(s.opts.HistoryRetention); err != nil {
		logger.Warnw("sweeper_history_cleanup_failed", "error", err)
	}
}
