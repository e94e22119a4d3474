package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vmq-next/internal/cache"
	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/repository"

	"github.com/shopspring/decimal"
)

const defaultMonitorOfflineAfter = 180 * time.Second

// MonitorService 监控端心跳与状态面板服务
type MonitorService struct {
	settingService *SettingService
	statsRepo      repository.StatsRepository
	offlineAfter   time.Duration
	now            func() time.Time
}

// StatusView 后台状态面板
type StatusView struct {
	MonitorStatus     int    `json:"monitorStatus"`
	LastHeartTime     string `json:"lastHeartTime"`
	LastPayTime       string `json:"lastPayTime"`
	JkState           int    `json:"jkState"`
	TodayOrder        int64  `json:"todayOrder"`
	TodaySuccessOrder int64  `json:"todaySuccessOrder"`
	TodayCloseOrder   int64  `json:"todayCloseOrder"`
	TodayMoney        string `json:"todayMoney"`
	CountOrder        int64  `json:"countOrder"`
	CountMoney        string `json:"countMoney"`
}

// TrendPoint 按天订单趋势
type TrendPoint struct {
	Day         string `json:"day"`
	OrdersTotal int64  `json:"ordersTotal"`
	OrdersPaid  int64  `json:"ordersPaid"`
	PaidMoney   string `json:"paidMoney"`
}

// NewMonitorService 创建监控服务
func NewMonitorService(settingService *SettingService, statsRepo repository.StatsRepository, offlineAfter time.Duration) *MonitorService {
	if offlineAfter <= 0 {
		offlineAfter = defaultMonitorOfflineAfter
	}
	return &MonitorService{
		settingService: settingService,
		statsRepo:      statsRepo,
		offlineAfter:   offlineAfter,
		now:            time.Now,
	}
}

// Heartbeat 校验心跳签名并记录在线状态
func (s *MonitorService) Heartbeat(t, sign string, legacy bool) error {
	if strings.TrimSpace(t) == "" || strings.TrimSpace(sign) == "" {
		return ErrMonitorParamsMissing
	}
	key, err := s.settingService.SigningKey()
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ErrSigningKeyMissing
	}
	candidates := []string{HeartbeatSign(t, key)}
	if legacy {
		candidates = LegacyHeartbeatSigns(t, key)
	}
	if !MatchAnySign(sign, candidates...) {
		return ErrSignatureInvalid
	}
	if err := s.settingService.RecordHeartbeat(s.now()); err != nil {
		return err
	}
	logger.Debugw("monitor_heartbeat", "legacy", legacy)
	return nil
}

// RefreshState 根据最近心跳时间刷新 jkstate，返回面板状态 0 未知 1 正常 2 异常
func (s *MonitorService) RefreshState() (int, error) {
	snapshot, err := s.settingService.MonitorSnapshot()
	if err != nil {
		return constants.MonitorStatusUnknown, err
	}
	status, state := s.evaluate(snapshot.LastHeart)
	if snapshot.State != state {
		if err := s.settingService.SetMonitorState(state); err != nil {
			return status, err
		}
		logger.Infow("monitor_state_changed", "from", snapshot.State, "to", state, "last_heart", snapshot.LastHeart)
	}
	return status, nil
}

func (s *MonitorService) evaluate(lastHeart int64) (int, string) {
	if lastHeart <= 0 {
		return constants.MonitorStatusUnknown, constants.MonitorStateUnbound
	}
	if s.now().Sub(time.Unix(lastHeart, 0)) < s.offlineAfter {
		return constants.MonitorStatusNormal, constants.MonitorStateOnline
	}
	return constants.MonitorStatusAbnormal, constants.MonitorStateOffline
}

// Status 后台状态面板，统计部分短暂缓存
func (s *MonitorService) Status(ctx context.Context) (*StatusView, error) {
	status, err := s.RefreshState()
	if err != nil {
		return nil, err
	}
	snapshot, err := s.settingService.MonitorSnapshot()
	if err != nil {
		return nil, err
	}

	view := &StatusView{}
	hit, err := cache.GetStatusSnapshot(ctx, view)
	if err != nil {
		logger.Warnw("status_cache_read_failed", "error", err)
	}
	if !hit {
		now := s.now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		row, err := s.statsRepo.GetOverview(dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		view.TodayOrder = row.TodayOrders
		view.TodaySuccessOrder = row.TodaySuccessOrders
		view.TodayCloseOrder = row.TodayClosedOrders
		view.TodayMoney = formatAmount(row.TodayMoney)
		view.CountOrder = row.TotalOrders
		view.CountMoney = formatAmount(row.TotalMoney)
		if err := cache.SetStatusSnapshot(ctx, view); err != nil {
			logger.Warnw("status_cache_write_failed", "error", err)
		}
	}

	view.MonitorStatus = status
	view.LastHeartTime = formatUnix(snapshot.LastHeart)
	view.LastPayTime = formatUnix(snapshot.LastPay)
	view.JkState, _ = strconv.Atoi(snapshot.State)
	return view, nil
}

// Trends 最近 days 天的订单趋势
func (s *MonitorService) Trends(days int) ([]TrendPoint, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	now := s.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	rows, err := s.statsRepo.GetOrderTrends(end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, TrendPoint{
			Day:         row.Day,
			OrdersTotal: row.OrdersTotal,
			OrdersPaid:  row.OrdersPaid,
			PaidMoney:   formatAmount(row.PaidMoney),
		})
	}
	return points, nil
}

func formatAmount(value float64) string {
	return decimal.NewFromFloat(value).Round(2).StringFixed(2)
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
}
