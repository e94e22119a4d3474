package service

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/repository"
)

const (
	defaultNotifyTimeout = 10 * time.Second
	notifyBodyLimit      = 64 << 10
)

// HTTPDoer 发送 HTTP 请求的最小接口
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotifyService 商户异步通知服务
// 单次请求，不重试；响应体为 success 视为成功，否则订单标记为通知失败。
type NotifyService struct {
	orderRepo      repository.OrderRepository
	settingService *SettingService
	client         HTTPDoer
	timeout        time.Duration
	events         *OrderEventBus
}

// NewNotifyService 创建通知服务，client 为空时使用带超时的默认客户端
func NewNotifyService(orderRepo repository.OrderRepository, settingService *SettingService, client HTTPDoer, timeout time.Duration, events *OrderEventBus) *NotifyService {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &NotifyService{
		orderRepo:      orderRepo,
		settingService: settingService,
		client:         client,
		timeout:        timeout,
		events:         events,
	}
}

// BuildNotifyURL 生成带签名参数的通知地址
func BuildNotifyURL(order *models.Order, key string) string {
	return appendQuery(order.NotifyURL, buildSignedQuery(order, key, NotifySign))
}

// Deliver 投递通知，method 为 GET 或 POST；返回是否投递成功
func (s *NotifyService) Deliver(ctx context.Context, order *models.Order, method string) bool {
	if order == nil {
		return false
	}
	log := logger.SW("order_id", order.OrderID, "pay_id", order.PayID, "method", method)
	if strings.TrimSpace(order.NotifyURL) == "" {
		log.Infow("notify_skipped_empty_url")
		return true
	}

	key, err := s.settingService.SigningKey()
	if err != nil {
		log.Errorw("notify_load_key_failed", "error", err)
		s.markFailed(order)
		return false
	}

	body, err := s.send(ctx, BuildNotifyURL(order, key), method)
	if err != nil {
		log.Warnw("notify_failed", "error", err)
		s.markFailed(order)
		return false
	}
	if body != constants.NotifySuccessBody {
		log.Warnw("notify_failed", "response", truncate(body, 200))
		s.markFailed(order)
		return false
	}
	log.Infow("notify_delivered")
	return true
}

func (s *NotifyService) send(ctx context.Context, target, method string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var req *http.Request
	var err error
	if strings.EqualFold(method, constants.NotifyMethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(""))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, notifyBodyLimit))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *NotifyService) markFailed(order *models.Order) {
	updated, err := s.orderRepo.MarkNotifyFailed(order.OrderID)
	if err != nil {
		logger.Errorw("notify_mark_failed_error", "order_id", order.OrderID, "error", err)
		return
	}
	if updated {
		order.State = constants.OrderStateNotifyFailed
		publishOrderEvent(s.events, order.OrderID, constants.OrderStateNotifyFailed)
	}
}

func truncate(raw string, limit int) string {
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit]
}
