package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/queue"
	"github.com/vmq-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orphanReservationGrace 孤立占用的清理宽限期，避免误删正在创建中的订单占用
const orphanReservationGrace = time.Minute

// OrderService 订单生命周期服务
type OrderService struct {
	orderRepo       repository.OrderRepository
	reservationRepo repository.ReservationRepository
	qrcodeRepo      repository.QrCodeRepository
	settingService  *SettingService
	allocator       *PriceAllocator
	queueClient     *queue.Client
	events          *OrderEventBus
	frontendURL     string
	now             func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, reservationRepo repository.ReservationRepository, qrcodeRepo repository.QrCodeRepository, settingService *SettingService, allocator *PriceAllocator, queueClient *queue.Client, events *OrderEventBus, frontendURL string) *OrderService {
	return &OrderService{
		orderRepo:       orderRepo,
		reservationRepo: reservationRepo,
		qrcodeRepo:      qrcodeRepo,
		settingService:  settingService,
		allocator:       allocator,
		queueClient:     queueClient,
		events:          events,
		frontendURL:     strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
		now:             time.Now,
	}
}

// CreateOrderInput 商户创建订单输入，金额与类型保留原始字符串用于验签
type CreateOrderInput struct {
	PayID     string
	Param     string
	Type      string
	Price     string
	Sign      string
	NotifyURL string
	ReturnURL string
}

// CreateOrderResult 创建订单结果
type CreateOrderResult struct {
	PayID       string       `json:"payId"`
	OrderID     string       `json:"orderId"`
	PayType     int          `json:"payType"`
	Price       models.Money `json:"price"`
	ReallyPrice models.Money `json:"reallyPrice"`
	PayURL      string       `json:"payUrl"`
	IsAuto      int          `json:"isAuto"`
	RedirectURL string       `json:"redirectUrl"`
}

// OrderView 支付页订单详情
type OrderView struct {
	PayID            string       `json:"payId"`
	OrderID          string       `json:"orderId"`
	PayType          int          `json:"payType"`
	Price            models.Money `json:"price"`
	ReallyPrice      models.Money `json:"reallyPrice"`
	PayURL           string       `json:"payUrl"`
	IsAuto           int          `json:"isAuto"`
	State            int          `json:"state"`
	StateText        string       `json:"stateText"`
	TimeOut          int          `json:"timeOut"`
	Date             int64        `json:"date"`
	RemainingSeconds int64        `json:"remainingSeconds"`
	ReturnURL        string       `json:"return_url"`
	Param            string       `json:"param"`
}

// CheckResult 订单轮询结果
type CheckResult struct {
	State            int    `json:"state"`
	RedirectURL      string `json:"redirectUrl,omitempty"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	ReturnURL        string `json:"return_url"`
	Param            string `json:"param"`
	Message          string `json:"-"`
}

// SweepResult 过期扫描结果
type SweepResult struct {
	Closed   int64 `json:"closed"`
	Released int64 `json:"released"`
	Orphans  int64 `json:"orphans"`
}

// CreateOrder 创建订单
func (s *OrderService) CreateOrder(input CreateOrderInput) (*CreateOrderResult, error) {
	if strings.TrimSpace(input.PayID) == "" || strings.TrimSpace(input.Type) == "" ||
		strings.TrimSpace(input.Price) == "" || strings.TrimSpace(input.Sign) == "" {
		return nil, ErrOrderParamsInvalid
	}
	payType, err := parsePayType(input.Type)
	if err != nil {
		return nil, err
	}
	price, cents, err := parseOrderPrice(input.Price)
	if err != nil {
		return nil, err
	}

	key, err := s.settingService.SigningKey()
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrSigningKeyMissing
	}
	if !MatchAnySign(input.Sign, CreateOrderSign(input.PayID, input.Param, input.Type, input.Price, key)) {
		return nil, ErrSignatureInvalid
	}

	online, err := s.settingService.MonitorOnline()
	if err != nil {
		return nil, err
	}
	if !online {
		return nil, ErrMonitorOffline
	}

	existing, err := s.orderRepo.GetByPayID(input.PayID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateOrder
	}

	now := s.now()
	orderID, err := s.generateOrderID(now)
	if err != nil {
		return nil, err
	}
	mode, err := s.settingService.PriceAdjustMode()
	if err != nil {
		return nil, err
	}
	reallyCents, err := s.allocator.Allocate(cents, payType, orderID, mode)
	if err != nil {
		return nil, err
	}
	reallyPrice := models.NewMoneyFromCents(reallyCents)

	order, err := s.buildPendingOrder(input, orderID, payType, price, reallyPrice, now)
	if err != nil {
		s.releaseAfterFailedCreate(orderID)
		return nil, err
	}
	if err := s.orderRepo.Create(order); err != nil {
		s.releaseAfterFailedCreate(orderID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateOrder
		}
		return nil, err
	}

	s.enqueueExpire(order)
	logger.Infow("order_created",
		"order_id", order.OrderID,
		"pay_id", order.PayID,
		"type", order.Type,
		"price", order.Price.String(),
		"really_price", order.ReallyPrice.String(),
		"is_auto", order.IsAuto,
	)

	return &CreateOrderResult{
		PayID:       order.PayID,
		OrderID:     order.OrderID,
		PayType:     order.Type,
		Price:       order.Price,
		ReallyPrice: order.ReallyPrice,
		PayURL:      order.PayURL,
		IsAuto:      boolToInt(order.IsAuto),
		RedirectURL: s.PaymentPageURL(order.OrderID),
	}, nil
}

func (s *OrderService) buildPendingOrder(input CreateOrderInput, orderID string, payType int, price, reallyPrice models.Money, now time.Time) (*models.Order, error) {
	payURL, isAuto, err := s.resolvePaymentTarget(payType, reallyPrice)
	if err != nil {
		return nil, err
	}
	notifyURL := strings.TrimSpace(input.NotifyURL)
	if notifyURL == "" {
		if notifyURL, err = s.settingService.DefaultNotifyURL(); err != nil {
			return nil, err
		}
	}
	returnURL := strings.TrimSpace(input.ReturnURL)
	if returnURL == "" {
		if returnURL, err = s.settingService.DefaultReturnURL(); err != nil {
			return nil, err
		}
	}
	return &models.Order{
		OrderID:     orderID,
		PayID:       input.PayID,
		Type:        payType,
		Price:       price,
		ReallyPrice: reallyPrice,
		State:       constants.OrderStatePending,
		IsAuto:      isAuto,
		PayURL:      payURL,
		NotifyURL:   notifyURL,
		ReturnURL:   returnURL,
		Param:       input.Param,
		CreatedAt:   now,
	}, nil
}

// resolvePaymentTarget 优先使用金额完全匹配的固定收款码，否则回退到通用收款码
func (s *OrderService) resolvePaymentTarget(payType int, reallyPrice models.Money) (string, bool, error) {
	code, err := s.qrcodeRepo.FindEnabledByAmount(payType, reallyPrice)
	if err != nil {
		return "", false, err
	}
	if code != nil && strings.TrimSpace(code.PayURL) != "" {
		return code.PayURL, false, nil
	}
	payURL, err := s.settingService.CatchAllPayURL(payType)
	if err != nil {
		return "", false, err
	}
	if payURL == "" {
		return "", false, fmt.Errorf("%w，请在后台配置%s收款码", ErrNoPaymentTarget, models.PayTypeText(payType))
	}
	return payURL, true, nil
}

func (s *OrderService) releaseAfterFailedCreate(orderID string) {
	if err := s.allocator.Release(orderID); err != nil {
		logger.Errorw("order_create_release_reservation_failed", "order_id", orderID, "error", err)
	}
}

func (s *OrderService) enqueueExpire(order *models.Order) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	minutes, err := s.settingService.CloseTimeoutMinutes()
	if err != nil {
		logger.Warnw("order_enqueue_expire_setting_failed", "order_id", order.OrderID, "error", err)
	}
	delay := time.Duration(minutes)*time.Minute + time.Second
	if err := s.queueClient.EnqueueOrderExpire(queue.OrderExpirePayload{OrderID: order.OrderID}, delay); err != nil {
		logger.Warnw("order_enqueue_expire_failed",
			"order_id", order.OrderID,
			"delay_seconds", int64(delay/time.Second),
			"error", err,
		)
	}
}

// PaymentPageURL 支付页地址
func (s *OrderService) PaymentPageURL(orderID string) string {
	return s.frontendURL + "/#/payment/" + orderID
}

// GetOrder 支付页订单详情
func (s *OrderService) GetOrder(orderID string) (*OrderView, error) {
	order, err := s.mustGetOrder(orderID)
	if err != nil {
		return nil, err
	}
	minutes, err := s.settingService.CloseTimeoutMinutes()
	if err != nil {
		return nil, err
	}
	view := &OrderView{
		PayID:       order.PayID,
		OrderID:     order.OrderID,
		PayType:     order.Type,
		Price:       order.Price,
		ReallyPrice: order.ReallyPrice,
		PayURL:      order.PayURL,
		IsAuto:      boolToInt(order.IsAuto),
		State:       order.State,
		StateText:   models.OrderStateText(order.State),
		TimeOut:     minutes,
		Date:        order.CreatedAt.Unix(),
		ReturnURL:   order.ReturnURL,
		Param:       order.Param,
	}
	if order.IsPending() {
		view.RemainingSeconds = order.RemainingSeconds(s.now(), minutes)
	}
	return view, nil
}

// CheckOrder 轮询订单状态；待支付订单已过截止时间时就地关闭
func (s *OrderService) CheckOrder(orderID string) (*CheckResult, error) {
	order, err := s.mustGetOrder(orderID)
	if err != nil {
		return nil, err
	}
	minutes, err := s.settingService.CloseTimeoutMinutes()
	if err != nil {
		return nil, err
	}

	if order.IsPending() {
		now := s.now()
		if now.Before(order.Deadline(minutes)) {
			return &CheckResult{
				State:            constants.OrderStatePending,
				RemainingSeconds: order.RemainingSeconds(now, minutes),
				ReturnURL:        order.ReturnURL,
				Param:            order.Param,
				Message:          "订单未支付",
			}, nil
		}
		closed, err := s.closePending(order.OrderID, now, "inline_check")
		if err != nil {
			return nil, err
		}
		if !closed {
			// 关闭失败说明状态已被并发修改，重新读取
			if order, err = s.mustGetOrder(orderID); err != nil {
				return nil, err
			}
		} else {
			order.State = constants.OrderStateClosed
		}
	}

	if order.IsSettled() {
		return &CheckResult{
			State:       order.State,
			RedirectURL: order.ReturnURL,
			ReturnURL:   order.ReturnURL,
			Param:       order.Param,
			Message:     "支付成功",
		}, nil
	}
	return &CheckResult{
		State:     constants.OrderStateClosed,
		ReturnURL: order.ReturnURL,
		Param:     order.Param,
		Message:   "订单已过期",
	}, nil
}

// CloseOrder 手动关闭订单，仅允许待支付状态
func (s *OrderService) CloseOrder(orderID string) error {
	order, err := s.mustGetOrder(orderID)
	if err != nil {
		return err
	}
	if !order.IsPending() {
		return ErrOrderStateInvalid
	}
	closed, err := s.closePending(order.OrderID, s.now(), "manual")
	if err != nil {
		return err
	}
	if !closed {
		return ErrOrderStateInvalid
	}
	return nil
}

// closePending 条件关闭单个订单并释放占用，返回是否由本次调用关闭
func (s *OrderService) closePending(orderID string, now time.Time, reason string) (bool, error) {
	closed, err := s.orderRepo.ClosePending(orderID, now)
	if err != nil {
		return false, err
	}
	if !closed {
		return false, nil
	}
	if err := s.allocator.Release(orderID); err != nil {
		logger.Warnw("order_close_release_reservation_failed", "order_id", orderID, "error", err)
	}
	publishOrderEvent(s.events, orderID, constants.OrderStateClosed)
	logger.Infow("order_closed", "order_id", orderID, "reason", reason)
	return true, nil
}

// DeleteOrder 删除订单，订单不存在视为成功
func (s *OrderService) DeleteOrder(orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ErrOrderParamsInvalid
	}
	deleted, err := s.orderRepo.DeleteByOrderID(orderID)
	if err != nil {
		return err
	}
	released, err := s.reservationRepo.ReleaseByOrderID(orderID)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Infow("order_deleted", "order_id", orderID, "released", released)
	}
	return nil
}

// SweepExpired 批量关闭超时订单，并清理孤立的金额占用
func (s *OrderService) SweepExpired() (*SweepResult, error) {
	minutes, err := s.settingService.CloseTimeoutMinutes()
	if err != nil {
		return nil, err
	}
	now := s.now()
	cutoff := now.Add(-time.Duration(minutes) * time.Minute)

	expired, err := s.orderRepo.ListPendingCreatedBefore(cutoff)
	if err != nil {
		return nil, err
	}
	result := &SweepResult{}
	if len(expired) > 0 {
		orderIDs := make([]string, 0, len(expired))
		for _, order := range expired {
			orderIDs = append(orderIDs, order.OrderID)
		}
		if result.Closed, err = s.orderRepo.ClosePendingBatch(orderIDs, now); err != nil {
			return nil, err
		}
		if result.Released, err = s.reservationRepo.ReleaseByOrderIDs(orderIDs); err != nil {
			return nil, err
		}
		for _, orderID := range orderIDs {
			publishOrderEvent(s.events, orderID, constants.OrderStateClosed)
		}
	}

	if result.Orphans, err = s.reservationRepo.DeleteOrphansBefore(now.Add(-orphanReservationGrace)); err != nil {
		return nil, err
	}
	if result.Closed > 0 || result.Orphans > 0 {
		logger.Infow("sweep_expired_closed",
			"closed", result.Closed,
			"released", result.Released,
			"orphans", result.Orphans,
			"timeout_minutes", minutes,
		)
	}
	return result, nil
}

// ExpireOrder 到期关闭单个订单，供延迟任务调用
func (s *OrderService) ExpireOrder(orderID string) error {
	order, err := s.orderRepo.GetByOrderID(orderID)
	if err != nil {
		return err
	}
	if order == nil || !order.IsPending() {
		return nil
	}
	minutes, err := s.settingService.CloseTimeoutMinutes()
	if err != nil {
		return err
	}
	now := s.now()
	if now.Before(order.Deadline(minutes)) {
		// 超时时间被调大，交给周期扫描处理
		return nil
	}
	_, err = s.closePending(order.OrderID, now, "expire_task")
	return err
}

// DeleteHistory 删除早于 olderThan 的非待支付订单
func (s *OrderService) DeleteHistory(olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = 24 * time.Hour
	}
	deleted, err := s.orderRepo.DeleteSettledBefore(s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Infow("order_history_deleted", "deleted", deleted, "older_than_hours", olderThan.Hours())
	}
	return deleted, nil
}

// ListOrders 后台订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// BuildReturnURL 生成带签名的同步跳转地址，未配置跳转地址时返回空串
func (s *OrderService) BuildReturnURL(orderID string) (string, error) {
	order, err := s.mustGetOrder(orderID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(order.ReturnURL) == "" {
		return "", nil
	}
	key, err := s.settingService.SigningKey()
	if err != nil {
		return "", err
	}
	return appendQuery(order.ReturnURL, buildSignedQuery(order, key, ReturnSign)), nil
}

func (s *OrderService) mustGetOrder(orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrOrderParamsInvalid
	}
	order, err := s.orderRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// generateOrderID 生成 YYYYMMDDhhmmss + 5 位随机数的订单号
func (s *OrderService) generateOrderID(now time.Time) (string, error) {
	for i := 0; i < 3; i++ {
		orderID := now.Format("20060102150405") + randRange(10000, 99999)
		existing, err := s.orderRepo.GetByOrderID(orderID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return orderID, nil
		}
	}
	return "", ErrOrderCapacityExhausted
}

// buildSignedQuery 按固定顺序拼接 payId/param/type/price/reallyPrice/sign
func buildSignedQuery(order *models.Order, key string, signer func(payID, param, payType, price, reallyPrice, key string) string) string {
	payType := strconv.Itoa(order.Type)
	price := order.Price.String()
	reallyPrice := order.ReallyPrice.String()
	sign := signer(order.PayID, order.Param, payType, price, reallyPrice, key)

	var b strings.Builder
	b.WriteString("payId=")
	b.WriteString(url.QueryEscape(order.PayID))
	b.WriteString("&param=")
	b.WriteString(url.QueryEscape(order.Param))
	b.WriteString("&type=")
	b.WriteString(payType)
	b.WriteString("&price=")
	b.WriteString(price)
	b.WriteString("&reallyPrice=")
	b.WriteString(reallyPrice)
	b.WriteString("&sign=")
	b.WriteString(sign)
	return b.String()
}

// appendQuery 追加查询串，保留已有参数
func appendQuery(base, query string) string {
	if strings.Contains(base, "?") {
		return base + "&" + query
	}
	return base + "?" + query
}

func parsePayType(raw string) (int, error) {
	payType, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrPaymentTypeInvalid
	}
	if payType != constants.PayTypeWechat && payType != constants.PayTypeAlipay {
		return 0, ErrPaymentTypeInvalid
	}
	return payType, nil
}

// parseOrderPrice 解析商户金额，按分截断
func parseOrderPrice(raw string) (models.Money, int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return models.Money{}, 0, ErrPriceInvalid
	}
	// 超出两位的小数直接截断，订单金额与实付金额保持同一精度
	amount = amount.Truncate(2)
	cents := amount.Shift(2).IntPart()
	if cents <= 0 {
		return models.Money{}, 0, ErrPriceInvalid
	}
	return models.NewMoneyFromCents(cents), cents, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func randRange(min, max int64) string {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return strconv.FormatInt(min, 10)
	}
	return strconv.FormatInt(n.Int64()+min, 10)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
