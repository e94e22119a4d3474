package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/repository"
)

// matchAttempts 匹配到的订单被并发关闭时的重试次数
const matchAttempts = 2

// PushInput 监控端收款推送输入，字段保留原始字符串用于验签
type PushInput struct {
	T      string
	Type   string
	Price  string
	Sign   string
	Legacy bool
}

// PushResult 收款推送处理结果
type PushResult struct {
	Order   *models.Order
	Matched bool
}

// PaymentPushService 监控端收款推送服务
type PaymentPushService struct {
	orderRepo      repository.OrderRepository
	allocator      *PriceAllocator
	settingService *SettingService
	events         *OrderEventBus
	now            func() time.Time
}

// NewPaymentPushService 创建收款推送服务
func NewPaymentPushService(orderRepo repository.OrderRepository, allocator *PriceAllocator, settingService *SettingService, events *OrderEventBus) *PaymentPushService {
	return &PaymentPushService{
		orderRepo:      orderRepo,
		allocator:      allocator,
		settingService: settingService,
		events:         events,
		now:            time.Now,
	}
}

// Push 校验签名并完成订单匹配与入账，不发送商户通知
func (s *PaymentPushService) Push(input PushInput) (*PushResult, error) {
	if strings.TrimSpace(input.T) == "" || strings.TrimSpace(input.Type) == "" ||
		strings.TrimSpace(input.Price) == "" || strings.TrimSpace(input.Sign) == "" {
		return nil, ErrMonitorParamsMissing
	}
	key, err := s.settingService.SigningKey()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrSigningKeyMissing
	}
	candidates := []string{PushSign(input.Type, input.Price, input.T, key)}
	if input.Legacy {
		candidates = LegacyPushSigns(input.Type, input.Price, input.T, key)
	}
	if !MatchAnySign(input.Sign, candidates...) {
		return nil, ErrSignatureInvalid
	}

	payType, err := parsePayType(input.Type)
	if err != nil {
		return nil, err
	}
	amount, err := models.ParseMoney(input.Price)
	if err != nil || !amount.IsPositive() {
		return nil, ErrPriceInvalid
	}

	now := s.now()
	if err := s.settingService.RecordLastPay(now); err != nil {
		logger.Warnw("push_record_last_pay_failed", "error", err)
	}
	return s.match(payType, amount, now)
}

// match 按实付金额与支付方式匹配唯一的待支付订单，未匹配时记录为无订单转账
func (s *PaymentPushService) match(payType int, amount models.Money, now time.Time) (*PushResult, error) {
	for attempt := 0; attempt < matchAttempts; attempt++ {
		order, err := s.orderRepo.FindPendingByAmount(payType, amount)
		if err != nil {
			return nil, err
		}
		if order == nil {
			break
		}
		paid, err := s.orderRepo.MarkPaid(order.OrderID, now)
		if err != nil {
			return nil, err
		}
		if !paid {
			continue
		}
		if err := s.allocator.Release(order.OrderID); err != nil {
			logger.Warnw("push_release_reservation_failed", "order_id", order.OrderID, "error", err)
		}
		order.State = constants.OrderStatePaid
		order.PaidAt = &now
		order.ClosedAt = &now
		publishOrderEvent(s.events, order.OrderID, constants.OrderStatePaid)
		logger.Infow("push_matched",
			"order_id", order.OrderID,
			"pay_id", order.PayID,
			"type", payType,
			"really_price", amount.String(),
		)
		return &PushResult{Order: order, Matched: true}, nil
	}

	credit, err := s.recordUnmatchedCredit(payType, amount, now)
	if err != nil {
		return nil, err
	}
	return &PushResult{Order: credit, Matched: false}, nil
}

func (s *PaymentPushService) recordUnmatchedCredit(payType int, amount models.Money, now time.Time) (*models.Order, error) {
	placeholder := constants.UnmatchedCreditPrefix + strconv.FormatInt(now.UnixNano(), 10) + randNumeric(4)
	credit := &models.Order{
		OrderID:     placeholder,
		PayID:       placeholder,
		Type:        payType,
		Price:       amount,
		ReallyPrice: amount,
		State:       constants.OrderStatePaid,
		Param:       constants.UnmatchedCreditParam,
		CreatedAt:   now,
		PaidAt:      &now,
	}
	if err := s.orderRepo.Create(credit); err != nil {
		return nil, err
	}
	logger.Warnw("push_unmatched_credit",
		"order_id", credit.OrderID,
		"type", payType,
		"amount", amount.String(),
	)
	return credit, nil
}
