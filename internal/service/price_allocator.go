package service

import (
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/repository"
)

const (
	defaultPriceRetryBudget = 10
	defaultPriceStepCents   = 1
)

// PriceAllocator 金额分配器
// 同一支付方式下，待支付订单的实付金额互不相同；唯一性只依赖占用表的插入冲突。
type PriceAllocator struct {
	reservationRepo repository.ReservationRepository
	budget          int
	stepCents       int64
}

// NewPriceAllocator 创建金额分配器
func NewPriceAllocator(reservationRepo repository.ReservationRepository, budget, stepCents int) *PriceAllocator {
	if budget <= 0 {
		budget = defaultPriceRetryBudget
	}
	if stepCents <= 0 {
		stepCents = defaultPriceStepCents
	}
	return &PriceAllocator{
		reservationRepo: reservationRepo,
		budget:          budget,
		stepCents:       int64(stepCents),
	}
}

// Allocate 为订单占用一个实付金额（分），mode 为 payQf 设置值
func (a *PriceAllocator) Allocate(cents int64, payType int, orderID, mode string) (int64, error) {
	current := cents
search:
	for attempt := 0; attempt < a.budget; attempt++ {
		if current <= 0 {
			break search
		}
		ok, err := a.reservationRepo.TryReserve(&models.AmountReservation{
			Cents:     current,
			Type:      payType,
			OrderID:   orderID,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return 0, err
		}
		if ok {
			if current != cents {
				logger.Debugw("price_allocator_adjusted",
					"order_id", orderID,
					"type", payType,
					"requested_cents", cents,
					"really_cents", current,
					"attempts", attempt+1,
				)
			}
			return current, nil
		}
		switch mode {
		case constants.PriceAdjustIncrement:
			current += a.stepCents
		case constants.PriceAdjustDecrement:
			current -= a.stepCents
		default:
			// 不浮动时同一金额无需重试
			break search
		}
	}
	logger.Warnw("price_allocator_exhausted",
		"order_id", orderID,
		"type", payType,
		"requested_cents", cents,
		"mode", mode,
		"budget", a.budget,
	)
	return 0, ErrOrderCapacityExhausted
}

// Release 释放订单持有的金额占用
func (a *PriceAllocator) Release(orderID string) error {
	_, err := a.reservationRepo.ReleaseByOrderID(orderID)
	return err
}
