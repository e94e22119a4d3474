package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByOrderID(orderID string) (*models.Order, error)
	GetByPayID(payID string) (*models.Order, error)
	FindPendingByAmount(payType int, reallyPrice models.Money) (*models.Order, error)
	MarkPaid(orderID string, paidAt time.Time) (bool, error)
	MarkNotifyFailed(orderID string) (bool, error)
	ClosePending(orderID string, closedAt time.Time) (bool, error)
	ListPendingCreatedBefore(before time.Time) ([]models.Order, error)
	ClosePendingBatch(orderIDs []string, closedAt time.Time) (int64, error)
	DeleteByOrderID(orderID string) (int64, error)
	DeleteSettledBefore(before time.Time) (int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByOrderID 根据系统订单号获取订单
func (r *GormOrderRepository) GetByOrderID(orderID string) (*models.Order, error) {
	return r.first(r.db.Where("order_id = ?", orderID))
}

// GetByPayID 根据商户订单号获取订单
func (r *GormOrderRepository) GetByPayID(payID string) (*models.Order, error) {
	return r.first(r.db.Where("pay_id = ?", payID))
}

// FindPendingByAmount 查找指定支付方式与实付金额的待支付订单
func (r *GormOrderRepository) FindPendingByAmount(payType int, reallyPrice models.Money) (*models.Order, error) {
	query := r.db.Where("really_price = ? AND type = ? AND state = ?", reallyPrice, payType, constants.OrderStatePending).
		Order("id ASC")
	return r.first(query)
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// MarkPaid 仅当订单仍为待支付时标记为已支付，返回是否更新成功
func (r *GormOrderRepository) MarkPaid(orderID string, paidAt time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("order_id = ? AND state = ?", orderID, constants.OrderStatePending).
		Updates(map[string]interface{}{
			"state":      constants.OrderStatePaid,
			"pay_date":   paidAt,
			"close_date": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkNotifyFailed 已支付订单通知失败时降级
func (r *GormOrderRepository) MarkNotifyFailed(orderID string) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("order_id = ? AND state = ?", orderID, constants.OrderStatePaid).
		Update("state", constants.OrderStateNotifyFailed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClosePending 仅当订单仍为待支付时关闭
func (r *GormOrderRepository) ClosePending(orderID string, closedAt time.Time) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("order_id = ? AND state = ?", orderID, constants.OrderStatePending).
		Updates(map[string]interface{}{
			"state":      constants.OrderStateClosed,
			"close_date": closedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListPendingCreatedBefore 列出指定时间之前创建且仍待支付的订单
func (r *GormOrderRepository) ListPendingCreatedBefore(before time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Where("state = ? AND create_date <= ?", constants.OrderStatePending, before).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ClosePendingBatch 批量关闭仍为待支付的订单，已被并发支付的订单不受影响
func (r *GormOrderRepository) ClosePendingBatch(orderIDs []string, closedAt time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("order_id IN ? AND state = ?", orderIDs, constants.OrderStatePending).
		Updates(map[string]interface{}{
			"state":      constants.OrderStateClosed,
			"close_date": closedAt,
		})
	return result.RowsAffected, result.Error
}

// DeleteByOrderID 删除订单，返回删除行数
func (r *GormOrderRepository) DeleteByOrderID(orderID string) (int64, error) {
	result := r.db.Where("order_id = ?", orderID).Delete(&models.Order{})
	return result.RowsAffected, result.Error
}

// DeleteSettledBefore 删除指定时间之前创建且不再待支付的订单
func (r *GormOrderRepository) DeleteSettledBefore(before time.Time) (int64, error) {
	result := r.db.Where("create_date < ? AND state <> ?", before, constants.OrderStatePending).Delete(&models.Order{})
	return result.RowsAffected, result.Error
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.Type > 0 {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"order_id", "pay_id", "param"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("create_date >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("create_date <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
