package repository

import (
	"time"

	"github.com/vmq-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRepository 金额占用数据访问接口
type ReservationRepository interface {
	TryReserve(reservation *models.AmountReservation) (bool, error)
	ReleaseByOrderID(orderID string) (int64, error)
	ReleaseByOrderIDs(orderIDs []string) (int64, error)
	DeleteOrphansBefore(before time.Time) (int64, error)
	Count() (int64, error)
}

// GormReservationRepository GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建金额占用仓库
func NewReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// TryReserve 原子地插入占用记录，已存在时返回 false
func (r *GormReservationRepository) TryReserve(reservation *models.AmountReservation) (bool, error) {
	if reservation == nil {
		return false, nil
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now()
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(reservation)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseByOrderID 释放订单持有的全部占用
func (r *GormReservationRepository) ReleaseByOrderID(orderID string) (int64, error) {
	result := r.db.Where("oid = ?", orderID).Delete(&models.AmountReservation{})
	return result.RowsAffected, result.Error
}

// ReleaseByOrderIDs 批量释放多个订单的占用
func (r *GormReservationRepository) ReleaseByOrderIDs(orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.Where("oid IN ?", orderIDs).Delete(&models.AmountReservation{})
	return result.RowsAffected, result.Error
}

// DeleteOrphansBefore 删除早于指定时间且订单已不存在的占用
func (r *GormReservationRepository) DeleteOrphansBefore(before time.Time) (int64, error) {
	existing := r.db.Model(&models.Order{}).Select("order_id")
	result := r.db.Where("created_at < ? AND oid NOT IN (?)", before, existing).Delete(&models.AmountReservation{})
	return result.RowsAffected, result.Error
}

// Count 当前占用数量
func (r *GormReservationRepository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&models.AmountReservation{}).Count(&total).Error
	return total, err
}
