package repository

import (
	"errors"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"

	"gorm.io/gorm"
)

// QrCodeRepository 收款码数据访问接口
type QrCodeRepository interface {
	Create(code *models.QrCode) error
	GetByID(id uint) (*models.QrCode, error)
	FindEnabledByAmount(payType int, price models.Money) (*models.QrCode, error)
	UpdateState(id uint, state int) (bool, error)
	Delete(id uint) (int64, error)
	List(filter QrCodeListFilter) ([]models.QrCode, int64, error)
}

// GormQrCodeRepository GORM 实现
type GormQrCodeRepository struct {
	db *gorm.DB
}

// NewQrCodeRepository 创建收款码仓库
func NewQrCodeRepository(db *gorm.DB) *GormQrCodeRepository {
	return &GormQrCodeRepository{db: db}
}

// Create 新增收款码
func (r *GormQrCodeRepository) Create(code *models.QrCode) error {
	return r.db.Create(code).Error
}

// GetByID 根据 ID 获取收款码
func (r *GormQrCodeRepository) GetByID(id uint) (*models.QrCode, error) {
	var code models.QrCode
	if err := r.db.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// FindEnabledByAmount 查找启用状态且金额匹配的固定金额收款码
func (r *GormQrCodeRepository) FindEnabledByAmount(payType int, price models.Money) (*models.QrCode, error) {
	var code models.QrCode
	err := r.db.Where("price = ? AND type = ? AND state = ?", price, payType, constants.QrCodeStateEnabled).
		Order("id ASC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// UpdateState 更新启用状态
func (r *GormQrCodeRepository) UpdateState(id uint, state int) (bool, error) {
	result := r.db.Model(&models.QrCode{}).Where("id = ?", id).Update("state", state)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除收款码
func (r *GormQrCodeRepository) Delete(id uint) (int64, error) {
	result := r.db.Delete(&models.QrCode{}, id)
	return result.RowsAffected, result.Error
}

// List 收款码列表
func (r *GormQrCodeRepository) List(filter QrCodeListFilter) ([]models.QrCode, int64, error) {
	query := r.db.Model(&models.QrCode{})
	if filter.Type > 0 {
		query = query.Where("type = ?", filter.Type)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var codes []models.QrCode
	if err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}
