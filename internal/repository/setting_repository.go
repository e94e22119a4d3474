package repository

import (
	"errors"

	"github.com/vmq-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 设置数据访问接口
type SettingRepository interface {
	GetByKey(key string) (*models.Setting, error)
	GetValue(key string) (string, error)
	ListAll() ([]models.Setting, error)
	Upsert(key, value string) error
	UpsertMany(values map[string]string) error
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetByKey 获取设置
func (r *GormSettingRepository) GetByKey(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("vkey = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// GetValue 获取设置值，不存在时返回空字符串
func (r *GormSettingRepository) GetValue(key string) (string, error) {
	setting, err := r.GetByKey(key)
	if err != nil || setting == nil {
		return "", err
	}
	return setting.Value, nil
}

// ListAll 获取全部设置
func (r *GormSettingRepository) ListAll() ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.db.Order("vkey ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert 更新或创建设置
func (r *GormSettingRepository) Upsert(key, value string) error {
	return upsertSetting(r.db, key, value)
}

// UpsertMany 在同一事务中批量写入设置
func (r *GormSettingRepository) UpsertMany(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsertSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertSetting(db *gorm.DB, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vkey"}},
		DoUpdates: clause.AssignmentColumns([]string{"vvalue"}),
	}).Create(&setting).Error
}
