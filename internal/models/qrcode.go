package models

import (
	"time"

	"github.com/vmq-next/internal/constants"
)

// QrCode 收款二维码表
type QrCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Type      int       `gorm:"index;not null" json:"type"`                               // 支付方式
	PayURL    string    `gorm:"column:pay_url;type:text;not null" json:"payUrl"`          // 收款码内容
	Price     Money     `gorm:"type:decimal(10,2);index;not null;default:0" json:"price"` // 绑定金额，0 表示通用码
	State     int       `gorm:"not null;default:0" json:"state"`                          // 0 启用 1 禁用
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (QrCode) TableName() string {
	return "pay_qrcode"
}

// Enabled 是否启用
func (q *QrCode) Enabled() bool {
	return q != nil && q.State == constants.QrCodeStateEnabled
}
