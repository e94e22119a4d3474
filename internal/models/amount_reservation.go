package models

import (
	"fmt"
	"time"
)

// AmountReservation 金额占用表，(cents, type) 唯一，保证同一金额同一时刻只属于一个待支付订单
type AmountReservation struct {
	Cents     int64     `gorm:"primarykey;autoIncrement:false" json:"cents"`
	Type      int       `gorm:"primarykey;autoIncrement:false" json:"type"`
	OrderID   string    `gorm:"column:oid;index;size:64;not null" json:"orderId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName 指定表名
func (AmountReservation) TableName() string {
	return "tmp_price"
}

// Key 返回 "分-类型" 形式的占用键
func (r AmountReservation) Key() string {
	return fmt.Sprintf("%d-%d", r.Cents, r.Type)
}
