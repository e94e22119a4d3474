package models

import (
	"time"

	"github.com/vmq-next/internal/constants"
)

// Order 支付订单表
type Order struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                                               // 主键
	OrderID     string     `gorm:"column:order_id;uniqueIndex;size:64;not null" json:"orderId"`                        // 系统订单号
	PayID       string     `gorm:"column:pay_id;uniqueIndex;size:128;not null" json:"payId"`                           // 商户订单号
	Type        int        `gorm:"index;not null" json:"type"`                                                         // 支付方式 1 微信 2 支付宝
	Price       Money      `gorm:"type:decimal(10,2);not null;default:0" json:"price"`                                 // 订单金额
	ReallyPrice Money      `gorm:"column:really_price;type:decimal(10,2);index;not null;default:0" json:"reallyPrice"` // 实际支付金额
	State       int        `gorm:"index;not null;default:0" json:"state"`                                              // 订单状态
	IsAuto      bool       `gorm:"column:is_auto;not null;default:false" json:"isAuto"`                                // 是否需要手动输入金额
	PayURL      string     `gorm:"column:pay_url;type:text" json:"payUrl"`                                             // 收款码内容
	NotifyURL   string     `gorm:"column:notify_url;type:text" json:"notifyUrl"`                                       // 异步通知地址
	ReturnURL   string     `gorm:"column:return_url;type:text" json:"returnUrl"`                                       // 同步跳转地址
	Param       string     `gorm:"type:text" json:"param"`                                                             // 商户自定义参数
	CreatedAt   time.Time  `gorm:"column:create_date;index" json:"createDate"`                                         // 创建时间
	PaidAt      *time.Time `gorm:"column:pay_date" json:"payDate"`                                                     // 支付时间
	ClosedAt    *time.Time `gorm:"column:close_date" json:"closeDate"`                                                 // 关闭时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "pay_order"
}

// IsPending 是否待支付
func (o *Order) IsPending() bool {
	return o != nil && o.State == constants.OrderStatePending
}

// IsSettled 是否已收款（含通知失败）
func (o *Order) IsSettled() bool {
	return o != nil && (o.State == constants.OrderStatePaid || o.State == constants.OrderStateNotifyFailed)
}

// Deadline 根据超时分钟数计算订单截止时间
func (o *Order) Deadline(timeoutMinutes int) time.Time {
	return o.CreatedAt.Add(time.Duration(timeoutMinutes) * time.Minute)
}

// RemainingSeconds 距离超时的剩余秒数（不小于 0）
func (o *Order) RemainingSeconds(now time.Time, timeoutMinutes int) int64 {
	remaining := int64(o.Deadline(timeoutMinutes).Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OrderStateText 订单状态文本
func OrderStateText(state int) string {
	switch state {
	case constants.OrderStateClosed:
		return "已关闭"
	case constants.OrderStatePending:
		return "未支付"
	case constants.OrderStatePaid:
		return "已支付"
	case constants.OrderStateNotifyFailed:
		return "通知失败"
	default:
		return "未知状态"
	}
}

// PayTypeText 支付方式文本
func PayTypeText(payType int) string {
	if payType == constants.PayTypeWechat {
		return "微信"
	}
	return "支付宝"
}
