package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Type        int
	State       *int
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// QrCodeListFilter 查询收款码列表的过滤条件
type QrCodeListFilter struct {
	Page     int
	PageSize int
	Type     int
}
