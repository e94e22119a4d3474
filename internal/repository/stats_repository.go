package repository

import (
	"fmt"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"

	"gorm.io/gorm"
)

// StatsRepository 后台统计聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type StatsRepository interface {
	GetOverview(startAt, endAt time.Time) (StatsOverviewRow, error)
	GetOrderTrends(startAt, endAt time.Time) ([]StatsOrderTrendRow, error)
}

// StatsOverviewRow 状态面板原始统计结果
type StatsOverviewRow struct {
	TodayOrders        int64
	TodaySuccessOrders int64
	TodayClosedOrders  int64
	TodayMoney         float64
	TotalOrders        int64
	TotalMoney         float64
}

// StatsOrderTrendRow 订单趋势统计
type StatsOrderTrendRow struct {
	Day         string
	OrdersTotal int64
	OrdersPaid  int64
	PaidMoney   float64
}

// GormStatsRepository GORM 统计实现
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建统计仓库
func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

// GetOverview 获取今日与累计统计，成功订单包含通知失败
func (r *GormStatsRepository) GetOverview(startAt, endAt time.Time) (StatsOverviewRow, error) {
	result := StatsOverviewRow{}

	todayBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).Where("create_date >= ? AND create_date < ?", startAt, endAt)
	}

	if err := todayBase().Count(&result.TodayOrders).Error; err != nil {
		return result, err
	}
	if err := todayBase().Where("state >= ?", constants.OrderStatePaid).Count(&result.TodaySuccessOrders).Error; err != nil {
		return result, err
	}
	if err := todayBase().Where("state = ?", constants.OrderStateClosed).Count(&result.TodayClosedOrders).Error; err != nil {
		return result, err
	}
	if err := todayBase().Where("state >= ?", constants.OrderStatePaid).
		Select("COALESCE(SUM(price), 0)").
		Scan(&result.TodayMoney).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Order{}).Count(&result.TotalOrders).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Order{}).Where("state >= ?", constants.OrderStatePaid).
		Select("COALESCE(SUM(price), 0)").
		Scan(&result.TotalMoney).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetOrderTrends 按天统计订单数与收款金额
func (r *GormStatsRepository) GetOrderTrends(startAt, endAt time.Time) ([]StatsOrderTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type paidRow struct {
		Day   string
		Paid  int64
		Money float64
	}

	dayExpr := dayExprByDialect(dbDialectName(r.db), "create_date")

	var totals []totalRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("create_date >= ? AND create_date < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var paids []paidRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as paid, COALESCE(SUM(price), 0) as money", dayExpr)).
		Where("create_date >= ? AND create_date < ? AND state >= ?", startAt, endAt, constants.OrderStatePaid).
		Group(dayExpr).
		Order("day asc").
		Scan(&paids).Error; err != nil {
		return nil, err
	}

	paidMap := make(map[string]paidRow, len(paids))
	for _, item := range paids {
		paidMap[item.Day] = item
	}

	result := make([]StatsOrderTrendRow, 0, len(totals))
	for _, item := range totals {
		paid := paidMap[item.Day]
		result = append(result, StatsOrderTrendRow{
			Day:         item.Day,
			OrdersTotal: item.Total,
			OrdersPaid:  paid.Paid,
			PaidMoney:   paid.Money,
		})
	}
	return result, nil
}
