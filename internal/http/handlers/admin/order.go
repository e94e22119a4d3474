package admin

import (
	"strings"
	"time"

	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/repository"

	"github.com/gin-gonic/gin"
)

const adminDateLayout = "2006-01-02"

// ListOrders 后台订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	params := shared.ReadParams(c)
	page, pageSize := shared.NormalizePagination(params.Int("page", 1), params.Int("limit", params.Int("page_size", 20)))

	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     params.Int("type", 0),
		Keyword:  strings.TrimSpace(params.Get("keyword")),
	}
	if raw := strings.TrimSpace(params.Get("state")); raw != "" {
		state := params.Int("state", 0)
		filter.State = &state
	}
	if from, ok := parseAdminDate(params.Get("start_date")); ok {
		filter.CreatedFrom = &from
	}
	if to, ok := parseAdminDate(params.Get("end_date")); ok {
		end := to.AddDate(0, 0, 1)
		filter.CreatedTo = &end
	}

	orders, total, err := h.OrderService.ListOrders(filter)
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// CloseOrder 手动关闭订单
func (h *Handler) CloseOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.OrderService.CloseOrder(orderID); err != nil {
		respondMappedError(c, err, adminOrderErrorRules)
		return
	}
	requestLog(c).Infow("admin_order_closed", "order_id", orderID, "username", shared.AdminUsername(c))
	response.SuccessWithMsg(c, "订单已关闭", nil)
}

// DeleteOrder 删除订单，订单不存在也视为成功
func (h *Handler) DeleteOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := h.OrderService.DeleteOrder(orderID); err != nil {
		respondMappedError(c, err, adminOrderErrorRules)
		return
	}
	requestLog(c).Infow("admin_order_deleted", "order_id", orderID, "username", shared.AdminUsername(c))
	response.SuccessWithMsg(c, "删除成功", nil)
}

// DeleteHistory 删除历史订单，hours 缺省为 24
func (h *Handler) DeleteHistory(c *gin.Context) {
	params := shared.ReadParams(c)
	hours := params.Int("hours", 24)
	deleted, err := h.OrderService.DeleteHistory(time.Duration(hours) * time.Hour)
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.SuccessWithMsg(c, "清理成功", gin.H{"deleted": deleted})
}

// SweepExpired 手动执行过期订单清理
func (h *Handler) SweepExpired(c *gin.Context) {
	result, err := h.OrderService.SweepExpired()
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.Success(c, result)
}

func parseAdminDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(adminDateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
