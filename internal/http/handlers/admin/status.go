package admin

import (
	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetStatus 后台状态面板
func (h *Handler) GetStatus(c *gin.Context) {
	view, err := h.MonitorService.Status(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.Success(c, view)
}

// GetTrends 订单趋势
func (h *Handler) GetTrends(c *gin.Context) {
	params := shared.ReadParams(c)
	points, err := h.MonitorService.Trends(params.Int("days", 7))
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.Success(c, points)
}
