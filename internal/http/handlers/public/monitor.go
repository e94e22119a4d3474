package public

import (
	"context"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MonitorHeart 监控端心跳
func (h *Handler) MonitorHeart(c *gin.Context) {
	params := shared.ReadParams(c)
	if err := h.MonitorService.Heartbeat(params.Get("t"), params.Get("sign"), false); err != nil {
		respondMappedError(c, err, monitorHeartErrorRules)
		return
	}
	response.SuccessWithMsg(c, "心跳更新成功", nil)
}

// AppHeart 旧版监控端心跳
func (h *Handler) AppHeart(c *gin.Context) {
	params := shared.ReadParams(c)
	if err := h.MonitorService.Heartbeat(params.Get("t"), params.Get("sign"), true); err != nil {
		respondLegacyError(c, err, monitorHeartErrorRules)
		return
	}
	response.LegacySuccess(c, "成功")
}

// MonitorPush 监控端收款推送，商户通知使用 GET
func (h *Handler) MonitorPush(c *gin.Context) {
	h.handlePush(c, false)
}

// AppPush 旧版监控端收款推送，商户通知使用 POST
func (h *Handler) AppPush(c *gin.Context) {
	h.handlePush(c, true)
}

// handlePush 先完成匹配入账并把响应刷给监控端，之后才异步通知商户
func (h *Handler) handlePush(c *gin.Context, legacy bool) {
	params := shared.ReadParams(c)
	result, err := h.PaymentPushService.Push(service.PushInput{
		T:      params.Get("t"),
		Type:   params.Get("type"),
		Price:  params.Get("price"),
		Sign:   params.Get("sign"),
		Legacy: legacy,
	})
	if err != nil {
		if legacy {
			respondLegacyError(c, err, monitorPushErrorRules)
			return
		}
		respondMappedError(c, err, monitorPushErrorRules)
		return
	}

	switch {
	case legacy:
		response.LegacySuccess(c, "成功")
	case result.Matched:
		response.SuccessWithMsg(c, "订单支付成功", nil)
	default:
		response.SuccessWithMsg(c, "成功", nil)
	}
	c.Writer.Flush()

	if !result.Matched {
		return
	}
	method := constants.NotifyMethodGet
	if legacy {
		method = constants.NotifyMethodPost
	}
	go h.deliverNotify(result.Order, method)
}

// deliverNotify 脱离请求上下文投递商户通知
func (h *Handler) deliverNotify(order *models.Order, method string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("notify_panic", "order_id", order.OrderID, "panic", r)
		}
	}()
	h.NotifyService.Deliver(context.Background(), order, method)
}
