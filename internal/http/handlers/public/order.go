package public

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
)

var paymentRedirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=no">
<title>正在跳转到支付页面...</title>
</head>
<body style="background-color:#f5f5f5;font-family:Arial,sans-serif;text-align:center;padding-top:100px;">
<div style="margin-top:20px;color:#333;font-size:16px;">正在跳转到支付页面，请稍候...</div>
<script>window.location.href = {{.}};</script>
</body>
</html>`))

// CreateOrder 商户创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	params := shared.ReadParams(c)
	isHTML := params.Bool("isHtml")

	result, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		PayID:     params.Get("payId"),
		Param:     params.Get("param"),
		Type:      params.Get("type"),
		Price:     params.Get("price"),
		Sign:      params.Get("sign"),
		NotifyURL: params.Get("notifyUrl"),
		ReturnURL: params.Get("returnUrl"),
	})
	if err != nil {
		if isHTML {
			_, msg, matched := shared.ResolveMappedError(err, orderCreateErrorRules)
			if !matched {
				shared.RequestLog(c).Errorw("order_create_failed", "error", err)
			}
			c.String(http.StatusOK, msg)
			return
		}
		respondMappedError(c, err, orderCreateErrorRules)
		return
	}

	if isHTML {
		var buf bytes.Buffer
		if err := paymentRedirectPage.Execute(&buf, result.RedirectURL); err != nil {
			shared.RespondError(c, response.CodeInternal, shared.MsgServerBusy, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
		return
	}
	response.Success(c, result)
}

// GetOrder 支付页获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	view, err := h.OrderService.GetOrder(orderIDFromRequest(c))
	if err != nil {
		respondMappedError(c, err, orderQueryErrorRules)
		return
	}
	response.Success(c, view)
}

// CheckOrder 支付页轮询订单状态
func (h *Handler) CheckOrder(c *gin.Context) {
	result, err := h.OrderService.CheckOrder(orderIDFromRequest(c))
	if err != nil {
		respondMappedError(c, err, orderQueryErrorRules)
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

// ReturnURL 生成支付成功后的同步跳转地址
func (h *Handler) ReturnURL(c *gin.Context) {
	returnURL, err := h.OrderService.BuildReturnURL(orderIDFromRequest(c))
	if err != nil {
		respondMappedError(c, err, orderQueryErrorRules)
		return
	}
	response.Success(c, gin.H{"url": returnURL})
}

// CloseEndOrder 手动触发过期订单清理
func (h *Handler) CloseEndOrder(c *gin.Context) {
	result, err := h.OrderService.SweepExpired()
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.SuccessWithMsg(c, "成功", result)
}

// orderIDFromRequest 路径参数优先，其次兼容 orderId 请求参数
func orderIDFromRequest(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("orderId")); id != "" {
		return id
	}
	return strings.TrimSpace(shared.ReadParams(c).Get("orderId"))
}
