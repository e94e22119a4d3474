package public

import "github.com/vmq-next/internal/provider"

// Handler 商户、支付页与监控端接口处理器入口
// 说明：这些接口不走后台登录鉴权，靠签名或订单号访问。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
