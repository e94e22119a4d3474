package public

import (
	"errors"
	"net/http"

	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GenerateQrCode 将 url 参数编码为二维码 PNG
func (h *Handler) GenerateQrCode(c *gin.Context) {
	params := shared.ReadParams(c)
	png, err := service.RenderPNG(params.Get("url"), params.Int("size", 0))
	if err != nil {
		if errors.Is(err, service.ErrQrCodeInvalid) {
			response.BadRequest(c, "二维码内容不能为空")
			return
		}
		shared.RespondError(c, response.CodeInternal, shared.MsgServerBusy, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
