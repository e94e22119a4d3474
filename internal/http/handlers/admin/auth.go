package admin

import (
	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Login 后台登录
func (h *Handler) Login(c *gin.Context) {
	params := shared.ReadParams(c)
	if err := h.CaptchaService.Verify(params.Get("captcha_id"), params.Get("captcha_code")); err != nil {
		respondMappedError(c, err, adminLoginErrorRules)
		return
	}

	username := params.Get("username")
	token, expiresAt, err := h.AuthService.Login(username, params.Get("password"))
	if err != nil {
		requestLog(c).Warnw("admin_login_failed", "username", username, "client_ip", c.ClientIP(), "error", err)
		respondMappedError(c, err, adminLoginErrorRules)
		return
	}
	requestLog(c).Infow("admin_login_success", "username", username, "client_ip", c.ClientIP())
	response.SuccessWithMsg(c, "登录成功", gin.H{
		"accessToken": token,
		"expiresAt":   expiresAt.Unix(),
		"username":    username,
	})
}

// GetCaptcha 获取登录验证码
func (h *Handler) GetCaptcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}
	challenge, err := h.CaptchaService.Generate()
	if err != nil {
		respondError(c, response.CodeInternal, shared.MsgServerBusy, err)
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// Profile 当前登录管理员
func (h *Handler) Profile(c *gin.Context) {
	response.Success(c, gin.H{"username": shared.AdminUsername(c)})
}
