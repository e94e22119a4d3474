package admin

import (
	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetSettings 获取系统设置
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.SettingService.ListAll()
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.Success(c, settings)
}

// SaveSettings 保存系统设置，仅白名单内的键生效
func (h *Handler) SaveSettings(c *gin.Context) {
	params := shared.ReadParams(c)
	if err := h.SettingService.Save(params); err != nil {
		respondMappedError(c, err, adminSettingErrorRules)
		return
	}
	requestLog(c).Infow("admin_settings_saved", "username", shared.AdminUsername(c))
	response.SuccessWithMsg(c, "保存成功", nil)
}

// ResetSigningKey 重新生成通讯密钥
func (h *Handler) ResetSigningKey(c *gin.Context) {
	key, err := h.SettingService.ResetSigningKey()
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	requestLog(c).Infow("admin_signing_key_reset", "username", shared.AdminUsername(c))
	response.Success(c, gin.H{"key": key})
}
