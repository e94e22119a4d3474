package admin

import (
	"strconv"

	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/repository"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListQrCodes 固定金额收款码列表
func (h *Handler) ListQrCodes(c *gin.Context) {
	params := shared.ReadParams(c)
	page, pageSize := shared.NormalizePagination(params.Int("page", 1), params.Int("limit", params.Int("page_size", 20)))
	codes, total, err := h.QrCodeService.List(repository.QrCodeListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     params.Int("type", 0),
	})
	if err != nil {
		respondError(c, response.CodeBadRequest, shared.MsgServerBusy, err)
		return
	}
	response.SuccessWithPage(c, codes, response.NewPagination(page, pageSize, total))
}

// CreateQrCode 新增固定金额收款码
func (h *Handler) CreateQrCode(c *gin.Context) {
	params := shared.ReadParams(c)
	code, err := h.QrCodeService.Add(service.CreateQrCodeInput{
		Type:   params.Get("type"),
		Price:  params.Get("price"),
		PayURL: params.Get("pay_url"),
	})
	if err != nil {
		respondMappedError(c, err, adminQrCodeErrorRules)
		return
	}
	response.SuccessWithMsg(c, "添加成功", code)
}

// DeleteQrCode 删除收款码
func (h *Handler) DeleteQrCode(c *gin.Context) {
	id, ok := parseQrCodeID(c)
	if !ok {
		return
	}
	if err := h.QrCodeService.Delete(id); err != nil {
		respondMappedError(c, err, adminQrCodeErrorRules)
		return
	}
	response.SuccessWithMsg(c, "删除成功", nil)
}

// UpdateQrCodeState 启用或停用收款码
func (h *Handler) UpdateQrCodeState(c *gin.Context) {
	id, ok := parseQrCodeID(c)
	if !ok {
		return
	}
	params := shared.ReadParams(c)
	if err := h.QrCodeService.SetState(id, params.Int("state", -1)); err != nil {
		respondMappedError(c, err, adminQrCodeErrorRules)
		return
	}
	response.SuccessWithMsg(c, "更新成功", nil)
}

func parseQrCodeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "二维码ID无效")
		return 0, false
	}
	return uint(id), true
}
