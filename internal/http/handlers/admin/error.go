package admin

import (
	handlershared "github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var adminOrderErrorRules = []handlershared.MappedError{
	{Target: service.ErrOrderParamsInvalid, Code: response.CodeBadRequest, Msg: "订单号不能为空"},
	{Target: service.ErrOrderNotFound, Code: response.CodeBadRequest},
	{Target: service.ErrOrderStateInvalid, Code: response.CodeBadRequest},
}

var adminSettingErrorRules = []handlershared.MappedError{
	{Target: service.ErrSettingInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest},
}

var adminQrCodeErrorRules = []handlershared.MappedError{
	{Target: service.ErrPaymentTypeInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrPriceInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrQrCodeInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrQrCodeNotFound, Code: response.CodeBadRequest},
}

var adminLoginErrorRules = []handlershared.MappedError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeBadRequest},
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrCaptchaDisabled, Code: response.CodeBadRequest},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondMappedError(c *gin.Context, err error, rules []handlershared.MappedError) {
	handlershared.RespondWithMappedError(c, err, rules)
}
