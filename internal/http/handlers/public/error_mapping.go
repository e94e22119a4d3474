package public

import (
	"github.com/vmq-next/internal/http/handlers/shared"
	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var orderValidationErrorRules = []shared.MappedError{
	{Target: service.ErrOrderParamsInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrPaymentTypeInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrPriceInvalid, Code: response.CodeBadRequest},
}

var orderCreateErrorRules = shared.ConcatMappedErrors(orderValidationErrorRules, []shared.MappedError{
	{Target: service.ErrSigningKeyMissing, Code: response.CodeBadRequest},
	{Target: service.ErrSignatureInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrMonitorOffline, Code: response.CodeBadRequest},
	{Target: service.ErrDuplicateOrder, Code: response.CodeBadRequest},
	{Target: service.ErrOrderCapacityExhausted, Code: response.CodeBadRequest},
	{Target: service.ErrNoPaymentTarget, Code: response.CodeBadRequest},
})

var orderQueryErrorRules = []shared.MappedError{
	{Target: service.ErrOrderParamsInvalid, Code: response.CodeBadRequest, Msg: "订单号不能为空"},
	{Target: service.ErrOrderNotFound, Code: response.CodeBadRequest},
}

var monitorHeartErrorRules = []shared.MappedError{
	{Target: service.ErrMonitorParamsMissing, Code: response.CodeBadRequest},
	{Target: service.ErrSigningKeyMissing, Code: response.CodeBadRequest, Msg: "密钥错误---请检查配置数据！"},
	{Target: service.ErrSignatureInvalid, Code: response.CodeBadRequest, Msg: "密钥错误---请检查配置数据！"},
}

var monitorPushErrorRules = []shared.MappedError{
	{Target: service.ErrMonitorParamsMissing, Code: response.CodeBadRequest},
	{Target: service.ErrSigningKeyMissing, Code: response.CodeBadRequest, Msg: "系统密钥未设置"},
	{Target: service.ErrSignatureInvalid, Code: response.CodeBadRequest, Msg: "签名校验不通过"},
	{Target: service.ErrPaymentTypeInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrPriceInvalid, Code: response.CodeBadRequest},
}

func respondMappedError(c *gin.Context, err error, rules []shared.MappedError) {
	shared.RespondWithMappedError(c, err, rules)
}

// respondLegacyError 旧版监控端错误响应，未命中的错误隐藏细节
func respondLegacyError(c *gin.Context, err error, rules []shared.MappedError) {
	_, msg, matched := shared.ResolveMappedError(err, rules)
	if !matched {
		shared.RequestLog(c).Errorw("legacy_handler_error", "error", err)
	}
	response.LegacyError(c, msg)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return shared.RequestLog(c)
}
