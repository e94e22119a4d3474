package shared

import (
	"errors"

	"github.com/vmq-next/internal/http/response"
	"github.com/vmq-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MsgServerBusy 存储等内部错误对外统一提示
const MsgServerBusy = "服务器繁忙，请稍后重试"

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}

// MappedError 定义业务错误到接口错误响应的映射关系。
// Msg 为空时使用错误本身的文本。
type MappedError struct {
	Target error
	Code   int
	Msg    string
}

// ResolveMappedError 按规则解析错误，未命中时返回内部错误提示
func ResolveMappedError(err error, rules []MappedError) (int, string, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			msg := rule.Msg
			if msg == "" {
				msg = err.Error()
			}
			return rule.Code, msg, true
		}
	}
	return response.CodeBadRequest, MsgServerBusy, false
}

// RespondWithMappedError 按规则返回错误，未命中的错误记录日志并隐藏细节
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError) {
	code, msg, matched := ResolveMappedError(err, rules)
	if matched {
		RequestLog(c).Debugw("handler_business_error", "code", code, "error", err)
		response.Error(c, code, msg)
		return
	}
	RespondError(c, code, msg, err)
}

// ConcatMappedErrors 合并多组映射规则
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
