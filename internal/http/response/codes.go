package response

const (
	CodeOK              = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeTooManyRequests = 429
	CodeInternal        = 500
)

// 旧版监控端接口响应码
const (
	LegacyCodeSuccess = 1
	LegacyCodeFail    = -1
)
