package service

import "errors"

// 订单与签名相关错误
var (
	ErrOrderParamsInvalid     = errors.New("参数不完整")
	ErrPaymentTypeInvalid     = errors.New("支付类型错误")
	ErrPriceInvalid           = errors.New("价格错误")
	ErrSigningKeyMissing      = errors.New("系统未配置密钥")
	ErrSignatureInvalid       = errors.New("签名错误")
	ErrMonitorOffline         = errors.New("监控端状态异常，请检查")
	ErrDuplicateOrder         = errors.New("商户订单号已存在，请勿重复提交")
	ErrOrderCapacityExhausted = errors.New("订单超出负荷，请稍后重试")
	ErrNoPaymentTarget        = errors.New("暂无可用支付二维码")
	ErrOrderNotFound          = errors.New("订单不存在")
	ErrOrderStateInvalid      = errors.New("只能关闭未支付的订单")
)

// 监控端相关错误
var (
	ErrMonitorParamsMissing = errors.New("缺少必要参数")
)

// 后台管理相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrCaptchaRequired    = errors.New("请输入验证码")
	ErrCaptchaInvalid     = errors.New("验证码错误")
	ErrCaptchaDisabled    = errors.New("验证码未启用")
	ErrSettingInvalid     = errors.New("设置项无效")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrQrCodeInvalid      = errors.New("二维码参数无效")
	ErrQrCodeNotFound     = errors.New("二维码不存在")
	ErrTokenInvalid       = errors.New("令牌无效，请重新登录")
)
