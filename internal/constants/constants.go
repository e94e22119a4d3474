package constants

// 支付方式常量
const (
	PayTypeWechat = 1
	PayTypeAlipay = 2
)

// 订单状态常量
const (
	OrderStatePending      = 0
	OrderStatePaid         = 1
	OrderStateNotifyFailed = 2
	OrderStateClosed       = -1
)

// 金额浮动模式（payQf）
const (
	PriceAdjustNone      = ""
	PriceAdjustIncrement = "1"
	PriceAdjustDecrement = "2"
)

// 监控端状态（jkstate）
const (
	MonitorStateUnbound = "-1"
	MonitorStateOffline = "0"
	MonitorStateOnline  = "1"
)

// 后台状态面板中的监控端状态
const (
	MonitorStatusUnknown  = 0
	MonitorStatusNormal   = 1
	MonitorStatusAbnormal = 2
)

// 设置键
const (
	SettingKeyUser       = "user"
	SettingKeyPass       = "pass"
	SettingKeySignKey    = "key"
	SettingKeyClose      = "close"
	SettingKeyPayQf      = "payQf"
	SettingKeyNotifyURL  = "notifyUrl"
	SettingKeyReturnURL  = "returnUrl"
	SettingKeyWxpay      = "wxpay"
	SettingKeyZfbpay     = "zfbpay"
	SettingKeyMonitor    = "jkstate"
	SettingKeyLastHeart  = "lastheart"
	SettingKeyLastPay    = "lastpay"
	DefaultCloseMinutes  = 5
	DefaultAdminUsername = "admin"
)

// 二维码状态
const (
	QrCodeStateEnabled  = 0
	QrCodeStateDisabled = 1
)

// 无订单转账
const (
	UnmatchedCreditPrefix = "no-order-transfer-"
	UnmatchedCreditParam  = "无订单转账"
)

// 商户通知
const (
	NotifySuccessBody = "success"
	NotifyMethodGet   = "GET"
	NotifyMethodPost  = "POST"
)


// 后台令牌前缀（旧版管理端兼容）
const LegacyAdminTokenSalt = "vmqphp_"

// 异步任务与队列
const (
	QueueDefault    = "default"
	TaskOrderExpire = "order:expire"
)
