package service

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// signMD5 计算小写十六进制 MD5
func signMD5(raw string) string {
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CreateOrderSign 商户创建订单签名
func CreateOrderSign(payID, param, payType, price, key string) string {
	return signMD5("payId=" + payID + "&param=" + param + "&type=" + payType + "&price=" + price + "&key=" + key)
}

// HeartbeatSign 监控端心跳签名 md5(t+key)
func HeartbeatSign(t, key string) string {
	return signMD5(t + key)
}

// PushSign 监控端收款推送签名 md5(type+price+t+key)
func PushSign(payType, price, t, key string) string {
	return signMD5(payType + price + t + key)
}

// NotifySign 商户异步通知签名 md5(payId+param+type+price+reallyPrice+key)
func NotifySign(payID, param, payType, price, reallyPrice, key string) string {
	return signMD5(payID + param + payType + price + reallyPrice + key)
}

// ReturnSign 同步跳转签名，与异步通知拼接顺序一致
func ReturnSign(payID, param, payType, price, reallyPrice, key string) string {
	return NotifySign(payID, param, payType, price, reallyPrice, key)
}

// LegacyHeartbeatSigns 旧版监控端心跳可接受的签名
func LegacyHeartbeatSigns(t, key string) []string {
	return []string{
		HeartbeatSign(t, key),
		HeartbeatSign(strings.TrimSpace(t), key),
		HeartbeatSign(t, strings.TrimSpace(key)),
	}
}

// LegacyPushSigns 旧版监控端推送可接受的签名
func LegacyPushSigns(payType, price, t, key string) []string {
	return []string{
		PushSign(payType, price, t, key),
		PushSign(strings.TrimSpace(payType), strings.TrimSpace(price), strings.TrimSpace(t), strings.TrimSpace(key)),
	}
}

// MatchAnySign 常量时间比较签名，任一候选匹配即通过
func MatchAnySign(sign string, candidates ...string) bool {
	sign = strings.ToLower(strings.TrimSpace(sign))
	if sign == "" {
		return false
	}
	matched := 0
	for _, candidate := range candidates {
		matched |= subtle.ConstantTimeCompare([]byte(sign), []byte(candidate))
	}
	return matched == 1
}
