package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/repository"

	"github.com/asaskevich/govalidator"
)

// SettingService 运行时设置服务
// 说明：所有读取都直接访问存储，不做缓存，后台修改即时生效。
type SettingService struct {
	repo           repository.SettingRepository
	passwordPolicy config.PasswordPolicyConfig
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// SetPasswordPolicy 设置后台密码策略，修改 pass 时校验
func (s *SettingService) SetPasswordPolicy(policy config.PasswordPolicyConfig) {
	s.passwordPolicy = policy
}

// editableSettingKeys 后台允许修改的设置项
var editableSettingKeys = map[string]struct{}{
	constants.SettingKeyUser:      {},
	constants.SettingKeyPass:      {},
	constants.SettingKeyNotifyURL: {},
	constants.SettingKeyReturnURL: {},
	constants.SettingKeySignKey:   {},
	constants.SettingKeyClose:     {},
	constants.SettingKeyPayQf:     {},
	constants.SettingKeyWxpay:     {},
	constants.SettingKeyZfbpay:    {},
}

// MonitorSnapshot 监控端状态快照
type MonitorSnapshot struct {
	State     string
	LastHeart int64
	LastPay   int64
}

func (s *SettingService) value(key string) (string, error) {
	value, err := s.repo.GetValue(key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// CloseTimeoutMinutes 订单超时分钟数，非法值回退为默认 5 分钟
func (s *SettingService) CloseTimeoutMinutes() (int, error) {
	raw, err := s.value(constants.SettingKeyClose)
	if err != nil {
		return constants.DefaultCloseMinutes, err
	}
	minutes, convErr := strconv.Atoi(raw)
	if convErr != nil || minutes <= 0 {
		return constants.DefaultCloseMinutes, nil
	}
	return minutes, nil
}

// PriceAdjustMode 金额浮动模式
func (s *SettingService) PriceAdjustMode() (string, error) {
	mode, err := s.value(constants.SettingKeyPayQf)
	if err != nil {
		return constants.PriceAdjustNone, err
	}
	switch mode {
	case constants.PriceAdjustIncrement, constants.PriceAdjustDecrement:
		return mode, nil
	default:
		return constants.PriceAdjustNone, nil
	}
}

// SigningKey 通讯密钥，保持原样不做裁剪
func (s *SettingService) SigningKey() (string, error) {
	return s.repo.GetValue(constants.SettingKeySignKey)
}

// DefaultNotifyURL 默认异步通知地址
func (s *SettingService) DefaultNotifyURL() (string, error) {
	return s.value(constants.SettingKeyNotifyURL)
}

// DefaultReturnURL 默认同步跳转地址
func (s *SettingService) DefaultReturnURL() (string, error) {
	return s.value(constants.SettingKeyReturnURL)
}

// CatchAllPayURL 支付方式对应的通用收款码
func (s *SettingService) CatchAllPayURL(payType int) (string, error) {
	if payType == constants.PayTypeWechat {
		return s.value(constants.SettingKeyWxpay)
	}
	return s.value(constants.SettingKeyZfbpay)
}

// MonitorOnline 监控端是否在线
func (s *SettingService) MonitorOnline() (bool, error) {
	state, err := s.value(constants.SettingKeyMonitor)
	if err != nil {
		return false, err
	}
	return state == constants.MonitorStateOnline, nil
}

// RecordHeartbeat 记录心跳时间并标记监控端在线
func (s *SettingService) RecordHeartbeat(now time.Time) error {
	return s.repo.UpsertMany(map[string]string{
		constants.SettingKeyLastHeart: strconv.FormatInt(now.Unix(), 10),
		constants.SettingKeyMonitor:   constants.MonitorStateOnline,
	})
}

// RecordLastPay 记录最近一次收款推送时间
func (s *SettingService) RecordLastPay(now time.Time) error {
	return s.repo.Upsert(constants.SettingKeyLastPay, strconv.FormatInt(now.Unix(), 10))
}

// MonitorSnapshot 读取监控端状态
func (s *SettingService) MonitorSnapshot() (MonitorSnapshot, error) {
	snapshot := MonitorSnapshot{}
	state, err := s.value(constants.SettingKeyMonitor)
	if err != nil {
		return snapshot, err
	}
	lastHeart, err := s.value(constants.SettingKeyLastHeart)
	if err != nil {
		return snapshot, err
	}
	lastPay, err := s.value(constants.SettingKeyLastPay)
	if err != nil {
		return snapshot, err
	}
	snapshot.State = state
	snapshot.LastHeart, _ = strconv.ParseInt(lastHeart, 10, 64)
	snapshot.LastPay, _ = strconv.ParseInt(lastPay, 10, 64)
	return snapshot, nil
}

// SetMonitorState 更新监控端状态
func (s *SettingService) SetMonitorState(state string) error {
	return s.repo.Upsert(constants.SettingKeyMonitor, state)
}

// AdminCredentials 后台账号与密码哈希
func (s *SettingService) AdminCredentials() (string, string, error) {
	username, err := s.value(constants.SettingKeyUser)
	if err != nil {
		return "", "", err
	}
	passHash, err := s.repo.GetValue(constants.SettingKeyPass)
	if err != nil {
		return "", "", err
	}
	return username, passHash, nil
}

// ListAll 返回全部设置，密码哈希不对外输出
func (s *SettingService) ListAll() (map[string]string, error) {
	settings, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(settings))
	for _, item := range settings {
		if item.Key == constants.SettingKeyPass {
			result[item.Key] = ""
			continue
		}
		result[item.Key] = item.Value
	}
	return result, nil
}

// Save 保存后台设置，仅允许白名单内的键
func (s *SettingService) Save(values map[string]string) error {
	updates := make(map[string]string, len(values))
	for key, raw := range values {
		if _, ok := editableSettingKeys[key]; !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		normalized, skip, err := s.normalizeSettingValue(key, value)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		updates[key] = normalized
	}
	if len(updates) == 0 {
		return nil
	}
	return s.repo.UpsertMany(updates)
}

func (s *SettingService) normalizeSettingValue(key, value string) (string, bool, error) {
	switch key {
	case constants.SettingKeyUser:
		if value == "" {
			return "", false, fmt.Errorf("%w: user", ErrSettingInvalid)
		}
		return value, false, nil
	case constants.SettingKeyPass:
		// 空密码表示不修改
		if value == "" {
			return "", true, nil
		}
		if err := validatePassword(s.passwordPolicy, value); err != nil {
			return "", false, err
		}
		hash, err := HashPassword(value)
		if err != nil {
			return "", false, err
		}
		return hash, false, nil
	case constants.SettingKeySignKey:
		if value == "" {
			return generateSigningKey(), false, nil
		}
		return value, false, nil
	case constants.SettingKeyClose:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes <= 0 {
			return "", false, fmt.Errorf("%w: close", ErrSettingInvalid)
		}
		return strconv.Itoa(minutes), false, nil
	case constants.SettingKeyPayQf:
		switch value {
		case constants.PriceAdjustNone, constants.PriceAdjustIncrement, constants.PriceAdjustDecrement:
			return value, false, nil
		}
		return "", false, fmt.Errorf("%w: payQf", ErrSettingInvalid)
	case constants.SettingKeyNotifyURL, constants.SettingKeyReturnURL:
		if value != "" && !isHTTPURL(value) {
			return "", false, fmt.Errorf("%w: %s", ErrSettingInvalid, key)
		}
		return value, false, nil
	default:
		return value, false, nil
	}
}

// isHTTPURL 校验 http/https 地址
func isHTTPURL(value string) bool {
	if !govalidator.IsURL(value) {
		return false
	}
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// EnsureSigningKey 密钥为空时自动生成
func (s *SettingService) EnsureSigningKey() (string, error) {
	key, err := s.SigningKey()
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	return s.ResetSigningKey()
}

// ResetSigningKey 重新生成通讯密钥
func (s *SettingService) ResetSigningKey() (string, error) {
	key := generateSigningKey()
	if err := s.repo.Upsert(constants.SettingKeySignKey, key); err != nil {
		return "", err
	}
	return key, nil
}

func generateSigningKey() string {
	sum := md5.Sum([]byte(strconv.FormatInt(time.Now().UnixNano(), 10) + randNumeric(8)))
	return hex.EncodeToString(sum[:])
}
