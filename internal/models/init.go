package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

const defaultAdminPassword = "admin123"

// InitDefaultSettings 写入缺失的默认设置项，已有值保持不变
func InitDefaultSettings(username, password string) error {
	if strings.TrimSpace(username) == "" {
		username = constants.DefaultAdminUsername
	}
	if password == "" {
		password = strings.TrimSpace(os.Getenv("VMQ_DEFAULT_ADMIN_PASSWORD"))
	}
	usingDefault := false
	if password == "" {
		password = defaultAdminPassword
		usingDefault = true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	sum := md5.Sum([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	defaults := []Setting{
		{Key: constants.SettingKeyUser, Value: username},
		{Key: constants.SettingKeyPass, Value: string(hash)},
		{Key: constants.SettingKeySignKey, Value: hex.EncodeToString(sum[:])},
		{Key: constants.SettingKeyClose, Value: strconv.Itoa(constants.DefaultCloseMinutes)},
		{Key: constants.SettingKeyPayQf, Value: constants.PriceAdjustIncrement},
		{Key: constants.SettingKeyNotifyURL, Value: ""},
		{Key: constants.SettingKeyReturnURL, Value: ""},
		{Key: constants.SettingKeyWxpay, Value: ""},
		{Key: constants.SettingKeyZfbpay, Value: ""},
		{Key: constants.SettingKeyMonitor, Value: constants.MonitorStateUnbound},
		{Key: constants.SettingKeyLastHeart, Value: "0"},
		{Key: constants.SettingKeyLastPay, Value: "0"},
	}

	result := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults)
	if result.Error != nil {
		return fmt.Errorf("init default settings: %w", result.Error)
	}

	var admin Setting
	if err := DB.Where("vkey = ?", constants.SettingKeyPass).First(&admin).Error; err == nil && admin.Value == string(hash) {
		if usingDefault {
			logger.Warnw("default_admin_created_with_default_password", "username", username, "password", password)
			logger.Warnw("default_admin_password_change_required", "username", username)
		} else {
			logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
		}
	}
	return nil
}
