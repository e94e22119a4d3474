package main

import (
	"fmt"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/provider"
	"github.com/vmq-next/internal/service"
)

// 演示用收款码，内容仅用于联调
var demoQrCodes = []service.CreateQrCodeInput{
	{Type: "1", Price: "1.00", PayURL: "wxp://f2f0demo-wechat-100"},
	{Type: "1", Price: "5.00", PayURL: "wxp://f2f0demo-wechat-500"},
	{Type: "1", Price: "10.00", PayURL: "wxp://f2f0demo-wechat-1000"},
	{Type: "2", Price: "1.00", PayURL: "https://qr.alipay.com/demo-alipay-100"},
	{Type: "2", Price: "5.00", PayURL: "https://qr.alipay.com/demo-alipay-500"},
	{Type: "2", Price: "10.00", PayURL: "https://qr.alipay.com/demo-alipay-1000"},
}

var demoSettings = map[string]string{
	constants.SettingKeyWxpay:  "wxp://f2f0demo-wechat-any",
	constants.SettingKeyZfbpay: "https://qr.alipay.com/demo-alipay-any",
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultSettings("", ""); err != nil {
		stdLog.Fatalf("Failed to init settings: %v", err)
	}

	container := provider.NewContainerWithDB(cfg, models.DB, nil)

	// 通用收款码仅在未配置时写入
	current, err := container.SettingService.ListAll()
	if err != nil {
		stdLog.Fatalf("Failed to load settings: %v", err)
	}
	missing := map[string]string{}
	for key, value := range demoSettings {
		if current[key] == "" {
			missing[key] = value
		}
	}
	if len(missing) > 0 {
		if err := container.SettingService.Save(missing); err != nil {
			stdLog.Fatalf("Failed to save settings: %v", err)
		}
	}

	created := 0
	for _, input := range demoQrCodes {
		payType := constants.PayTypeWechat
		if input.Type == "2" {
			payType = constants.PayTypeAlipay
		}
		price, err := models.ParseMoney(input.Price)
		if err != nil {
			stdLog.Fatalf("Invalid demo price %s: %v", input.Price, err)
		}
		existing, err := container.QrCodeRepo.FindEnabledByAmount(payType, price)
		if err != nil {
			stdLog.Fatalf("Failed to query qrcode: %v", err)
		}
		if existing != nil {
			continue
		}
		if _, err := container.QrCodeService.Add(input); err != nil {
			stdLog.Fatalf("Failed to add qrcode %s/%s: %v", input.Type, input.Price, err)
		}
		created++
	}

	key, err := container.SettingService.SigningKey()
	if err != nil {
		stdLog.Fatalf("Failed to read signing key: %v", err)
	}
	fmt.Printf("Seed completed: %d qrcodes created, signing key %s\n", created, key)
}
