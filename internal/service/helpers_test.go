package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testSigningKey = "k"

type testServices struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	reservations *repository.GormReservationRepository
	qrcodes      *repository.GormQrCodeRepository
	settingRepo  *repository.GormSettingRepository
	settings     *SettingService
	allocator    *PriceAllocator
	events       *OrderEventBus
	orders       *OrderService
	push         *PaymentPushService
	monitor      *MonitorService
	auth         *AuthService
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestServices(t *testing.T, name string) *testServices {
	t.Helper()
	db := openServiceTestDB(t, name)
	passHash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}

	ts := &testServices{
		db:           db,
		orderRepo:    repository.NewOrderRepository(db),
		reservations: repository.NewReservationRepository(db),
		qrcodes:      repository.NewQrCodeRepository(db),
		settingRepo:  repository.NewSettingRepository(db),
		events:       NewOrderEventBus(),
	}
	if err := ts.settingRepo.UpsertMany(map[string]string{
		constants.SettingKeyUser:      "admin",
		constants.SettingKeyPass:      passHash,
		constants.SettingKeySignKey:   testSigningKey,
		constants.SettingKeyClose:     "5",
		constants.SettingKeyPayQf:     constants.PriceAdjustIncrement,
		constants.SettingKeyMonitor:   constants.MonitorStateOnline,
		constants.SettingKeyWxpay:     "wxp://catch-all",
		constants.SettingKeyZfbpay:    "https://qr.alipay.com/catch-all",
		constants.SettingKeyNotifyURL: "",
		constants.SettingKeyReturnURL: "",
		constants.SettingKeyLastHeart: "0",
		constants.SettingKeyLastPay:   "0",
	}); err != nil {
		t.Fatalf("seed settings failed: %v", err)
	}

	cfg := config.Default()
	ts.settings = NewSettingService(ts.settingRepo)
	ts.allocator = NewPriceAllocator(ts.reservations, 10, 1)
	ts.orders = NewOrderService(ts.orderRepo, ts.reservations, ts.qrcodes, ts.settings, ts.allocator, nil, ts.events, "https://pay.example.com/")
	ts.push = NewPaymentPushService(ts.orderRepo, ts.allocator, ts.settings, ts.events)
	ts.monitor = NewMonitorService(ts.settings, repository.NewStatsRepository(db), 180*time.Second)
	ts.auth = NewAuthService(cfg, ts.settings)
	return ts
}

func (ts *testServices) setSetting(t *testing.T, key, value string) {
	t.Helper()
	if err := ts.settingRepo.Upsert(key, value); err != nil {
		t.Fatalf("upsert setting %s failed: %v", key, err)
	}
}

func signedCreateInput(payID, payType, price string) CreateOrderInput {
	return CreateOrderInput{
		PayID: payID,
		Type:  payType,
		Price: price,
		Sign:  CreateOrderSign(payID, "", payType, price, testSigningKey),
	}
}
