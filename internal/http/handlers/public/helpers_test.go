package public

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/provider"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const handlerTestKey = "handler-key"

// flushRecorder 记录响应是否已经 flush
type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed atomic.Bool
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (r *flushRecorder) Flush() {
	r.flushed.Store(true)
	r.ResponseRecorder.Flush()
}

type notifyCall struct {
	method        string
	url           string
	flushedBefore bool
}

// orderingDoer 记录商户通知，并检查通知发出时监控端响应是否已 flush
type orderingDoer struct {
	mu       sync.Mutex
	recorder *flushRecorder
	calls    chan notifyCall
}

func (d *orderingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	flushed := d.recorder != nil && d.recorder.flushed.Load()
	d.mu.Unlock()
	d.calls <- notifyCall{method: req.Method, url: req.URL.String(), flushedBefore: flushed}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("success")),
		Header:     make(http.Header),
	}, nil
}

func (d *orderingDoer) watch(recorder *flushRecorder) {
	d.mu.Lock()
	d.recorder = recorder
	d.mu.Unlock()
}

func newHandlerTestContainer(t *testing.T, doer service.HTTPDoer) *provider.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	cfg := config.Default()
	cfg.App.FrontendURL = "https://pay.example.com"
	c := provider.NewContainerWithDB(cfg, db, nil)
	if doer != nil {
		c.NotifyService = service.NewNotifyService(c.OrderRepo, c.SettingService, doer, time.Second, c.OrderEvents)
	}
	if err := c.SettingRepo.UpsertMany(map[string]string{
		constants.SettingKeyUser:      "admin",
		constants.SettingKeySignKey:   handlerTestKey,
		constants.SettingKeyClose:     "5",
		constants.SettingKeyPayQf:     constants.PriceAdjustIncrement,
		constants.SettingKeyMonitor:   constants.MonitorStateOnline,
		constants.SettingKeyWxpay:     "wxp://catch-all",
		constants.SettingKeyZfbpay:    "https://qr.alipay.com/catch-all",
		constants.SettingKeyNotifyURL: "https://merchant.example.com/notify",
		constants.SettingKeyLastHeart: "0",
		constants.SettingKeyLastPay:   "0",
	}); err != nil {
		t.Fatalf("seed settings failed: %v", err)
	}
	return c
}

func newFormContext(w http.ResponseWriter, method, target, body string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return c
}
