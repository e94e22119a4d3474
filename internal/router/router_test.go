package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
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

const routerTestKey = "router-key"

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupTestRouter(t *testing.T, notifyURL string) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	passHash, err := service.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	if err := c.SettingRepo.UpsertMany(map[string]string{
		constants.SettingKeyUser:      "admin",
		constants.SettingKeyPass:      passHash,
		constants.SettingKeySignKey:   routerTestKey,
		constants.SettingKeyClose:     "5",
		constants.SettingKeyPayQf:     constants.PriceAdjustIncrement,
		constants.SettingKeyMonitor:   constants.MonitorStateOnline,
		constants.SettingKeyWxpay:     "wxp://catch-all",
		constants.SettingKeyZfbpay:    "https://qr.alipay.com/catch-all",
		constants.SettingKeyNotifyURL: notifyURL,
		constants.SettingKeyReturnURL: "https://merchant.example.com/return",
		constants.SettingKeyLastHeart: "0",
		constants.SettingKeyLastPay:   "0",
	}); err != nil {
		t.Fatalf("seed settings failed: %v", err)
	}
	return SetupRouter(cfg, c), c
}

func doForm(r *gin.Engine, method, target string, form url.Values, header map[string]string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope failed: %v body=%s", err, w.Body.String())
	}
	return env
}

func createTestOrder(t *testing.T, r *gin.Engine, payID, payType, price string) string {
	t.Helper()
	form := url.Values{
		"payId": {payID},
		"type":  {payType},
		"price": {price},
		"sign":  {service.CreateOrderSign(payID, "", payType, price, routerTestKey)},
	}
	env := decodeEnvelope(t, doForm(r, http.MethodPost, "/createOrder", form, nil))
	if env.Code != 200 {
		t.Fatalf("create order code want 200 got %d msg=%s", env.Code, env.Msg)
	}
	var data struct {
		OrderID     string `json:"orderId"`
		ReallyPrice string `json:"reallyPrice"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode create data failed: %v", err)
	}
	if data.OrderID == "" {
		t.Fatalf("order id should not be empty")
	}
	return data.OrderID
}

func TestCreateCheckAndPushFlow(t *testing.T) {
	notified := make(chan *http.Request, 1)
	merchant := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		notified <- req
		_, _ = w.Write([]byte("success"))
	}))
	defer merchant.Close()

	r, c := setupTestRouter(t, merchant.URL+"/notify")
	orderID := createTestOrder(t, r, "m-100", "1", "1.00")

	env := decodeEnvelope(t, doForm(r, http.MethodGet, "/api/order/"+orderID+"/check", nil, nil))
	if env.Code != 200 || env.Msg != "订单未支付" {
		t.Fatalf("pending check want 200 订单未支付 got %d %s", env.Code, env.Msg)
	}
	var pending struct {
		State            int   `json:"state"`
		RemainingSeconds int64 `json:"remainingSeconds"`
	}
	if err := json.Unmarshal(env.Data, &pending); err != nil {
		t.Fatalf("decode check data failed: %v", err)
	}
	if pending.State != constants.OrderStatePending || pending.RemainingSeconds <= 0 {
		t.Fatalf("pending check data unexpected: %+v", pending)
	}

	ts := fmt.Sprintf("%d", time.Now().UnixMilli())
	push := url.Values{
		"t":     {ts},
		"type":  {"1"},
		"price": {"1.00"},
		"sign":  {service.PushSign("1", "1.00", ts, routerTestKey)},
	}
	env = decodeEnvelope(t, doForm(r, http.MethodPost, "/api/monitor/push", push, nil))
	if env.Code != 200 || env.Msg != "订单支付成功" {
		t.Fatalf("push want 200 订单支付成功 got %d %s", env.Code, env.Msg)
	}

	select {
	case req := <-notified:
		if req.Method != http.MethodGet {
			t.Fatalf("notify method want GET got %s", req.Method)
		}
		if req.URL.Query().Get("payId") != "m-100" {
			t.Fatalf("notify payId want m-100 got %s", req.URL.RawQuery)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("merchant notify not received")
	}

	env = decodeEnvelope(t, doForm(r, http.MethodGet, "/checkOrder?orderId="+orderID, nil, nil))
	if env.Code != 200 || env.Msg != "支付成功" {
		t.Fatalf("paid check want 200 支付成功 got %d %s", env.Code, env.Msg)
	}
	order, err := c.OrderRepo.GetByOrderID(orderID)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order.State < constants.OrderStatePaid {
		t.Fatalf("order state want paid got %d", order.State)
	}
}

func TestCreateOrderRejectsBadSign(t *testing.T) {
	r, _ := setupTestRouter(t, "")
	form := url.Values{
		"payId": {"m-1"},
		"type":  {"1"},
		"price": {"1.00"},
		"sign":  {"forged"},
	}
	env := decodeEnvelope(t, doForm(r, http.MethodPost, "/api/order/create", form, nil))
	if env.Code != 400 || env.Msg != service.ErrSignatureInvalid.Error() {
		t.Fatalf("bad sign want 400 %s got %d %s", service.ErrSignatureInvalid, env.Code, env.Msg)
	}
}

func TestCreateOrderHTMLRedirect(t *testing.T) {
	r, _ := setupTestRouter(t, "")
	form := url.Values{
		"payId":  {"m-html"},
		"type":   {"2"},
		"price":  {"3.00"},
		"isHtml": {"1"},
		"sign":   {service.CreateOrderSign("m-html", "", "2", "3.00", routerTestKey)},
	}
	w := doForm(r, http.MethodPost, "/createOrder", form, nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("content type want html got %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "https://pay.example.com/#/payment/") {
		t.Fatalf("redirect page should point to payment page: %s", w.Body.String())
	}
}

func TestLegacyMonitorEndpoints(t *testing.T) {
	r, c := setupTestRouter(t, "")
	ts := fmt.Sprintf("%d", time.Now().UnixMilli())

	w := doForm(r, http.MethodPost, "/appHeart", url.Values{"t": {ts}, "sign": {"forged"}}, nil)
	env := decodeEnvelope(t, w)
	if env.Code != -1 || env.Msg != "密钥错误---请检查配置数据！" {
		t.Fatalf("legacy heart reject got %d %s", env.Code, env.Msg)
	}

	w = doForm(r, http.MethodPost, "/appHeart", url.Values{"t": {ts}, "sign": {service.HeartbeatSign(ts, routerTestKey)}}, nil)
	env = decodeEnvelope(t, w)
	if env.Code != 1 {
		t.Fatalf("legacy heart want code 1 got %d %s", env.Code, env.Msg)
	}
	snapshot, err := c.SettingService.MonitorSnapshot()
	if err != nil {
		t.Fatalf("monitor snapshot failed: %v", err)
	}
	if snapshot.LastHeart == 0 {
		t.Fatalf("last heart should be recorded")
	}

	push := url.Values{
		"t":     {ts},
		"type":  {"2"},
		"price": {"8.88"},
		"sign":  {service.PushSign("2", "8.88", ts, routerTestKey)},
	}
	env = decodeEnvelope(t, doForm(r, http.MethodPost, "/appPush", push, nil))
	if env.Code != 1 || env.Msg != "成功" {
		t.Fatalf("legacy unmatched push want 1 成功 got %d %s", env.Code, env.Msg)
	}
}

func TestAdminLoginAndListOrders(t *testing.T) {
	r, _ := setupTestRouter(t, "")
	createTestOrder(t, r, "m-admin", "1", "2.00")

	env := decodeEnvelope(t, doForm(r, http.MethodGet, "/api/admin/orders", nil, nil))
	if env.Code != 401 {
		t.Fatalf("anonymous admin request want 401 got %d", env.Code)
	}

	w := doForm(r, http.MethodPost, "/api/auth/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)
	env = decodeEnvelope(t, w)
	if env.Code != 400 {
		t.Fatalf("wrong password want 400 got %d", env.Code)
	}

	w = doForm(r, http.MethodPost, "/api/auth/login", url.Values{"username": {"admin"}, "password": {"secret"}}, nil)
	env = decodeEnvelope(t, w)
	if env.Code != 200 {
		t.Fatalf("login want 200 got %d %s", env.Code, env.Msg)
	}
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil || login.AccessToken == "" {
		t.Fatalf("login token missing: %v %s", err, string(env.Data))
	}

	w = doForm(r, http.MethodGet, "/api/admin/orders?page=1&limit=10", nil, map[string]string{
		"Authorization": "Bearer " + login.AccessToken,
	})
	var page struct {
		Code       int `json:"code"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page failed: %v", err)
	}
	if page.Code != 200 || page.Pagination.Total != 1 {
		t.Fatalf("list orders want 200/1 got %d/%d body=%s", page.Code, page.Pagination.Total, w.Body.String())
	}

	legacy := service.LegacyToken(routerTestKey)
	env = decodeEnvelope(t, doForm(r, http.MethodGet, "/api/admin/status", nil, map[string]string{"Authorization": legacy}))
	if env.Code != 200 {
		t.Fatalf("legacy token status want 200 got %d %s", env.Code, env.Msg)
	}
}

func TestQrCodePNGEndpoints(t *testing.T) {
	r, _ := setupTestRouter(t, "")
	for _, target := range []string{"/enQrcode?url=wxp%3A%2F%2Fabc", "/api/qrcode/generate?url=wxp%3A%2F%2Fabc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		if w.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s content type want image/png got %s", target, w.Header().Get("Content-Type"))
		}
		if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
			t.Fatalf("%s body is not a png", target)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/enQrcode", nil))
	env := decodeEnvelope(t, w)
	if env.Code != 400 {
		t.Fatalf("empty url want 400 got %d", env.Code)
	}
}
