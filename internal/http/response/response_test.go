package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "rid-1")

	Error(c, CodeBadRequest, "参数不完整")

	var body struct {
		Code int               `json:"code"`
		Msg  string            `json:"msg"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if w.Code != 200 || body.Code != CodeBadRequest || body.Msg != "参数不完整" {
		t.Fatalf("unexpected response: status=%d body=%s", w.Code, w.Body.String())
	}
	if body.Data["request_id"] != "rid-1" {
		t.Fatalf("expected request id in data, got %v", body.Data)
	}
}

func TestLegacyEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	LegacyError(c, "签名错误")

	if w.Body.String() != `{"code":-1,"msg":"签名错误"}` {
		t.Fatalf("unexpected legacy body: %s", w.Body.String())
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	if p.TotalPage != 3 || p.Page != 2 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}
