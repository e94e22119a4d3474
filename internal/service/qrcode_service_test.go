package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/repository"
)

func TestQrCodeLifecycle(t *testing.T) {
	ts := newTestServices(t, "qrcode_lifecycle")
	svc := NewQrCodeService(ts.qrcodes)

	code, err := svc.Add(CreateQrCodeInput{Type: "1", Price: "12.5", PayURL: "wxp://fixed-12.50"})
	if err != nil {
		t.Fatalf("add qrcode failed: %v", err)
	}
	if code.Price.String() != "12.50" || !code.Enabled() {
		t.Fatalf("unexpected qrcode: %+v", code)
	}
	if err := svc.SetState(code.ID, constants.QrCodeStateDisabled); err != nil {
		t.Fatalf("disable qrcode failed: %v", err)
	}
	if err := svc.SetState(code.ID, 9); !errors.Is(err, ErrQrCodeInvalid) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	items, total, err := svc.List(repository.QrCodeListFilter{Page: 1, PageSize: 20, Type: constants.PayTypeWechat})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("unexpected list: total=%d err=%v", total, err)
	}
	if items[0].State != constants.QrCodeStateDisabled {
		t.Fatalf("expected disabled state")
	}

	// 停用的收款码不参与匹配
	result, err := ts.orders.CreateOrder(signedCreateInput("p1", "1", "12.50"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.IsAuto != 1 {
		t.Fatalf("disabled qrcode must not be used")
	}

	if err := svc.Delete(code.ID); err != nil {
		t.Fatalf("delete qrcode failed: %v", err)
	}
	if err := svc.Delete(code.ID); !errors.Is(err, ErrQrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.SetState(code.ID, constants.QrCodeStateEnabled); !errors.Is(err, ErrQrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQrCodeAddValidation(t *testing.T) {
	ts := newTestServices(t, "qrcode_validation")
	svc := NewQrCodeService(ts.qrcodes)
	cases := []struct {
		input CreateQrCodeInput
		want  error
	}{
		{input: CreateQrCodeInput{Type: "5", Price: "1", PayURL: "x"}, want: ErrPaymentTypeInvalid},
		{input: CreateQrCodeInput{Type: "1", Price: "0", PayURL: "x"}, want: ErrPriceInvalid},
		{input: CreateQrCodeInput{Type: "1", Price: "1", PayURL: ""}, want: ErrQrCodeInvalid},
		{input: CreateQrCodeInput{Type: "1", Price: "1", PayURL: "微信"}, want: ErrQrCodeInvalid},
	}
	for _, tc := range cases {
		if _, err := svc.Add(tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v for %+v, got %v", tc.want, tc.input, err)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("wxp://f2f0abc", 0)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected png header")
	}
	if _, err := RenderPNG("  ", 256); !errors.Is(err, ErrQrCodeInvalid) {
		t.Fatalf("expected invalid content, got %v", err)
	}
}
