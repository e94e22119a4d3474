package repository

import (
	"testing"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/models"
)

func TestQrCodeRepositoryFindEnabledByAmount(t *testing.T) {
	repo := NewQrCodeRepository(setupRepositoryTestDB(t, "qrcode_find"))

	disabled := &models.QrCode{Type: constants.PayTypeWechat, PayURL: "wxp://disabled", Price: models.NewMoneyFromCents(500), State: constants.QrCodeStateDisabled}
	enabled := &models.QrCode{Type: constants.PayTypeWechat, PayURL: "wxp://enabled", Price: models.NewMoneyFromCents(500)}
	alipay := &models.QrCode{Type: constants.PayTypeAlipay, PayURL: "https://qr.alipay.com/x", Price: models.NewMoneyFromCents(500)}
	for _, code := range []*models.QrCode{disabled, enabled, alipay} {
		if err := repo.Create(code); err != nil {
			t.Fatalf("create qrcode failed: %v", err)
		}
	}

	found, err := repo.FindEnabledByAmount(constants.PayTypeWechat, models.NewMoneyFromCents(500))
	if err != nil {
		t.Fatalf("find qrcode failed: %v", err)
	}
	if found == nil || found.PayURL != "wxp://enabled" {
		t.Fatalf("enabled wechat code expected, got %+v", found)
	}
	missing, err := repo.FindEnabledByAmount(constants.PayTypeWechat, models.NewMoneyFromCents(501))
	if err != nil || missing != nil {
		t.Fatalf("unmatched amount should return nil, got %+v err=%v", missing, err)
	}

	ok, err := repo.UpdateState(enabled.ID, constants.QrCodeStateDisabled)
	if err != nil || !ok {
		t.Fatalf("disable qrcode failed ok=%v err=%v", ok, err)
	}
	found, err = repo.FindEnabledByAmount(constants.PayTypeWechat, models.NewMoneyFromCents(500))
	if err != nil || found != nil {
		t.Fatalf("disabled code should not match, got %+v err=%v", found, err)
	}
}

func TestQrCodeRepositoryListAndDelete(t *testing.T) {
	repo := NewQrCodeRepository(setupRepositoryTestDB(t, "qrcode_list"))
	for i := 1; i <= 3; i++ {
		code := &models.QrCode{Type: constants.PayTypeAlipay, PayURL: "https://qr.alipay.com/x", Price: models.NewMoneyFromCents(int64(i * 100))}
		if err := repo.Create(code); err != nil {
			t.Fatalf("create qrcode failed: %v", err)
		}
	}
	if err := repo.Create(&models.QrCode{Type: constants.PayTypeWechat, PayURL: "wxp://x", Price: models.NewMoneyFromCents(100)}); err != nil {
		t.Fatalf("create qrcode failed: %v", err)
	}

	codes, total, err := repo.List(QrCodeListFilter{Page: 1, PageSize: 2, Type: constants.PayTypeAlipay})
	if err != nil {
		t.Fatalf("list qrcode failed: %v", err)
	}
	if total != 3 || len(codes) != 2 {
		t.Fatalf("list want total=3 len=2 got total=%d len=%d", total, len(codes))
	}
	if codes[0].ID < codes[1].ID {
		t.Fatalf("list should be ordered by id desc")
	}

	affected, err := repo.Delete(codes[0].ID)
	if err != nil || affected != 1 {
		t.Fatalf("delete want 1 row got %d err=%v", affected, err)
	}
	affected, err = repo.Delete(codes[0].ID)
	if err != nil || affected != 0 {
		t.Fatalf("second delete want 0 rows got %d err=%v", affected, err)
	}
	if got, err := repo.GetByID(codes[0].ID); err != nil || got != nil {
		t.Fatalf("deleted code should be gone, got %+v err=%v", got, err)
	}
}
