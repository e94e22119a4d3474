package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/repository"

	"github.com/asaskevich/govalidator"
	"github.com/skip2/go-qrcode"
)

const (
	qrImageDefaultSize = 256
	qrImageMaxSize     = 1024
	qrContentMaxLength = 2048
)

// QrCodeService 固定金额收款码管理
type QrCodeService struct {
	repo repository.QrCodeRepository
}

// NewQrCodeService 创建收款码服务
func NewQrCodeService(repo repository.QrCodeRepository) *QrCodeService {
	return &QrCodeService{repo: repo}
}

// CreateQrCodeInput 新增收款码输入
type CreateQrCodeInput struct {
	Type   string
	Price  string
	PayURL string
}

// List 收款码列表
func (s *QrCodeService) List(filter repository.QrCodeListFilter) ([]models.QrCode, int64, error) {
	return s.repo.List(filter)
}

// Add 新增固定金额收款码
func (s *QrCodeService) Add(input CreateQrCodeInput) (*models.QrCode, error) {
	payType, err := parsePayType(input.Type)
	if err != nil {
		return nil, err
	}
	price, err := models.ParseMoney(input.Price)
	if err != nil || !price.IsPositive() {
		return nil, ErrPriceInvalid
	}
	payURL := strings.TrimSpace(input.PayURL)
	if payURL == "" || len(payURL) > qrContentMaxLength || !govalidator.IsPrintableASCII(payURL) {
		return nil, ErrQrCodeInvalid
	}
	code := &models.QrCode{
		Type:      payType,
		PayURL:    payURL,
		Price:     price,
		State:     constants.QrCodeStateEnabled,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(code); err != nil {
		return nil, err
	}
	logger.Infow("qrcode_created", "id", code.ID, "type", payType, "price", price.String())
	return code, nil
}

// Delete 删除收款码
func (s *QrCodeService) Delete(id uint) error {
	rows, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrQrCodeNotFound
	}
	return nil
}

// SetState 启用或停用收款码
func (s *QrCodeService) SetState(id uint, state int) error {
	if state != constants.QrCodeStateEnabled && state != constants.QrCodeStateDisabled {
		return fmt.Errorf("%w: state", ErrQrCodeInvalid)
	}
	updated, err := s.repo.UpdateState(id, state)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	// 部分驱动在值未变化时返回 0 行
	code, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if code == nil {
		return ErrQrCodeNotFound
	}
	return nil
}

// RenderPNG 将任意文本编码为二维码 PNG
func RenderPNG(content string, size int) ([]byte, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > qrContentMaxLength {
		return nil, ErrQrCodeInvalid
	}
	if size <= 0 {
		size = qrImageDefaultSize
	}
	if size > qrImageMaxSize {
		size = qrImageMaxSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
