package service

import (
	"strings"
	"sync"
	"time"

	"github.com/vmq-next/internal/config"

	"github.com/mojocn/base64Captcha"
)

const captchaSource = "0123456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// CaptchaChallenge 图片验证码挑战
type CaptchaChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 后台登录图片验证码
type CaptchaService struct {
	cfg config.CaptchaConfig

	once  sync.Once
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{cfg: cfg}
}

// Enabled 是否启用登录验证码
func (s *CaptchaService) Enabled() bool {
	return s != nil && s.cfg.Enabled
}

func (s *CaptchaService) ensureStore() base64Captcha.Store {
	s.once.Do(func() {
		maxStore := s.cfg.MaxStore
		if maxStore <= 0 {
			maxStore = 10240
		}
		expire := s.cfg.ExpireSeconds
		if expire <= 0 {
			expire = 300
		}
		s.store = base64Captcha.NewMemoryStore(maxStore, time.Duration(expire)*time.Second)
	})
	return s.store
}

// Generate 生成图片验证码
func (s *CaptchaService) Generate() (*CaptchaChallenge, error) {
	if !s.Enabled() {
		return nil, ErrCaptchaDisabled
	}
	driver := base64Captcha.NewDriverString(
		positiveOr(s.cfg.Height, 80),
		positiveOr(s.cfg.Width, 240),
		0,
		base64Captcha.OptionShowHollowLine,
		positiveOr(s.cfg.Length, 4),
		captchaSource,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.ensureStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 校验验证码，忽略大小写，未启用时直接通过，校验后验证码作废
func (s *CaptchaService) Verify(id, code string) error {
	if !s.Enabled() {
		return nil
	}
	id = strings.TrimSpace(id)
	code = strings.TrimSpace(code)
	if id == "" || code == "" {
		return ErrCaptchaRequired
	}
	answer := s.ensureStore().Get(id, true)
	if answer == "" || !strings.EqualFold(answer, code) {
		return ErrCaptchaInvalid
	}
	return nil
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
