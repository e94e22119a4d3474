package service

import (
	"errors"
	"strings"
	"time"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 后台认证服务
// 签名密钥由配置密钥与当前密码哈希拼接，修改密码后旧令牌全部失效。
type AuthService struct {
	cfg            *config.Config
	settingService *SettingService
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, settingService *SettingService) *AuthService {
	return &AuthService{
		cfg:            cfg,
		settingService: settingService,
	}
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *AuthService) signingSecret(passHash string) []byte {
	return []byte(s.cfg.JWT.SecretKey + passHash)
}

func (s *AuthService) expireHours() int {
	if s.cfg.JWT.ExpireHours <= 0 {
		return 24
	}
	return s.cfg.JWT.ExpireHours
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(username, passHash string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expireHours()) * time.Hour)

	claims := JWTClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingSecret(passHash))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString, passHash string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.signingSecret(passHash), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Login 管理员登录
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	user, passHash, err := s.settingService.AdminCredentials()
	if err != nil {
		return "", time.Time{}, err
	}
	if user == "" || passHash == "" || strings.TrimSpace(username) != user {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(passHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.GenerateJWT(user, passHash)
}

// LegacyToken 旧版管理端令牌 md5("vmqphp_"+key)
func LegacyToken(key string) string {
	return signMD5(constants.LegacyAdminTokenSalt + key)
}

// VerifyToken 校验后台令牌，兼容旧版管理端令牌，返回用户名
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrTokenInvalid
	}
	user, passHash, err := s.settingService.AdminCredentials()
	if err != nil {
		return "", err
	}
	if claims, parseErr := s.ParseJWT(tokenString, passHash); parseErr == nil {
		if claims.Username != user {
			return "", ErrTokenInvalid
		}
		return claims.Username, nil
	}

	key, err := s.settingService.SigningKey()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(key) != "" && MatchAnySign(tokenString, LegacyToken(key)) {
		return user, nil
	}
	return "", ErrTokenInvalid
}
