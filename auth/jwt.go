package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig JWT 配置
type TokenConfig struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	ExpiresIn time.Duration `yaml:"expires_in"`
}

// Claims JWT 声明
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Token 登录结果
type Token struct {
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expiresIn"`
	Roles     []string `json:"roles"`
}

// TokenService HS256 令牌签发与校验
type TokenService struct {
	secret    []byte
	issuer    string
	expiresIn time.Duration
	now       func() time.Time
}

// NewTokenService 创建令牌服务
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if config.ExpiresIn <= 0 {
		config.ExpiresIn = time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "pflanzen"
	}
	return &TokenService{
		secret:    []byte(config.Secret),
		issuer:    config.Issuer,
		expiresIn: config.ExpiresIn,
		now:       time.Now,
	}, nil
}

// Issue 为用户签发访问令牌
func (s *TokenService) Issue(u *User) (*Token, error) {
	now := s.now()
	claims := &Claims{
		Username: u.Username,
		Roles:    u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Token: signed, ExpiresIn: int64(s.expiresIn.Seconds()), Roles: u.Roles}, nil
}

// Verify 校验签名、签发者与有效期
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, &TokenInvalid{Reason: err.Error()}
	}
	return claims, nil
}
