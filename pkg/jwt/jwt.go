package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

const issuer = "teaching-eval"

// Token 类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Subject Token 所代表的用户身份
type Subject struct {
	UserID           string
	Name             string
	Role             string
	TeachingOfficeID string
	CollegeID        string
}

// Claims 自定义 JWT 声明
type Claims struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name,omitempty"`
	Role             string `json:"role"`
	TeachingOfficeID string `json:"teaching_office_id,omitempty"`
	CollegeID        string `json:"college_id,omitempty"`
	TokenType        string `json:"token_type"` // "access" | "refresh"
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:          []byte(cfg.JWTSecret),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// AccessTokenTTL Access Token 有效期
func (m *Manager) AccessTokenTTL() time.Duration { return m.accessTokenTTL }

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(sub Subject) (string, error) {
	return m.sign(sub, TokenTypeAccess, m.accessTokenTTL)
}

// GenerateRefreshToken 生成 Refresh Token
func (m *Manager) GenerateRefreshToken(sub Subject) (string, error) {
	return m.sign(sub, TokenTypeRefresh, m.refreshTokenTTL)
}

func (m *Manager) sign(sub Subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:           sub.UserID,
		Name:             sub.Name,
		Role:             sub.Role,
		TeachingOfficeID: sub.TeachingOfficeID,
		CollegeID:        sub.CollegeID,
		TokenType:        tokenType,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Subject 从声明还原用户身份
func (c *Claims) Subject() Subject {
	return Subject{
		UserID:           c.UserID,
		Name:             c.Name,
		Role:             c.Role,
		TeachingOfficeID: c.TeachingOfficeID,
		CollegeID:        c.CollegeID,
	}
}
