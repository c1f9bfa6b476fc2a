package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	// Logout 注销 Access Token 的 jti 直至其过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Me(ctx context.Context, actor model.Actor) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, actor model.Actor, req *dto.ChangePasswordRequest) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByUsername(ctx, req.Username)
	if err != nil {
		if err = notFound(err, ErrInvalidCredentials); err == ErrInvalidCredentials {
			return nil, err
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrTokenInvalid
	}
	if s.rdb != nil {
		revoked, err := s.rdb.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("查询已注销令牌失败", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenInvalid
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, notFound(err, ErrTokenInvalid)
	}

	// 旧 Refresh Token 作废
	if claims.ExpiresAt != nil {
		if err := s.Logout(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.Warn("作废旧 RefreshToken 失败", zap.Error(err))
		}
	}
	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.RevokeToken(ctx, jti, ttl)
}

func (s *authService) Me(ctx context.Context, actor model.Actor) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, actor model.Actor, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, actor.UserID)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.User.UpdatePassword(ctx, user.ID, string(hash))
}

// issue 生成 Token 对并构造响应
func (s *authService) issue(user *model.User) (*dto.TokenResponse, error) {
	sub := jwt.Subject{UserID: user.ID, Name: user.Name, Role: string(user.Role)}
	if user.TeachingOfficeID != nil {
		sub.TeachingOfficeID = *user.TeachingOfficeID
	}
	if user.CollegeID != nil {
		sub.CollegeID = *user.CollegeID
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(sub)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(sub)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Role:         string(user.Role),
		Capabilities: user.Role.Capabilities().Names(),
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	if user.TeachingOffice != nil {
		resp.TeachingOffice = &dto.TeachingOfficeResponse{
			ID:   user.TeachingOffice.ID,
			Name: user.TeachingOffice.Name,
			Code: user.TeachingOffice.Code,
		}
	}
	return resp
}
