package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

func (h *harness) setPassword(u *model.User, password string) {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(h.t, err)
	require.NoError(h.t, h.repo.User.UpdatePassword(h.ctx, u.ID, string(hash)))
}

func TestAuth_LoginAndRefresh(t *testing.T) {
	h := newHarness(t)
	h.setPassword(h.fx.Director, "director@2024")

	resp, err := h.svc.Auth.Login(h.ctx, &dto.LoginRequest{Username: "director", Password: "director@2024"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 15*60, resp.ExpiresIn)
	assert.Equal(t, string(model.RoleTeachingOffice), resp.User.Role)
	assert.Contains(t, resp.User.Capabilities, "submit_evaluation")
	assert.NotContains(t, resp.User.Capabilities, "approve")

	again, err := h.svc.Auth.Refresh(h.ctx, &dto.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)

	// Access Token 不能用于刷新
	_, err = h.svc.Auth.Refresh(h.ctx, &dto.RefreshTokenRequest{RefreshToken: resp.AccessToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = h.svc.Auth.Refresh(h.ctx, &dto.RefreshTokenRequest{RefreshToken: "not-a-token"})
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
}

func TestAuth_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.setPassword(h.fx.Team, "team@2024")

	_, err := h.svc.Auth.Login(h.ctx, &dto.LoginRequest{Username: "team1", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Auth.Login(h.ctx, &dto.LoginRequest{Username: "nobody", Password: "team@2024"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_ChangePassword(t *testing.T) {
	h := newHarness(t)
	h.setPassword(h.fx.Office2, "old-password")
	office := h.actor(h.fx.Office2)

	err := h.svc.Auth.ChangePassword(h.ctx, office, &dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, h.svc.Auth.ChangePassword(h.ctx, office, &dto.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))

	_, err = h.svc.Auth.Login(h.ctx, &dto.LoginRequest{Username: "office", Password: "old-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Auth.Login(h.ctx, &dto.LoginRequest{Username: "office", Password: "new-password"})
	assert.NoError(t, err)

	me, err := h.svc.Auth.Me(h.ctx, office)
	require.NoError(t, err)
	assert.Equal(t, "office", me.Username)
}
