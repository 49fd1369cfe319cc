package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

type userInfoStub struct {
	info  *models.UserInfo
	err   error
	calls int
}

func (s *userInfoStub) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	s.calls++
	return s.info, s.err
}

func TestAuthServiceTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, AuthConfig{JWTSecret: "secret", Issuer: "scheduler"})

	token, expiresAt, err := svc.issueToken(models.Principal{UserID: "u-1", Email: "a@b.c", Role: models.RoleVerified}, time.Hour)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	principal, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", principal.UserID)
	assert.Equal(t, models.RoleVerified, principal.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, AuthConfig{JWTSecret: "secret"})
	foreignSvc := NewAuthService(nil, nil, nil, AuthConfig{JWTSecret: "other"})

	foreign, _, err := foreignSvc.issueToken(models.Principal{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), foreign)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	expired, _, err := svc.issueToken(models.Principal{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), expired)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.SessionClaims{UserID: "u-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), unsigned)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceIntrospectsAndCaches(t *testing.T) {
	source := &userInfoStub{info: &models.UserInfo{ID: "u-7", Email: "x@y.z", IsVerified: true}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewAuthService(source, cache, nil, AuthConfig{})

	first, err := svc.Resolve(context.Background(), "cookie-value")
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), "cookie-value")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, models.RoleVerified, first.Role)
}

func TestAuthServiceIntrospectionErrors(t *testing.T) {
	source := &userInfoStub{err: &backend.StatusError{Op: "user_info", StatusCode: 401}}
	svc := NewAuthService(source, nil, nil, AuthConfig{})
	_, err := svc.Resolve(context.Background(), "cookie")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	source.err = &backend.TransportError{Op: "user_info", Err: errors.New("refused")}
	_, err = svc.Resolve(context.Background(), "cookie")
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))

	source.err = nil
	source.info = &models.UserInfo{}
	_, err = svc.Resolve(context.Background(), "cookie")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestRoleFromUserInfo(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, RoleFromUserInfo(models.UserInfo{IsAdmin: true, IsVerified: true}))
	assert.Equal(t, models.RoleAdmin, RoleFromUserInfo(models.UserInfo{Role: "admin"}))
	assert.Equal(t, models.RoleVerified, RoleFromUserInfo(models.UserInfo{IsVerified: true}))
	assert.Equal(t, models.RoleUnverified, RoleFromUserInfo(models.UserInfo{}))
}
