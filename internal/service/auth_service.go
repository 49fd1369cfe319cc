package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

type userInfoSource interface {
	UserInfo(ctx context.Context) (*models.UserInfo, error)
}

// AuthConfig holds session cookie settings.
type AuthConfig struct {
	JWTSecret string
	CacheTTL  time.Duration
	Issuer    string
}

// AuthService resolves a dashboard session cookie to a principal.
type AuthService struct {
	source userInfoSource
	cache  *CacheService
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs the resolver. Without a JWT secret every cookie is checked against the backend.
func NewAuthService(source userInfoSource, cache *CacheService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	return &AuthService{source: source, cache: cache, logger: logger, config: config}
}

// Resolve validates the cookie value. The cookie itself must already be on ctx for backend probes.
func (s *AuthService) Resolve(ctx context.Context, cookie string) (*models.Principal, error) {
	if cookie == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session cookie")
	}
	if s.config.JWTSecret != "" {
		return s.ValidateToken(cookie)
	}
	return s.introspect(ctx, cookie)
}

// ValidateToken parses and validates a locally signed session token.
func (s *AuthService) ValidateToken(tokenString string) (*models.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnauthorized, err, "invalid session")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	role := claims.Role
	if role == "" {
		role = models.RoleUnverified
	}
	return &models.Principal{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// issueToken signs a session token for the principal.
func (s *AuthService) issueToken(principal models.Principal, ttl time.Duration) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "session signing is not configured")
	}
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.SessionClaims{
		UserID: principal.UserID,
		Email:  principal.Email,
		Role:   principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func principalCacheKey(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return "principal:" + hex.EncodeToString(sum[:])
}

func (s *AuthService) introspect(ctx context.Context, cookie string) (*models.Principal, error) {
	principal, _, err := Remember(ctx, s.cache, principalCacheKey(cookie), s.config.CacheTTL, s.probe)
	if err != nil {
		return nil, err
	}
	if principal == nil || principal.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has no user")
	}
	return principal, nil
}

func (s *AuthService) probe(ctx context.Context) (*models.Principal, error) {
	info, err := s.source.UserInfo(ctx)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return nil, appErrors.WrapAs(appErrors.ErrUnauthorized, err, "session rejected")
		}
		s.logger.Warn("session probe failed", zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrUpstream, err, "session probe failed")
	}
	if info.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has no user")
	}
	return &models.Principal{UserID: info.ID, Email: info.Email, Role: RoleFromUserInfo(*info)}, nil
}

// RoleFromUserInfo maps the backend's flags onto a role. Admin wins over verified.
func RoleFromUserInfo(info models.UserInfo) models.UserRole {
	switch {
	case info.IsAdmin || models.UserRole(info.Role) == models.RoleAdmin:
		return models.RoleAdmin
	case info.IsVerified || models.UserRole(info.Role) == models.RoleVerified:
		return models.RoleVerified
	default:
		return models.RoleUnverified
	}
}
