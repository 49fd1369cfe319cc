package models

import "github.com/golang-jwt/jwt/v5"

// UserRole gates the dashboard views.
type UserRole string

const (
	RoleUnverified UserRole = "unverified"
	RoleVerified   UserRole = "verified"
	RoleAdmin      UserRole = "admin"
)

// Principal is the resolved caller behind a session cookie.
type Principal struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// IsAdmin reports whether the caller has administrative access.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// SessionClaims is the payload of a locally verifiable session cookie.
type SessionClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserInfo is the backend's answer to the session probe.
type UserInfo struct {
	ID         string `json:"id" mapstructure:"id"`
	Email      string `json:"email" mapstructure:"email"`
	Role       string `json:"role" mapstructure:"role"`
	IsAdmin    bool   `json:"is_admin" mapstructure:"is_admin"`
	IsVerified bool   `json:"is_verified" mapstructure:"is_verified"`
}
