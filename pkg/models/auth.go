package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Plan   string    `json:"plan"` // free, pro
	Role   string    `json:"role"` // user, admin
	jwt.RegisteredClaims
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Account   `json:"account"`
	// Replayed reports whether a generation request held before
	// authentication was picked up and started by this sign-in.
	Replayed bool `json:"replayed,omitempty"`
}

type SessionResponse struct {
	Account     Account             `json:"account"`
	Entitlement EntitlementSnapshot `json:"entitlement"`
}

type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}
