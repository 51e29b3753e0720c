package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Plan         string     `json:"plan" db:"plan"` // free, pro
	ProExpiresAt *time.Time `json:"pro_expires_at,omitempty" db:"pro_expires_at"`
	Confirmed    bool       `json:"confirmed" db:"confirmed"`
	Role         string     `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=120"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpgradeRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro"`
}

// EntitlementSnapshot is the computed permission view served to the
// dashboard: plan after local expiry projection, current usage and the
// gating verdict. Stale copies of it are only ever replaced by a fresh
// authoritative read, never patched in place.
type EntitlementSnapshot struct {
	Plan          string     `json:"plan"`
	ProExpiresAt  *time.Time `json:"pro_expires_at,omitempty"`
	ArtifactsUsed int        `json:"artifacts_used"`
	ArtifactLimit int        `json:"artifact_limit"` // 0 = unlimited
	CanGenerate   bool       `json:"can_generate"`
	Stale         bool       `json:"stale"` // served from cache after a store failure
	RefreshedAt   time.Time  `json:"refreshed_at"`
}
