package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

const entitlementCacheTTL = 24 * time.Hour

// effectivePlan projects an account's plan at a point in time. A pro
// plan whose expiration has passed gates as free; the stored record is
// never mutated by this projection.
func effectivePlan(account *models.Account, now time.Time) string {
	if account.Plan == models.PlanPro {
		if account.ProExpiresAt != nil && account.ProExpiresAt.Before(now) {
			return models.PlanFree
		}
		return models.PlanPro
	}
	return models.PlanFree
}

// EntitlementService gates generation attempts. Every gating decision
// re-reads the authoritative account and usage from the store; the
// cached snapshot exists only for the fail-open read path.
type EntitlementService struct {
	config      *config.Config
	logger      *logrus.Logger
	auth        *AuthService
	artifacts   *ArtifactService
	redisClient *redis.Client
}

func NewEntitlementService(cfg *config.Config, logger *logrus.Logger, auth *AuthService, artifacts *ArtifactService, redisClient *redis.Client) *EntitlementService {
	return &EntitlementService{
		config:      cfg,
		logger:      logger,
		auth:        auth,
		artifacts:   artifacts,
		redisClient: redisClient,
	}
}

// CanGenerate decides whether a new generation is permitted right now.
// Store failures deny: gating fails closed.
func (s *EntitlementService) CanGenerate(ctx context.Context, accountID uuid.UUID) (bool, *models.EntitlementSnapshot, error) {
	snapshot, err := s.refresh(ctx, accountID)
	if err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).Warn("Entitlement check failed, denying generation")
		return false, nil, models.ErrEntitlementUnavailable
	}
	return snapshot.CanGenerate, snapshot, nil
}

// Snapshot serves the current entitlement view. Unlike CanGenerate it
// fails open: when the store is down the last-known-good copy is
// returned, marked stale.
func (s *EntitlementService) Snapshot(ctx context.Context, accountID uuid.UUID) (*models.EntitlementSnapshot, error) {
	snapshot, err := s.refresh(ctx, accountID)
	if err == nil {
		return snapshot, nil
	}

	cached, cacheErr := s.cachedSnapshot(ctx, accountID)
	if cacheErr != nil {
		return nil, err
	}

	cached.Stale = true
	cached.CanGenerate = false // stale state never authorizes a generation
	return cached, nil
}

// refresh pulls the authoritative account and artifact count and
// recomputes the snapshot. The cached copy is only ever overwritten by
// this authoritative read, never patched optimistically.
func (s *EntitlementService) refresh(ctx context.Context, accountID uuid.UUID) (*models.EntitlementSnapshot, error) {
	account, err := s.auth.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	count, err := s.artifacts.CountByOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	plan := effectivePlan(account, now)

	snapshot := &models.EntitlementSnapshot{
		Plan:          plan,
		ProExpiresAt:  account.ProExpiresAt,
		ArtifactsUsed: count,
		RefreshedAt:   now,
	}

	if plan == models.PlanPro {
		snapshot.ArtifactLimit = 0
		snapshot.CanGenerate = true
	} else {
		snapshot.ArtifactLimit = s.config.Plans.FreeArtifactLimit
		snapshot.CanGenerate = count < s.config.Plans.FreeArtifactLimit
	}

	s.storeSnapshot(ctx, accountID, snapshot)
	return snapshot, nil
}

func (s *EntitlementService) storeSnapshot(ctx context.Context, accountID uuid.UUID, snapshot *models.EntitlementSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, entitlementKey(accountID.String()), data, entitlementCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to cache entitlement snapshot")
	}
}

func (s *EntitlementService) cachedSnapshot(ctx context.Context, accountID uuid.UUID) (*models.EntitlementSnapshot, error) {
	data, err := s.redisClient.Get(ctx, entitlementKey(accountID.String())).Bytes()
	if err != nil {
		return nil, err
	}

	var snapshot models.EntitlementSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
