package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/internal/validation"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

const artifactCacheTTL = 24 * time.Hour

// ArtifactService owns the persisted history: insert, list newest-first,
// delete by id, plus the import/export surface. The free-plan cap is
// enforced at insert so imported artifacts count against it the same way
// generated ones do.
type ArtifactService struct {
	config          *config.Config
	logger          *logrus.Logger
	db              DatabaseQuerier
	redisClient     *redis.Client
	importValidator *validation.ImportValidator
	events          EventPublisher
}

func NewArtifactService(cfg *config.Config, logger *logrus.Logger, db DatabaseQuerier, redisClient *redis.Client, events EventPublisher) (*ArtifactService, error) {
	importValidator, err := validation.NewImportValidator()
	if err != nil {
		return nil, err
	}

	return &ArtifactService{
		config:          cfg,
		logger:          logger,
		db:              db,
		redisClient:     redisClient,
		importValidator: importValidator,
		events:          events,
	}, nil
}

// Insert persists a new artifact. For free accounts the cap check runs
// inside the insert statement itself, so a concurrent import or
// generation in another process cannot race the count past the limit.
func (s *ArtifactService) Insert(ctx context.Context, account *models.Account, artifact *models.Artifact) error {
	artifact.Name = norm.NFC.String(artifact.Name)

	var err error
	if effectivePlan(account, time.Now()) == models.PlanFree {
		var tag pgconn.CommandTag
		tag, err = s.db.Exec(ctx, `
			INSERT INTO artifacts (id, owner_id, name, html, original_input, created_at)
			SELECT $1, $2, $3, $4, $5, $6
			WHERE (SELECT COUNT(*) FROM artifacts WHERE owner_id = $2) < $7`,
			artifact.ID, artifact.OwnerID, artifact.Name, artifact.HTML,
			artifact.OriginalInput, artifact.CreatedAt, s.config.Plans.FreeArtifactLimit,
		)
		if err == nil && tag.RowsAffected() == 0 {
			return models.ErrArtifactLimitReached
		}
	} else {
		_, err = s.db.Exec(ctx, `
			INSERT INTO artifacts (id, owner_id, name, html, original_input, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			artifact.ID, artifact.OwnerID, artifact.Name, artifact.HTML,
			artifact.OriginalInput, artifact.CreatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}

	s.refreshCache(ctx, artifact.OwnerID)
	s.events.PublishUsageEvent("artifact.created", artifact.OwnerID.String(), map[string]interface{}{
		"artifact_id": artifact.ID.String(),
	})

	s.logger.WithFields(logrus.Fields{
		"artifact_id": artifact.ID,
		"owner_id":    artifact.OwnerID,
	}).Info("Artifact stored")

	return nil
}

// ListByOwner returns the owner's history newest-first. When the store
// is unreachable the last-known-good cached copy is served instead:
// reads fail open, a transient outage never blanks the history.
func (s *ArtifactService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Artifact, bool, error) {
	artifacts, err := s.listFromStore(ctx, ownerID)
	if err == nil {
		s.storeCache(ctx, ownerID, artifacts)
		return artifacts, false, nil
	}

	s.logger.WithError(err).WithField("owner_id", ownerID).Warn("Artifact store unreachable, serving cached history")

	cached, cacheErr := s.listFromCache(ctx, ownerID)
	if cacheErr != nil {
		return nil, false, err
	}
	return cached, true, nil
}

func (s *ArtifactService) listFromStore(ctx context.Context, ownerID uuid.UUID) ([]models.Artifact, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, html, original_input, created_at
		FROM artifacts WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []models.Artifact{}
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.HTML, &a.OriginalInput, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}

	return artifacts, nil
}

func (s *ArtifactService) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM artifacts WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return count, nil
}

func (s *ArtifactService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Artifact, error) {
	var a models.Artifact
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, html, original_input, created_at
		FROM artifacts WHERE id = $1 AND owner_id = $2`, id, ownerID).
		Scan(&a.ID, &a.OwnerID, &a.Name, &a.HTML, &a.OriginalInput, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	return &a, nil
}

// Delete removes an artifact by id. A missing id is a no-op; deleting
// the active artifact also clears the active pointer.
func (s *ArtifactService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM artifacts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	s.clearActiveIfMatches(ctx, ownerID, id)
	s.refreshCache(ctx, ownerID)
	s.events.PublishUsageEvent("artifact.deleted", ownerID.String(), map[string]interface{}{
		"artifact_id": id.String(),
	})

	return nil
}

// Export produces the downloadable JSON document for one artifact.
func (s *ArtifactService) Export(ctx context.Context, ownerID, id uuid.UUID) (*models.ArtifactExport, error) {
	artifact, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return &models.ArtifactExport{
		ID:            artifact.ID.String(),
		Name:          artifact.Name,
		HTML:          artifact.HTML,
		OriginalInput: artifact.OriginalInput,
		Timestamp:     artifact.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Import validates a raw export document and, only on success, stores it
// as a new artifact and makes it active. Validation failure leaves the
// history untouched. Id and timestamp are regenerated.
func (s *ArtifactService) Import(ctx context.Context, account *models.Account, raw []byte) (*models.Artifact, error) {
	result := s.importValidator.ValidateArtifactDocument(raw)
	if !result.Valid {
		s.logger.WithField("errors", result.Errors).Warn("Artifact import rejected")
		return nil, models.ErrInvalidImport
	}

	var doc models.ArtifactExport
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, models.ErrInvalidImport
	}

	artifact := &models.Artifact{
		ID:            uuid.New(),
		OwnerID:       account.ID,
		Name:          doc.Name,
		HTML:          doc.HTML,
		OriginalInput: doc.OriginalInput,
		CreatedAt:     time.Now(),
	}

	if err := s.Insert(ctx, account, artifact); err != nil {
		return nil, err
	}

	s.events.PublishUsageEvent("artifact.imported", account.ID.String(), map[string]interface{}{
		"artifact_id": artifact.ID.String(),
	})

	s.SetActive(ctx, account.ID, artifact.ID)
	return artifact, nil
}

// SetActive points the session at an artifact. Guarding against stale
// generation completions is the generation service's job; this is the
// raw pointer write.
func (s *ArtifactService) SetActive(ctx context.Context, ownerID, id uuid.UUID) {
	if err := s.redisClient.Set(ctx, activeArtifactKey(ownerID.String()), id.String(), 0).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to set active artifact pointer")
	}
}

func (s *ArtifactService) ActiveID(ctx context.Context, ownerID uuid.UUID) *uuid.UUID {
	val, err := s.redisClient.Get(ctx, activeArtifactKey(ownerID.String())).Result()
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return nil
	}
	return &id
}

func (s *ArtifactService) clearActiveIfMatches(ctx context.Context, ownerID, id uuid.UUID) {
	active := s.ActiveID(ctx, ownerID)
	if active != nil && *active == id {
		if err := s.redisClient.Del(ctx, activeArtifactKey(ownerID.String())).Err(); err != nil {
			s.logger.WithError(err).Warn("Failed to clear active artifact pointer")
		}
	}
}

// refreshCache rewrites the last-known-good copy after a mutation so the
// fail-open read path never resurrects deleted artifacts.
func (s *ArtifactService) refreshCache(ctx context.Context, ownerID uuid.UUID) {
	artifacts, err := s.listFromStore(ctx, ownerID)
	if err != nil {
		return
	}
	s.storeCache(ctx, ownerID, artifacts)
}

func (s *ArtifactService) storeCache(ctx context.Context, ownerID uuid.UUID, artifacts []models.Artifact) {
	data, err := json.Marshal(artifacts)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, artifactCacheKey(ownerID.String()), data, artifactCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to cache artifact history")
	}
}

func (s *ArtifactService) listFromCache(ctx context.Context, ownerID uuid.UUID) ([]models.Artifact, error) {
	data, err := s.redisClient.Get(ctx, artifactCacheKey(ownerID.String())).Bytes()
	if err != nil {
		return nil, err
	}

	var artifacts []models.Artifact
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}
