package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/internal/extract"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

const (
	pendingTTL    = 30 * time.Minute
	replayTimeout = 5 * time.Minute
	defaultName   = "Nova Criação"
)

// GenerationService runs the generation pipeline: gate, call the model,
// extract, persist. It also owns the two pieces of per-account
// coordination state: the single-flight guard and the pending-request
// slot used across the authentication hand-off.
type GenerationService struct {
	config      *config.Config
	logger      *logrus.Logger
	generator   Generator
	entitlement *EntitlementService
	artifacts   *ArtifactService
	redisClient *redis.Client
	events      EventPublisher

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
	// latest sequence issued per account; a completion only moves the
	// active pointer while its sequence is still the newest.
	latestSeq map[uuid.UUID]uint64
	nextSeq   uint64

	generationsTotal   *prometheus.CounterVec
	generationDuration prometheus.Histogram
	extractionFailures prometheus.Counter
}

func NewGenerationService(cfg *config.Config, logger *logrus.Logger, generator Generator, entitlement *EntitlementService, artifacts *ArtifactService, redisClient *redis.Client, events EventPublisher) *GenerationService {
	s := &GenerationService{
		config:      cfg,
		logger:      logger,
		generator:   generator,
		entitlement: entitlement,
		artifacts:   artifacts,
		redisClient: redisClient,
		events:      events,
		inFlight:    make(map[uuid.UUID]bool),
		latestSeq:   make(map[uuid.UUID]uint64),
	}

	s.generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generations_total",
		Help: "Generation attempts by outcome",
	}, []string{"outcome"})

	s.generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "End-to-end generation latency",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	s.extractionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_failures_total",
		Help: "Model responses with no recoverable HTML document",
	})

	for _, c := range []prometheus.Collector{s.generationsTotal, s.generationDuration, s.extractionFailures} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register generation metric")
			}
		}
	}

	return s
}

// IsGenerating reports whether the account has a generation outstanding.
func (s *GenerationService) IsGenerating(accountID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[accountID]
}

func (s *GenerationService) begin(accountID uuid.UUID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[accountID] {
		return 0, models.ErrGenerationInFlight
	}
	s.inFlight[accountID] = true
	s.nextSeq++
	s.latestSeq[accountID] = s.nextSeq
	return s.nextSeq, nil
}

func (s *GenerationService) end(accountID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, accountID)
}

func (s *GenerationService) isLatest(accountID uuid.UUID, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestSeq[accountID] == seq
}

func validFileType(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.HasPrefix(mt, "image/") || mt == "application/pdf"
}

// Generate runs one generation attempt end to end. No artifact row is
// written unless both the model call and the persistence call succeed;
// a persistence failure still hands the document back to the caller,
// flagged unsaved.
func (s *GenerationService) Generate(ctx context.Context, account *models.Account, req models.GenerationRequest) (*models.GenerationResult, error) {
	if req.FileBase64 != "" && !validFileType(req.MimeType) {
		return nil, models.ErrUnsupportedFileType
	}

	seq, err := s.begin(account.ID)
	if err != nil {
		return nil, err
	}
	defer s.end(account.ID)

	allowed, snapshot, err := s.entitlement.CanGenerate(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if snapshot != nil && snapshot.Plan == models.PlanFree {
			return nil, models.ErrArtifactLimitReached
		}
		return nil, models.ErrEntitlementUnavailable
	}

	prompt := norm.NFC.String(req.Prompt)
	started := time.Now()

	raw, err := s.generator.Generate(ctx, prompt, req.FileBase64, req.MimeType)
	if err != nil {
		s.generationsTotal.WithLabelValues("endpoint_error").Inc()
		s.events.PublishUsageEvent("generation.failed", account.ID.String(), map[string]interface{}{
			"outcome": "endpoint_error",
			"plan":    snapshot.Plan,
		})
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	html, extractErr := extract.Document(raw)
	if extractErr != nil {
		s.extractionFailures.Inc()
		s.generationsTotal.WithLabelValues("empty_response").Inc()
		s.events.PublishUsageEvent("generation.failed", account.ID.String(), map[string]interface{}{
			"outcome": "empty_response",
			"plan":    snapshot.Plan,
		})
		return nil, models.ErrEmptyGeneration
	}

	duration := time.Since(started)
	s.generationDuration.Observe(duration.Seconds())

	artifact := &models.Artifact{
		ID:        uuid.New(),
		OwnerID:   account.ID,
		Name:      artifactName(req),
		HTML:      html,
		CreatedAt: time.Now(),
	}
	if req.FileBase64 != "" && req.MimeType != "" {
		uri := fmt.Sprintf("data:%s;base64,%s", req.MimeType, req.FileBase64)
		artifact.OriginalInput = &uri
	}

	if err := s.artifacts.Insert(ctx, account, artifact); err != nil {
		if errors.Is(err, models.ErrArtifactLimitReached) {
			// A concurrent insert in another process won the last free
			// slot between the gate and the write.
			return nil, err
		}
		s.generationsTotal.WithLabelValues("not_saved").Inc()
		s.events.PublishUsageEvent("generation.completed", account.ID.String(), map[string]interface{}{
			"outcome":          "not_saved",
			"plan":             snapshot.Plan,
			"duration_seconds": duration.Seconds(),
		})
		s.logger.WithError(err).WithField("account_id", account.ID).Error("Generated document could not be persisted")
		// The generation itself succeeded; hand the document back
		// without claiming it was saved.
		return &models.GenerationResult{HTML: html, Saved: false, Duration: duration}, models.ErrArtifactNotSaved
	}

	if s.isLatest(account.ID, seq) {
		s.artifacts.SetActive(ctx, account.ID, artifact.ID)
	}

	s.generationsTotal.WithLabelValues("success").Inc()
	s.events.PublishUsageEvent("generation.completed", account.ID.String(), map[string]interface{}{
		"artifact_id":      artifact.ID.String(),
		"outcome":          "success",
		"plan":             snapshot.Plan,
		"duration_seconds": duration.Seconds(),
	})

	s.logger.WithFields(logrus.Fields{
		"account_id":  account.ID,
		"artifact_id": artifact.ID,
		"duration":    duration,
	}).Info("Generation completed")

	return &models.GenerationResult{Artifact: artifact, HTML: html, Saved: true, Duration: duration}, nil
}

func artifactName(req models.GenerationRequest) string {
	if req.FileName != "" {
		return norm.NFC.String(req.FileName)
	}
	return defaultName
}

// HoldPending captures a generation request that arrived before
// authentication. A second request while one is held replaces it; the
// slot never queues more than one.
func (s *GenerationService) HoldPending(ctx context.Context, sessionID string, req models.GenerationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode pending request: %w", err)
	}

	if err := s.redisClient.Set(ctx, pendingKey(sessionID), data, pendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to hold pending request: %w", err)
	}

	s.logger.WithField("session_id", sessionID).Info("Generation request held for authentication")
	return nil
}

// takePending consumes the held request atomically, so two concurrent
// authentications cannot both replay it.
func (s *GenerationService) takePending(ctx context.Context, sessionID string) (*models.GenerationRequest, bool) {
	data, err := s.redisClient.GetDel(ctx, pendingKey(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}

	var req models.GenerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false
	}
	return &req, true
}

// ReplayPending replays a held request exactly once after a successful
// authentication. The replay runs in the background; its result lands in
// the history like any other generation.
func (s *GenerationService) ReplayPending(sessionID string, account *models.Account) bool {
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)

	req, ok := s.takePending(ctx, sessionID)
	if !ok || !req.HasInput() {
		cancel()
		return false
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"session_id": sessionID,
	}).Info("Replaying held generation request")

	go func() {
		defer cancel()
		if _, err := s.Generate(ctx, account, *req); err != nil {
			s.logger.WithError(err).WithField("account_id", account.ID).Warn("Replayed generation failed")
		}
	}()

	return true
}

// DiscardPending drops a held request without replaying it.
func (s *GenerationService) DiscardPending(ctx context.Context, sessionID string) {
	if err := s.redisClient.Del(ctx, pendingKey(sessionID)).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to discard pending request")
	}
}

// Status reports the in-flight flag and the active artifact pointer.
func (s *GenerationService) Status(ctx context.Context, accountID uuid.UUID) models.GenerationStatus {
	return models.GenerationStatus{
		InFlight: s.IsGenerating(accountID),
		ActiveID: s.artifacts.ActiveID(ctx, accountID),
	}
}
