package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iagoricardo/ainlo-server/pkg/models"
)

type stubGenerator struct {
	output string
	err    error

	calls      int
	lastPrompt string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt, fileBase64, mimeType string) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	return g.output, g.err
}

func newGenerationFixture(t *testing.T, generator *stubGenerator) (pgxmock.PgxPoolIface, *GenerationService, *stubEvents) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	cfg := testConfig()
	logger := testLogger()
	redisClient := testRedis()
	events := &stubEvents{}

	auth := NewAuthService(cfg, logger, mockDB, redisClient, events)
	artifacts, err := NewArtifactService(cfg, logger, mockDB, redisClient, events)
	require.NoError(t, err)
	entitlement := NewEntitlementService(cfg, logger, auth, artifacts, redisClient)

	service := NewGenerationService(cfg, logger, generator, entitlement, artifacts, redisClient, events)
	return mockDB, service, events
}

func TestGenerationService_Generate_Success(t *testing.T) {
	generator := &stubGenerator{output: "```html\n<!DOCTYPE html><html><body>oi</body></html>\n```"}
	mockDB, service, events := newGenerationFixture(t, generator)
	account := freeAccount()

	// Entitlement gate re-reads account and usage; the insert itself
	// re-checks the cap inside the statement.
	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)
	mockDB.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), account.ID, "Nova Criação",
			"<!DOCTYPE html><html><body>oi</body></html>",
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRefreshList(mockDB, account.ID)

	result, err := service.Generate(context.Background(), account, models.GenerationRequest{
		Prompt: "uma página de boas-vindas",
	})

	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, "<!DOCTYPE html><html><body>oi</body></html>", result.HTML)
	require.NotNil(t, result.Artifact)
	assert.Equal(t, "Nova Criação", result.Artifact.Name)
	assert.Len(t, events.byType("generation.completed"), 1)
	assert.False(t, service.IsGenerating(account.ID))
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGenerationService_Generate_LimitReached(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	mockDB, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 3)

	_, err := service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	assert.ErrorIs(t, err, models.ErrArtifactLimitReached)
	// The model is never called for a gated request.
	assert.Zero(t, generator.calls)
}

func TestGenerationService_Generate_GateUnavailableDenies(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	mockDB, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	mockDB.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs(account.ID).
		WillReturnError(errors.New("connection refused"))

	_, err := service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	assert.ErrorIs(t, err, models.ErrEntitlementUnavailable)
	assert.Zero(t, generator.calls)
}

func TestGenerationService_Generate_EndpointError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("quota exceeded")}
	mockDB, service, events := newGenerationFixture(t, generator)
	account := freeAccount()

	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)

	_, err := service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	require.Error(t, err)
	assert.Len(t, events.byType("generation.failed"), 1)
	// No artifact row was attempted.
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGenerationService_Generate_EmptyResponse(t *testing.T) {
	generator := &stubGenerator{output: "desculpe, não consegui gerar"}
	mockDB, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)

	_, err := service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	assert.ErrorIs(t, err, models.ErrEmptyGeneration)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGenerationService_Generate_NotSavedStillReturnsDocument(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	mockDB, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)
	mockDB.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), account.ID, "Nova Criação", "<!DOCTYPE html><html></html>",
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3).
		WillReturnError(errors.New("disk full"))

	result, err := service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	assert.ErrorIs(t, err, models.ErrArtifactNotSaved)
	require.NotNil(t, result)
	assert.False(t, result.Saved)
	assert.Equal(t, "<!DOCTYPE html><html></html>", result.HTML)
}

func TestGenerationService_Generate_SingleFlight(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	_, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	_, err := service.begin(account.ID)
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), account, models.GenerationRequest{Prompt: "oi"})
	assert.ErrorIs(t, err, models.ErrGenerationInFlight)
	assert.Zero(t, generator.calls)

	service.end(account.ID)
	assert.False(t, service.IsGenerating(account.ID))
}

func TestGenerationService_Generate_UnsupportedFileType(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	_, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	_, err := service.Generate(context.Background(), account, models.GenerationRequest{
		FileBase64: "AAAA",
		MimeType:   "application/zip",
	})
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)
	// The single-flight slot is not consumed by a rejected request.
	assert.False(t, service.IsGenerating(account.ID))
}

func TestGenerationService_Generate_NormalizesPrompt(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	mockDB, service, _ := newGenerationFixture(t, generator)
	account := freeAccount()

	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)
	mockDB.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), account.ID, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRefreshList(mockDB, account.ID)

	// "café" with a combining acute accent normalizes to the composed form.
	_, err := service.Generate(context.Background(), account, models.GenerationRequest{
		Prompt: "café",
	})
	require.NoError(t, err)
	assert.Equal(t, "café", generator.lastPrompt)
}

func TestValidFileType(t *testing.T) {
	assert.True(t, validFileType("image/png"))
	assert.True(t, validFileType("image/jpeg"))
	assert.True(t, validFileType("IMAGE/PNG"))
	assert.True(t, validFileType("application/pdf"))
	assert.False(t, validFileType("application/zip"))
	assert.False(t, validFileType("text/html"))
	assert.False(t, validFileType(""))
}

func TestGenerationService_ReplayPending_NothingHeld(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	_, service, _ := newGenerationFixture(t, generator)

	replayed := service.ReplayPending("session-"+uuid.NewString(), freeAccount())
	assert.False(t, replayed)
	assert.Zero(t, generator.calls)
}

func TestGenerationService_ReplayPending_ReplaysExactlyOnce(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html><body>replay</body></html>"}
	mockDB, service, events := newGenerationFixture(t, generator)
	account := freeAccount()
	ctx := context.Background()

	if err := service.redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	sessionID := "session-" + uuid.NewString()

	// Holding twice keeps only the latest request.
	require.NoError(t, service.HoldPending(ctx, sessionID, models.GenerationRequest{Prompt: "primeira"}))
	require.NoError(t, service.HoldPending(ctx, sessionID, models.GenerationRequest{Prompt: "segunda"}))

	// The background replay runs the full pipeline once.
	expectAccountRead(mockDB, account.ID, models.PlanFree, nil)
	expectArtifactCount(mockDB, account.ID, 0)
	mockDB.ExpectExec("INSERT INTO artifacts").
		WithArgs(pgxmock.AnyArg(), account.ID, "Nova Criação",
			"<!DOCTYPE html><html><body>replay</body></html>",
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRefreshList(mockDB, account.ID)

	assert.True(t, service.ReplayPending(sessionID, account))

	require.Eventually(t, func() bool {
		return len(events.byType("generation.completed")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, "segunda", generator.lastPrompt)

	// The slot was consumed; a second authentication finds nothing.
	assert.False(t, service.ReplayPending(sessionID, account))
	assert.Equal(t, 1, generator.calls)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGenerationService_DiscardPendingDropsHeldRequest(t *testing.T) {
	generator := &stubGenerator{output: "<!DOCTYPE html><html></html>"}
	_, service, _ := newGenerationFixture(t, generator)
	ctx := context.Background()

	if err := service.redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	sessionID := "session-" + uuid.NewString()
	require.NoError(t, service.HoldPending(ctx, sessionID, models.GenerationRequest{Prompt: "segura"}))

	service.DiscardPending(ctx, sessionID)

	assert.False(t, service.ReplayPending(sessionID, freeAccount()))
	assert.Zero(t, generator.calls)
}

func TestGenerationService_Status(t *testing.T) {
	generator := &stubGenerator{}
	_, service, _ := newGenerationFixture(t, generator)
	accountID := uuid.New()

	status := service.Status(context.Background(), accountID)
	assert.False(t, status.InFlight)
}
