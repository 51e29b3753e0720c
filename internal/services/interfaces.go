package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabaseQuerier is the slice of pgxpool.Pool the services depend on.
// pgxmock satisfies it in tests.
type DatabaseQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Generator produces one raw completion from the generative endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt, fileBase64, mimeType string) (string, error)
}

// EventPublisher emits usage events; implementations must be safe to
// call from request handlers and never block the caller on broker
// failures.
type EventPublisher interface {
	PublishUsageEvent(eventType, accountID string, payload map[string]interface{})
}
