package api

import (
	"context"

	"mission-board/domain"
)

// Board is the document service the handlers drive.
type Board interface {
	LoadOrDefault(ctx context.Context) ([]byte, error)
	Replace(ctx context.Context, body []byte) (string, error)
	ToggleTask(ctx context.Context, id domain.TaskID) (domain.ToggleResult, error)
	AddTask(ctx context.Context, in domain.NewTask) (domain.Task, string, error)
	RemoveTask(ctx context.Context, id domain.TaskID) (string, error)
	Rollover(ctx context.Context, next []domain.Task) (domain.RolloverResult, error)
	Seed(ctx context.Context) (domain.SeedResult, error)
	Ping(ctx context.Context) error
}

// Deduper prevents processing of duplicate requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, scope, key string) (bool, error)
	// Remove deletes a previously added key, used when the request fails.
	Remove(ctx context.Context, scope, key string) error
}
