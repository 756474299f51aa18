package service

import (
	"context"
	"time"

	"cnb-rates/internal/entity"
)

// FallbackStore persists the last known good rate per currency. Failures are
// never surfaced by the resolver.
type FallbackStore interface {
	Load(ctx context.Context) (map[string]entity.FallbackEntry, error)
	Save(ctx context.Context, entries map[string]entity.FallbackEntry) error
}

type Clock interface {
	Now() time.Time
}
