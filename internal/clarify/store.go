// internal/clarify/store.go
package clarify

import (
	"context"
	"time"

	"nlq-resolver/internal/models"
)

// Store persists pending queries between clarification rounds. Get returns
// ErrSessionNotFound for unknown tokens; expiry handling beyond the TTL
// hint is the caller's concern.
type Store interface {
	Get(ctx context.Context, token string) (*models.PendingQuery, error)
	Put(ctx context.Context, pending *models.PendingQuery, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
	Close() error
}
