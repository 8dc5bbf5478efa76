// internal/clarify/memory.go
package clarify

import (
	"context"
	"sync"
	"time"

	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/common/metrics"
	"nlq-resolver/internal/models"
)

const sweepInterval = time.Minute

// MemoryStore keeps pending queries in process memory. It is the default
// store for single-instance deployments; a background sweeper reclaims
// expired sessions that were never answered.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.PendingQuery
	log      logger.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its sweeper.
func NewMemoryStore(log logger.Logger) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*models.PendingQuery),
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*models.PendingQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, ok := s.sessions[token]
	if !ok {
		return nil, errors.NewSessionNotFoundError(token)
	}
	copied := *pending
	return &copied, nil
}

func (s *MemoryStore) Put(ctx context.Context, pending *models.PendingQuery, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *pending
	s.sessions[pending.Token] = &copied
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// Close stops the sweeper. The store remains usable afterwards but no
// longer reclaims expired sessions on its own.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reclaim()
		}
	}
}

func (s *MemoryStore) reclaim() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for token, pending := range s.sessions {
		if pending.IsExpired(now) {
			delete(s.sessions, token)
			metrics.SessionsExpired.Inc()
			s.log.Debug("expired session reclaimed", map[string]interface{}{
				"token": token,
			})
		}
	}
}
