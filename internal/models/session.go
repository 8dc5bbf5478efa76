// internal/models/session.go
package models

import "time"

// PendingQuery is the in-flight state of a query awaiting clarification.
// It is created on the first ambiguous or missing-slot outcome, mutated only
// by merging a clarification answer, and discarded on completion or expiry.
type PendingQuery struct {
	Token        string         `json:"token"`
	OriginalText string         `json:"originalText"`
	Slots        ResolvedSlots  `json:"slots"`
	Unresolved   UnresolvedSlot `json:"unresolved"`
	CreatedAt    time.Time      `json:"createdAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

// IsExpired reports whether the session has passed its expiry at the given
// wall-clock instant.
func (p *PendingQuery) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Touch extends the expiry window after activity on the session.
func (p *PendingQuery) Touch(now time.Time, ttl time.Duration) {
	p.ExpiresAt = now.Add(ttl)
}
