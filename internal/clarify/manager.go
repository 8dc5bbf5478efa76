// internal/clarify/manager.go
package clarify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/common/metrics"
	"nlq-resolver/internal/extract"
	"nlq-resolver/internal/models"
	"nlq-resolver/internal/resolve"
)

// Manager drives clarification rounds: it opens a session when resolution
// stalls, turns the unresolved slot into a question, and folds each answer
// back into the session until the query completes or the session expires.
type Manager struct {
	store     Store
	cat       *catalog.Catalog
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	ttl       time.Duration
	log       logger.Logger
	now       func() time.Time
	newToken  func() string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewManager creates a Manager. ttl bounds how long an unanswered session
// is kept.
func NewManager(store Store, cat *catalog.Catalog, extractor *extract.Extractor, resolver *resolve.Resolver, ttl time.Duration, log logger.Logger) *Manager {
	return &Manager{
		store:     store,
		cat:       cat,
		extractor: extractor,
		resolver:  resolver,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
		newToken:  uuid.NewString,
		inflight:  make(map[string]struct{}),
	}
}

// Begin opens a session for a query that could not be resolved in one
// pass and returns the pending state carrying the clarification token.
func (m *Manager) Begin(ctx context.Context, originalText string, res resolve.Resolution) (*models.PendingQuery, error) {
	now := m.now()
	pending := &models.PendingQuery{
		Token:        m.newToken(),
		OriginalText: originalText,
		Slots:        res.Slots,
		Unresolved:   *res.Unresolved,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	if err := m.store.Put(ctx, pending, m.ttl); err != nil {
		return nil, err
	}
	metrics.ClarificationsIssued.WithLabelValues(string(pending.Unresolved.Kind), string(pending.Unresolved.Reason)).Inc()

	m.log.Info("clarification session opened", map[string]interface{}{
		"token":  pending.Token,
		"slot":   pending.Unresolved.Kind,
		"reason": pending.Unresolved.Reason,
	})
	return pending, nil
}

// Answer applies one clarification answer to the session behind token.
// On completion the session is deleted and the returned resolution is
// Complete; otherwise the session is updated with the next unresolved
// slot. A second concurrent answer for the same token is rejected.
func (m *Manager) Answer(ctx context.Context, token, answer string) (resolve.Resolution, *models.PendingQuery, error) {
	if !m.acquire(token) {
		return resolve.Resolution{}, nil, errors.NewSessionBusyError(token)
	}
	defer m.release(token)

	pending, err := m.store.Get(ctx, token)
	if err != nil {
		return resolve.Resolution{}, nil, err
	}
	if pending.IsExpired(m.now()) {
		_ = m.store.Delete(ctx, token)
		metrics.SessionsExpired.Inc()
		return resolve.Resolution{}, nil, errors.NewSessionNotFoundError(token)
	}

	res := m.apply(pending, answer)

	if res.Outcome == resolve.OutcomeComplete {
		if err := m.store.Delete(ctx, token); err != nil {
			return resolve.Resolution{}, nil, err
		}
		m.log.Info("clarification session completed", map[string]interface{}{
			"token": token,
		})
		return res, nil, nil
	}

	pending.Slots = res.Slots
	pending.Unresolved = *res.Unresolved
	pending.Touch(m.now(), m.ttl)
	if err := m.store.Put(ctx, pending, m.ttl); err != nil {
		return resolve.Resolution{}, nil, err
	}
	metrics.ClarificationsIssued.WithLabelValues(string(pending.Unresolved.Kind), string(pending.Unresolved.Reason)).Inc()
	return res, pending, nil
}

// apply folds one answer into the pending slots. An answer to an
// ambiguity prompt is first matched against the offered options; anything
// else goes through the regular extraction pipeline.
func (m *Manager) apply(pending *models.PendingQuery, answer string) resolve.Resolution {
	if pending.Unresolved.Reason == models.ReasonAmbiguous {
		if option, ok := m.matchOption(answer, pending.Unresolved.Options); ok {
			slots := pending.Slots
			m.assignOption(&slots, pending.Unresolved, option)
			return m.resolver.Resolve(extract.Result{}, slots)
		}
	}
	return m.resolver.Resolve(m.extractor.Extract(answer), pending.Slots)
}

func (m *Manager) matchOption(answer string, options []string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(answer))
	if key == "" {
		return "", false
	}
	for _, opt := range options {
		if strings.ToLower(opt) == key {
			return opt, true
		}
	}

	var best string
	var bestScore float64
	for _, opt := range options {
		score := catalog.Similarity(key, opt)
		if score >= m.cat.Threshold() && score > bestScore {
			bestScore = score
			best = opt
		}
	}
	return best, best != ""
}

// assignOption applies a chosen option to the slot it disambiguates.
func (m *Manager) assignOption(slots *models.ResolvedSlots, unresolved models.UnresolvedSlot, option string) {
	match, ok := m.cat.Lookup(option)
	if !ok {
		return
	}

	switch unresolved.Kind {
	case models.SlotMetric:
		if match.Entry.IsMetric() {
			metric := match.Entry.Metric
			slots.Metrics = append(slots.Metrics, models.MetricSelection{
				Metric:      *metric,
				Aggregation: metric.DefaultAggregation,
			})
		}
	case models.SlotDimension:
		if !match.Entry.IsMetric() {
			slots.Dimensions = append(slots.Dimensions, *match.Entry.Dimension)
		}
	case models.SlotFilter:
		if match.Entry.IsMetric() {
			return
		}
		dim := match.Entry.Dimension
		value, _, ok := m.cat.ResolveEnumValue(dim, unresolved.RawText)
		if !ok {
			return
		}
		slots.Filters = append(slots.Filters, models.Filter{
			Field:         dim.BackingField,
			Operator:      models.OpEquals,
			Value:         value,
			DimensionName: dim.Name,
		})
	}
}

// Prompt renders the clarification question for an unresolved slot.
func Prompt(u models.UnresolvedSlot) string {
	switch {
	case u.Reason == models.ReasonAmbiguous:
		options := strings.Join(u.Options, " or ")
		if u.RawText != "" {
			return fmt.Sprintf("%q could mean %s. Which did you mean?", u.RawText, options)
		}
		return fmt.Sprintf("Did you mean %s?", options)
	case u.Kind == models.SlotMetric:
		if len(u.Options) > 0 {
			return fmt.Sprintf("Which metric should the report show? For example: %s.", strings.Join(u.Options, ", "))
		}
		return "Which metric should the report show?"
	case u.Kind == models.SlotTimeRange:
		return "Which time period should the report cover? For example: last month, last 7 days, or a date range."
	case u.Kind == models.SlotDimension:
		return "How should the results be grouped?"
	default:
		return "Can you clarify the filter you meant?"
	}
}

func (m *Manager) acquire(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[token]; busy {
		return false
	}
	m.inflight[token] = struct{}{}
	return true
}

func (m *Manager) release(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, token)
}
