// internal/resolver/service.go
package resolver

import (
	"context"
	"time"

	"nlq-resolver/internal/clarify"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/common/metrics"
	"nlq-resolver/internal/common/observability"
	"nlq-resolver/internal/extract"
	"nlq-resolver/internal/models"
	"nlq-resolver/internal/resolve"
)

// Status tells the caller what the service needs next.
type Status string

const (
	// StatusResolved means Query carries the final structured query.
	StatusResolved Status = "resolved"
	// StatusClarification means the caller must answer Prompt and come
	// back with Token.
	StatusClarification Status = "clarification"
)

// Result is the facade's answer to a submission or clarification. Exactly
// one of Query or the Token/Prompt pair is meaningful, according to Status.
type Result struct {
	Status     Status                  `json:"status"`
	Query      *models.StructuredQuery `json:"query,omitempty"`
	Token      string                  `json:"token,omitempty"`
	Prompt     string                  `json:"prompt,omitempty"`
	Unresolved *models.UnresolvedSlot  `json:"unresolved,omitempty"`
}

// Service is the single entry point for turning free text into structured
// queries, wiring extraction, resolution and clarification together.
type Service struct {
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	manager   *clarify.Manager
	obs       *observability.Observability
	log       logger.Logger
}

// New assembles the facade.
func New(extractor *extract.Extractor, res *resolve.Resolver, manager *clarify.Manager, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		extractor: extractor,
		resolver:  res,
		manager:   manager,
		obs:       obs,
		log:       log,
	}
}

// Submit resolves a fresh query text. When resolution stalls, a
// clarification session is opened and the result carries its token and
// prompt instead of a query.
func (s *Service) Submit(ctx context.Context, text string) (Result, error) {
	start := time.Now()

	res := s.resolver.Resolve(s.extractor.Extract(text), models.ResolvedSlots{})
	metrics.ResolutionDuration.WithLabelValues(string(res.Outcome)).Observe(time.Since(start).Seconds())

	if res.Outcome == resolve.OutcomeComplete {
		query := res.Slots.Query()
		metrics.QueriesResolved.WithLabelValues("direct").Inc()
		s.record(ctx, start, "resolved")
		s.log.Info("query resolved", map[string]interface{}{
			"metrics":    len(query.Metrics),
			"dimensions": len(query.Dimensions),
			"filters":    len(query.Filters),
		})
		return Result{Status: StatusResolved, Query: &query}, nil
	}

	pending, err := s.manager.Begin(ctx, text, res)
	if err != nil {
		s.record(ctx, start, "error")
		return Result{}, err
	}
	s.record(ctx, start, "clarification")
	return Result{
		Status:     StatusClarification,
		Token:      pending.Token,
		Prompt:     clarify.Prompt(pending.Unresolved),
		Unresolved: &pending.Unresolved,
	}, nil
}

// Clarify applies an answer to an open session. The result either carries
// the completed query or the next prompt for the same token.
func (s *Service) Clarify(ctx context.Context, token, answer string) (Result, error) {
	start := time.Now()

	res, pending, err := s.manager.Answer(ctx, token, answer)
	if err != nil {
		s.record(ctx, start, "error")
		return Result{}, err
	}
	metrics.ResolutionDuration.WithLabelValues(string(res.Outcome)).Observe(time.Since(start).Seconds())

	if res.Outcome == resolve.OutcomeComplete {
		query := res.Slots.Query()
		metrics.QueriesResolved.WithLabelValues("clarified").Inc()
		s.record(ctx, start, "resolved")
		return Result{Status: StatusResolved, Query: &query}, nil
	}

	s.record(ctx, start, "clarification")
	return Result{
		Status:     StatusClarification,
		Token:      pending.Token,
		Prompt:     clarify.Prompt(pending.Unresolved),
		Unresolved: &pending.Unresolved,
	}, nil
}

func (s *Service) record(ctx context.Context, start time.Time, outcome string) {
	if s.obs == nil {
		return
	}
	s.obs.RecordSubmission(ctx, outcome)
	s.obs.RecordDuration(ctx, time.Since(start), outcome)
}
