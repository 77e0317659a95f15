package service

import (
	"context"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// SummaryCache stores computed progress summaries per user. Implementations
// may be unavailable; callers fall back to recomputing.
//
// Every user has a generation that Invalidate bumps. Set stores a summary
// only while the generation still equals gen, so a summary folded before
// an answer was recorded is never written back after it.
type SummaryCache interface {
	Get(ctx context.Context, userID string, scope entities.Scope) (*entities.ProgressSummary, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, summary *entities.ProgressSummary, gen int64) error
	Invalidate(ctx context.Context, userID string) error
}

// EventPublisher delivers session lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

// Metrics receives service-level counters.
type Metrics interface {
	SessionStarted(mode entities.Mode)
	AnswerSubmitted(correct bool)
	SessionFinished(status entities.Status)
	SessionsExpired(n int)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, entities.Scope) (*entities.ProgressSummary, bool, error) {
	return nil, false, nil
}
func (nopCache) Generation(context.Context, string) (int64, error)           { return 0, nil }
func (nopCache) Set(context.Context, *entities.ProgressSummary, int64) error { return nil }
func (nopCache) Invalidate(context.Context, string) error                    { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entities.Event) error { return nil }

type nopMetrics struct{}

func (nopMetrics) SessionStarted(entities.Mode)    {}
func (nopMetrics) AnswerSubmitted(bool)            {}
func (nopMetrics) SessionFinished(entities.Status) {}
func (nopMetrics) SessionsExpired(int)             {}
