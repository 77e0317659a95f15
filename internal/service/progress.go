package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// ProgressService folds a user's answer history into per-topic and per-set
// summaries. Nothing is stored; a cache, when configured, only memoizes.
type ProgressService struct {
	answers   contracts.AnswerLedger
	questions contracts.QuestionStore
	cache     SummaryCache
	logger    *zap.Logger
	timeout   time.Duration
}

// NewProgressService creates a new ProgressService. cache may be nil.
func NewProgressService(
	answers contracts.AnswerLedger,
	questions contracts.QuestionStore,
	cache SummaryCache,
	logger *zap.Logger,
	timeout time.Duration,
) *ProgressService {
	if cache == nil {
		cache = nopCache{}
	}
	return &ProgressService{
		answers:   answers,
		questions: questions,
		cache:     cache,
		logger:    logger,
		timeout:   timeout,
	}
}

// SummarizeByTopic returns the user's progress over every question in topic.
func (s *ProgressService) SummarizeByTopic(ctx context.Context, userID, topic string) (*entities.ProgressSummary, error) {
	return s.summarize(ctx, userID, entities.Scope{Kind: entities.ScopeTopic, ID: topic})
}

// SummarizeBySet returns the user's progress over every question in a set.
func (s *ProgressService) SummarizeBySet(ctx context.Context, userID, setID string) (*entities.ProgressSummary, error) {
	return s.summarize(ctx, userID, entities.Scope{Kind: entities.ScopeSet, ID: setID})
}

func (s *ProgressService) summarize(ctx context.Context, userID string, scope entities.Scope) (*entities.ProgressSummary, error) {
	if userID == "" {
		return nil, invalidRequest("user id is required")
	}
	if scope.ID == "" {
		return nil, invalidRequest("%s id is required", scope.Kind)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	cached, ok, err := s.cache.Get(ctx, userID, scope)
	if err != nil {
		s.logger.Warn("progress cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	// The generation is read before the ledger so that an answer recorded
	// during the fold makes the write below a no-op.
	gen, genErr := s.cache.Generation(ctx, userID)
	if genErr != nil {
		s.logger.Warn("progress cache generation read failed", zap.String("user_id", userID), zap.Error(genErr))
	}

	ids, err := s.questions.QuestionIDsInScope(ctx, scope)
	if err != nil {
		return nil, classify(fmt.Errorf("questions in %s %s: %w", scope.Kind, scope.ID, err))
	}

	var records []*entities.AnswerRecord
	if len(ids) > 0 {
		records, err = s.answers.FindForUser(ctx, userID, entities.AnswerFilter{QuestionIDs: ids})
		if err != nil {
			return nil, classify(fmt.Errorf("answers for %s %s: %w", scope.Kind, scope.ID, err))
		}
	}

	summary := entities.FoldProgress(userID, scope, ids, records)

	if genErr == nil {
		if err := s.cache.Set(ctx, summary, gen); err != nil {
			s.logger.Warn("progress cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return summary, nil
}
