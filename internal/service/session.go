package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// SessionService is the session state machine. Every state change runs in
// one storage transaction; events, metrics and cache invalidation happen
// only after it commits.
type SessionService struct {
	store     contracts.Store
	questions contracts.QuestionStore
	selector  Selector
	cache     SummaryCache
	events    EventPublisher
	metrics   Metrics
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithSelector replaces the default random selector.
func WithSelector(sel Selector) Option {
	return func(s *SessionService) { s.selector = sel }
}

// WithSummaryCache sets the cache invalidated on every recorded answer.
func WithSummaryCache(c SummaryCache) Option {
	return func(s *SessionService) { s.cache = c }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *SessionService) { s.events = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *SessionService) { s.metrics = m }
}

// WithStorageTimeout bounds every storage operation.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *SessionService) { s.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	store contracts.Store,
	questions contracts.QuestionStore,
	logger *zap.Logger,
	opts ...Option,
) *SessionService {
	s := &SessionService{
		store:     store,
		questions: questions,
		selector:  NewRandomSelector(0),
		cache:     nopCache{},
		events:    nopPublisher{},
		metrics:   nopMetrics{},
		logger:    logger,
		timeout:   defaultStorageTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession validates the request, draws questions for mode and persists
// a new active session.
func (s *SessionService) StartSession(
	ctx context.Context,
	userID string,
	mode entities.Mode,
	filters entities.Filters,
) (*entities.Session, error) {
	if userID == "" {
		return nil, invalidRequest("user id is required")
	}
	if _, err := entities.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pool, err := s.questionPool(ctx, userID, mode, filters)
	if err != nil {
		return nil, classify(err)
	}

	ids := s.selector.Select(pool, questionLimit(mode, filters))
	if len(ids) == 0 {
		return nil, entities.NewError(entities.ErrEmptyQuestionPool, "", "").WithDetail("mode %s", mode)
	}

	session := entities.NewSession(userID, mode, filters, ids, s.now())
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		return repos.Sessions().Create(ctx, session)
	})
	if err != nil {
		return nil, classify(fmt.Errorf("create session: %w", err))
	}

	s.logger.Info("session started", sessionFields(session)...)
	s.metrics.SessionStarted(mode)
	s.publish(ctx, entities.EventSessionStarted, session, map[string]any{
		"mode":  session.Mode,
		"total": session.Total(),
	})

	return session, nil
}

// questionPool returns the eligible question ids for a new session.
func (s *SessionService) questionPool(
	ctx context.Context,
	userID string,
	mode entities.Mode,
	filters entities.Filters,
) ([]string, error) {
	query := entities.PoolQuery{Filters: filters}

	switch mode {
	case entities.ModeUnseenOnly:
		history, err := s.store.Answers().FindForUser(ctx, userID, entities.AnswerFilter{})
		if err != nil {
			return nil, fmt.Errorf("load answer history: %w", err)
		}
		query.ExcludeIDs = answeredQuestionIDs(history)

	case entities.ModeReviewMistakes:
		history, err := s.store.Answers().FindForUser(ctx, userID, entities.AnswerFilter{})
		if err != nil {
			return nil, fmt.Errorf("load answer history: %w", err)
		}
		query.IncludeIDs = mistakenQuestionIDs(history)
		if len(query.IncludeIDs) == 0 {
			return nil, nil
		}
	}

	pool, err := s.questions.QuestionPool(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("question pool: %w", err)
	}
	return pool, nil
}

// GetActiveSession returns the user's most recent active session, or nil.
func (s *SessionService) GetActiveSession(ctx context.Context, userID string) (*entities.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.store.Sessions().GetActiveByUser(ctx, userID)
	if errors.Is(err, entities.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return session, nil
}

// GetSession returns a session owned by userID.
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*entities.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, classify(err)
	}
	if err := checkOwner(session, userID); err != nil {
		return nil, err
	}
	return session, nil
}

// CurrentQuestion returns the question awaiting an answer, without its key.
func (s *SessionService) CurrentQuestion(ctx context.Context, userID, sessionID string) (*entities.PublicQuestion, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, entities.NewError(entities.ErrSessionNotActive, session.ID, "")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.question(ctx, session.CurrentQuestionID())
	if err != nil {
		return nil, classify(err)
	}
	pub := q.Public(session.CurrentIndex, session.Total())
	return &pub, nil
}

// SubmitAnswerInput is a single answer submission.
type SubmitAnswerInput struct {
	UserID              string
	SessionID           string
	QuestionID          string
	SelectedOptionIndex int
	TimeSpentSeconds    int
}

// SubmitResult is the outcome of a successful submission. Summary is set
// when the answer completed the session.
type SubmitResult struct {
	Answer  *entities.AnswerRecord   `json:"answer"`
	Session *entities.Session        `json:"session"`
	Summary *entities.SessionSummary `json:"summary,omitempty"`
}

// SubmitAnswer records an answer to the question at the session's current
// position and advances the session, completing it after the last question.
func (s *SessionService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*SubmitResult, error) {
	if in.TimeSpentSeconds < 0 {
		return nil, invalidRequest("time_spent_seconds must not be negative, got %d", in.TimeSpentSeconds)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var res SubmitResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		session, err := repos.Sessions().GetForUpdate(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if err := checkOwner(session, in.UserID); err != nil {
			return err
		}
		if !session.IsActive() {
			return entities.NewError(entities.ErrSessionNotActive, session.ID, in.QuestionID)
		}
		if err := s.checkPosition(session, in.QuestionID); err != nil {
			return err
		}

		q, err := s.question(ctx, in.QuestionID)
		if err != nil {
			return err
		}
		if in.SelectedOptionIndex < 0 || in.SelectedOptionIndex >= len(q.Options) {
			return entities.NewError(entities.ErrInvalidRequest, session.ID, q.ID).
				WithDetail("selected option %d out of range [0,%d)", in.SelectedOptionIndex, len(q.Options))
		}

		now := s.now()
		answer := entities.NewAnswerRecord(session, q, in.SelectedOptionIndex, in.TimeSpentSeconds, now)
		if err := repos.Answers().Record(ctx, answer); err != nil {
			return err
		}

		completed := session.Advance(answer.IsCorrect, now)
		if err := repos.Sessions().Update(ctx, session); err != nil {
			return err
		}

		res.Answer = answer
		res.Session = session

		if completed {
			answers, err := repos.Answers().FindForSession(ctx, session.ID)
			if err != nil {
				return err
			}
			res.Summary = entities.Summarize(session, answers)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Debug("answer recorded",
		zap.String("session_id", res.Session.ID),
		zap.String("question_id", res.Answer.QuestionID),
		zap.Bool("correct", res.Answer.IsCorrect),
	)
	s.metrics.AnswerSubmitted(res.Answer.IsCorrect)
	s.invalidateProgress(ctx, res.Session.UserID)
	s.publish(ctx, entities.EventAnswerSubmitted, res.Session, res.Answer)

	if res.Summary != nil {
		s.logger.Info("session completed", sessionFields(res.Session)...)
		s.metrics.SessionFinished(entities.StatusCompleted)
		s.publish(ctx, entities.EventSessionCompleted, res.Session, res.Summary)
	}

	return &res, nil
}

// invalidateProgress drops the user's cached summaries. The answer is
// already committed, so a failure is retried once outside the caller's
// deadline and then logged; cached entries expire with their TTL.
func (s *SessionService) invalidateProgress(ctx context.Context, userID string) {
	err := s.cache.Invalidate(ctx, userID)
	if err == nil {
		return
	}
	s.logger.Warn("failed to invalidate progress cache, retrying", zap.String("user_id", userID), zap.Error(err))

	retryCtx, cancel := withTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.cache.Invalidate(retryCtx, userID); err != nil {
		s.logger.Error("progress cache may serve stale summaries", zap.String("user_id", userID), zap.Error(err))
	}
}

// checkPosition rejects answers to already answered or out-of-order questions.
func (s *SessionService) checkPosition(session *entities.Session, questionID string) error {
	for _, id := range session.QuestionIDs[:session.CurrentIndex] {
		if id == questionID {
			return entities.NewError(entities.ErrDuplicateAnswer, session.ID, questionID)
		}
	}

	if expected := session.CurrentQuestionID(); questionID != expected {
		s.logger.Warn("answer submitted out of order",
			zap.String("session_id", session.ID),
			zap.String("user_id", session.UserID),
			zap.String("question_id", questionID),
			zap.String("expected_question_id", expected),
		)
		return entities.NewError(entities.ErrQuestionNotInSession, session.ID, questionID)
	}
	return nil
}

// AbandonSession moves an active session to abandoned. A terminal session
// fails with ErrSessionNotActive.
func (s *SessionService) AbandonSession(ctx context.Context, userID, sessionID string) (*entities.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var session *entities.Session
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		var err error
		session, err = repos.Sessions().GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := checkOwner(session, userID); err != nil {
			return err
		}
		if !session.IsActive() {
			return entities.NewError(entities.ErrSessionNotActive, session.ID, "")
		}

		session.Abandon(s.now())
		return repos.Sessions().Update(ctx, session)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("session abandoned", sessionFields(session)...)
	s.metrics.SessionFinished(entities.StatusAbandoned)
	s.publish(ctx, entities.EventSessionAbandoned, session, nil)

	return session, nil
}

// CompleteSession ends an active session early and returns its summary.
// A session that is not active fails with ErrSessionAlreadyCompleted.
func (s *SessionService) CompleteSession(ctx context.Context, userID, sessionID string) (*entities.SessionSummary, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		session *entities.Session
		summary *entities.SessionSummary
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		var err error
		session, err = repos.Sessions().GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := checkOwner(session, userID); err != nil {
			return err
		}
		if !session.IsActive() {
			return entities.NewError(entities.ErrSessionAlreadyCompleted, session.ID, "").
				WithDetail("status %s", session.Status)
		}

		session.Complete(s.now())
		if err := repos.Sessions().Update(ctx, session); err != nil {
			return err
		}

		answers, err := repos.Answers().FindForSession(ctx, session.ID)
		if err != nil {
			return err
		}
		summary = entities.Summarize(session, answers)
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("session completed", sessionFields(session)...)
	s.metrics.SessionFinished(entities.StatusCompleted)
	s.publish(ctx, entities.EventSessionCompleted, session, summary)

	return summary, nil
}

// SessionSummary returns the running or final summary of any session.
func (s *SessionService) SessionSummary(ctx context.Context, userID, sessionID string) (*entities.SessionSummary, error) {
	session, answers, err := s.sessionWithAnswers(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return entities.Summarize(session, answers), nil
}

// SessionAnswers returns the session's answers in answering order.
func (s *SessionService) SessionAnswers(ctx context.Context, userID, sessionID string) ([]*entities.AnswerRecord, error) {
	_, answers, err := s.sessionWithAnswers(ctx, userID, sessionID)
	return answers, err
}

// SessionReport bundles what a printable report needs.
type SessionReport struct {
	Session   *entities.Session
	Summary   *entities.SessionSummary
	Answers   []*entities.AnswerRecord
	Questions map[string]*entities.Question
}

// Report loads a session together with its answers and questions.
func (s *SessionService) Report(ctx context.Context, userID, sessionID string) (*SessionReport, error) {
	session, answers, err := s.sessionWithAnswers(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	qs, err := s.questions.QuestionsByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, classify(fmt.Errorf("load report questions: %w", err))
	}
	byID := make(map[string]*entities.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	return &SessionReport{
		Session:   session,
		Summary:   entities.Summarize(session, answers),
		Answers:   answers,
		Questions: byID,
	}, nil
}

func (s *SessionService) sessionWithAnswers(
	ctx context.Context,
	userID, sessionID string,
) (*entities.Session, []*entities.AnswerRecord, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	answers, err := s.store.Answers().FindForSession(ctx, session.ID)
	if err != nil {
		return nil, nil, classify(err)
	}
	return session, answers, nil
}

// AbandonExpired abandons every session still active after maxAge and
// returns how many were abandoned. A session that fails to expire does not
// stop the rest; the first such error is returned.
func (s *SessionService) AbandonExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	listCtx, cancel := withTimeout(ctx, s.timeout)
	ids, err := s.store.Sessions().ListStaleActive(listCtx, cutoff)
	cancel()
	if err != nil {
		return 0, classify(fmt.Errorf("list stale sessions: %w", err))
	}

	abandoned := 0
	var firstErr error
	for _, id := range ids {
		session, err := s.expire(ctx, id, cutoff)
		if err != nil {
			s.logger.Warn("failed to expire session", zap.String("session_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if session == nil {
			continue
		}
		abandoned++
		s.publish(ctx, entities.EventSessionAbandoned, session, map[string]any{"reason": "timeout"})
	}

	if abandoned > 0 {
		s.logger.Info("expired sessions abandoned", zap.Int("count", abandoned), zap.Time("cutoff", cutoff))
		s.metrics.SessionsExpired(abandoned)
	}
	return abandoned, firstErr
}

// expire abandons one stale session. It returns nil when the session
// changed state since it was listed.
func (s *SessionService) expire(ctx context.Context, id string, cutoff time.Time) (*entities.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var session *entities.Session
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		cur, err := repos.Sessions().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !cur.IsActive() || !cur.StartedAt.Before(cutoff) {
			return nil
		}
		cur.Abandon(s.now())
		if err := repos.Sessions().Update(ctx, cur); err != nil {
			return err
		}
		session = cur
		return nil
	})
	if err != nil {
		return nil, classify(fmt.Errorf("expire session %s: %w", id, err))
	}
	return session, nil
}

func (s *SessionService) question(ctx context.Context, id string) (*entities.Question, error) {
	qs, err := s.questions.QuestionsByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("load question %s: %w", id, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("question %s is missing from the question store", id)
	}
	return qs[0], nil
}

func (s *SessionService) publish(ctx context.Context, typ entities.EventType, session *entities.Session, payload any) {
	event := entities.Event{
		Type:       typ,
		SessionID:  session.ID,
		UserID:     session.UserID,
		OccurredAt: s.now(),
		Payload:    payload,
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event", string(typ)),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

// checkOwner hides sessions of other users behind ErrSessionNotFound.
func checkOwner(session *entities.Session, userID string) error {
	if session.UserID != userID {
		return entities.NewError(entities.ErrSessionNotFound, session.ID, "")
	}
	return nil
}

// answeredQuestionIDs returns every question the user has answered.
func answeredQuestionIDs(history []*entities.AnswerRecord) []string {
	ids := make([]string, 0, len(history))
	for _, a := range history {
		ids = append(ids, a.QuestionID)
	}
	return uniqueKeepOrder(ids)
}

// mistakenQuestionIDs returns questions whose most recent answer was wrong.
// history must be ordered oldest first.
func mistakenQuestionIDs(history []*entities.AnswerRecord) []string {
	latest := make(map[string]bool, len(history))
	order := make([]string, 0, len(history))
	for _, a := range history {
		if _, seen := latest[a.QuestionID]; !seen {
			order = append(order, a.QuestionID)
		}
		latest[a.QuestionID] = a.IsCorrect
	}

	var ids []string
	for _, id := range order {
		if !latest[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
