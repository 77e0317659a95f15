package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/storage"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e entities.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []entities.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entities.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type countingCache struct {
	nopCache
	mu          sync.Mutex
	invalidated map[string]int
}

func (c *countingCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidated == nil {
		c.invalidated = make(map[string]int)
	}
	c.invalidated[userID]++
	return nil
}

type testEnv struct {
	svc    *SessionService
	store  *storage.MemoryStore
	bank   *storage.QuestionBank
	events *recordingPublisher
	cache  *countingCache
	clock  *time.Time
}

// newTestEnv builds a service over n questions q01..qNN whose correct
// option is always 0. Even questions belong to topic "grammar", odd ones
// to "vocabulary"; all are in set "s1".
func newTestEnv(t *testing.T, n int, opts ...Option) *testEnv {
	t.Helper()

	qs := make([]*entities.Question, n)
	for i := range qs {
		topic := "vocabulary"
		if (i+1)%2 == 0 {
			topic = "grammar"
		}
		qs[i] = &entities.Question{
			ID:                 fmt.Sprintf("q%02d", i+1),
			Type:               entities.TypeVocabulary,
			Text:               "question",
			Options:            []string{"right", "wrong", "also wrong"},
			CorrectAnswerIndex: 0,
			Difficulty:         entities.DifficultyEasy,
			Topic:              topic,
			SetID:              "s1",
		}
	}
	bank, err := storage.NewQuestionBank(qs)
	if err != nil {
		t.Fatalf("NewQuestionBank() error = %v", err)
	}

	env := &testEnv{
		store:  storage.NewMemoryStore(),
		bank:   bank,
		events: &recordingPublisher{},
		cache:  &countingCache{},
	}
	now := testNow
	env.clock = &now

	base := []Option{
		WithSelector(OrderedSelector{}),
		WithPublisher(env.events),
		WithSummaryCache(env.cache),
		WithClock(func() time.Time { return *env.clock }),
	}
	env.svc = NewSessionService(env.store, bank, zap.NewNop(), append(base, opts...)...)
	return env
}

func (e *testEnv) advance(d time.Duration) { *e.clock = e.clock.Add(d) }

func (e *testEnv) start(t *testing.T, userID string, mode entities.Mode, limit int) *entities.Session {
	t.Helper()
	var filters entities.Filters
	if limit > 0 {
		filters.QuestionLimit = entities.Limit(limit)
	}
	s, err := e.svc.StartSession(context.Background(), userID, mode, filters)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	return s
}

func (e *testEnv) submit(t *testing.T, s *entities.Session, correct bool) *SubmitResult {
	t.Helper()
	res, err := e.trySubmit(s, s.CurrentQuestionID(), correct)
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	*s = *res.Session
	return res
}

func (e *testEnv) trySubmit(s *entities.Session, questionID string, correct bool) (*SubmitResult, error) {
	selected := 1
	if correct {
		selected = 0
	}
	e.advance(time.Second)
	return e.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
		UserID:              s.UserID,
		SessionID:           s.ID,
		QuestionID:          questionID,
		SelectedOptionIndex: selected,
		TimeSpentSeconds:    7,
	})
}

func assertKind(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestStartSessionQuickWithLimit(t *testing.T) {
	env := newTestEnv(t, 8)

	s := env.start(t, "u1", entities.ModeQuick, 5)

	if len(s.QuestionIDs) != 5 {
		t.Fatalf("len(QuestionIDs) = %d, want 5", len(s.QuestionIDs))
	}
	if s.CurrentIndex != 0 || s.Status != entities.StatusActive {
		t.Fatalf("session = index %d status %s, want 0 active", s.CurrentIndex, s.Status)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != entities.EventSessionStarted {
		t.Fatalf("events = %v, want [session.started]", got)
	}

	active, err := env.svc.GetActiveSession(context.Background(), "u1")
	if err != nil || active == nil || active.ID != s.ID {
		t.Fatalf("GetActiveSession() = %v, %v", active, err)
	}
}

func TestStartSessionDefaultLimits(t *testing.T) {
	env := newTestEnv(t, 120)

	tests := []struct {
		mode entities.Mode
		want int
	}{
		{entities.ModeQuick, 10},
		{entities.ModeFull, 100},
		{entities.ModeCustom, 20},
		{entities.ModePractice, 20},
		{entities.ModeUnseenOnly, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := env.start(t, "limits-"+string(tt.mode), tt.mode, 0)
			if s.Total() != tt.want {
				t.Fatalf("Total() = %d, want %d", s.Total(), tt.want)
			}
		})
	}
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t, 3)

	tests := []struct {
		name    string
		userID  string
		mode    entities.Mode
		filters entities.Filters
		want    error
	}{
		{name: "unknown mode", userID: "u1", mode: "adaptive", want: entities.ErrInvalidMode},
		{name: "empty mode", userID: "u1", mode: "", want: entities.ErrInvalidMode},
		{name: "limit too large", userID: "u1", mode: entities.ModeQuick, filters: entities.Filters{QuestionLimit: entities.Limit(101)}, want: entities.ErrInvalidRequest},
		{name: "negative limit", userID: "u1", mode: entities.ModeQuick, filters: entities.Filters{QuestionLimit: entities.Limit(-1)}, want: entities.ErrInvalidRequest},
		{name: "zero limit", userID: "u1", mode: entities.ModeQuick, filters: entities.Filters{QuestionLimit: entities.Limit(0)}, want: entities.ErrInvalidRequest},
		{name: "unknown type", userID: "u1", mode: entities.ModeCustom, filters: entities.Filters{Types: []entities.QuestionType{"essay"}}, want: entities.ErrInvalidRequest},
		{name: "missing user", userID: "", mode: entities.ModeQuick, want: entities.ErrInvalidRequest},
		{name: "no matching questions", userID: "u1", mode: entities.ModeCustom, filters: entities.Filters{Topic: "listening"}, want: entities.ErrEmptyQuestionPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.StartSession(context.Background(), tt.userID, tt.mode, tt.filters)
			assertKind(t, err, tt.want)
		})
	}

	if got := env.events.types(); len(got) != 0 {
		t.Fatalf("rejected starts published events: %v", got)
	}
}

func TestStartSessionCustomFilters(t *testing.T) {
	env := newTestEnv(t, 6)

	s, err := env.svc.StartSession(context.Background(), "u1", entities.ModeCustom, entities.Filters{Topic: "grammar"})
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	want := []string{"q02", "q04", "q06"}
	if fmt.Sprint(s.QuestionIDs) != fmt.Sprint(want) {
		t.Fatalf("QuestionIDs = %v, want %v", s.QuestionIDs, want)
	}
}

func TestSubmitFirstCorrectAnswer(t *testing.T) {
	env := newTestEnv(t, 5)
	s := env.start(t, "u1", entities.ModeQuick, 5)

	res := env.submit(t, s, true)

	if res.Session.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", res.Session.CurrentIndex)
	}
	if res.Session.Status != entities.StatusActive {
		t.Fatalf("Status = %s, want active", res.Session.Status)
	}
	if !res.Answer.IsCorrect || res.Answer.Position != 0 || res.Answer.QuestionID != "q01" {
		t.Fatalf("answer = %+v", res.Answer)
	}
	if res.Summary != nil {
		t.Fatal("Summary set before completion")
	}

	answers, err := env.svc.SessionAnswers(context.Background(), "u1", s.ID)
	if err != nil {
		t.Fatalf("SessionAnswers() error = %v", err)
	}
	if len(answers) != 1 || !answers[0].IsCorrect {
		t.Fatalf("ledger = %+v, want one correct record", answers)
	}
	if env.cache.invalidated["u1"] != 1 {
		t.Fatalf("cache invalidations = %d, want 1", env.cache.invalidated["u1"])
	}
}

func TestSubmitAllAnswersCompletesSession(t *testing.T) {
	env := newTestEnv(t, 5)
	s := env.start(t, "u1", entities.ModeQuick, 5)

	var res *SubmitResult
	for i, correct := range []bool{true, false, true, false, true} {
		res = env.submit(t, s, correct)
		if i < 4 && res.Session.Status != entities.StatusActive {
			t.Fatalf("session completed early after answer %d", i+1)
		}
		if res.Session.CurrentIndex != i+1 {
			t.Fatalf("CurrentIndex = %d after answer %d", res.Session.CurrentIndex, i+1)
		}
	}

	if res.Session.Status != entities.StatusCompleted || res.Session.CompletedAt == nil {
		t.Fatalf("session = %+v, want completed", res.Session)
	}
	if res.Summary == nil || res.Summary.ScorePercentage != 60 {
		t.Fatalf("Summary = %+v, want score 60", res.Summary)
	}
	if res.Summary.TotalTimeSeconds != 35 {
		t.Fatalf("TotalTimeSeconds = %d, want 35", res.Summary.TotalTimeSeconds)
	}

	summary, err := env.svc.SessionSummary(context.Background(), "u1", s.ID)
	if err != nil {
		t.Fatalf("SessionSummary() error = %v", err)
	}
	if summary.ScorePercentage != 60 || summary.CorrectCount != 3 || summary.AnsweredCount != 5 {
		t.Fatalf("SessionSummary() = %+v", summary)
	}

	if active, _ := env.svc.GetActiveSession(context.Background(), "u1"); active != nil {
		t.Fatalf("GetActiveSession() = %v after completion, want nil", active)
	}

	got := env.events.types()
	if got[len(got)-1] != entities.EventSessionCompleted {
		t.Fatalf("last event = %s, want session.completed", got[len(got)-1])
	}

	_, err = env.trySubmit(s, "q05", true)
	assertKind(t, err, entities.ErrSessionNotActive)
}

func TestSubmitDuplicateAnswer(t *testing.T) {
	env := newTestEnv(t, 5)
	s := env.start(t, "u1", entities.ModeQuick, 5)
	env.submit(t, s, true)

	_, err := env.trySubmit(s, "q01", false)
	assertKind(t, err, entities.ErrDuplicateAnswer)

	var e *entities.Error
	if !errors.As(err, &e) || e.SessionID != s.ID || e.QuestionID != "q01" {
		t.Fatalf("error does not identify the session and question: %v", err)
	}

	got, _ := env.svc.GetSession(context.Background(), "u1", s.ID)
	if got.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d after duplicate, want 1", got.CurrentIndex)
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	env := newTestEnv(t, 5)
	s := env.start(t, "u1", entities.ModeQuick, 5)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SubmitAnswerInput
		want error
	}{
		{
			name: "out of order",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "q03"},
			want: entities.ErrQuestionNotInSession,
		},
		{
			name: "foreign question",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "zzz"},
			want: entities.ErrQuestionNotInSession,
		},
		{
			name: "option out of range",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "q01", SelectedOptionIndex: 3},
			want: entities.ErrInvalidRequest,
		},
		{
			name: "negative option",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "q01", SelectedOptionIndex: -1},
			want: entities.ErrInvalidRequest,
		},
		{
			name: "negative time",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "q01", TimeSpentSeconds: -5},
			want: entities.ErrInvalidRequest,
		},
		{
			name: "other user",
			in:   SubmitAnswerInput{UserID: "u2", SessionID: s.ID, QuestionID: "q01"},
			want: entities.ErrSessionNotFound,
		},
		{
			name: "unknown session",
			in:   SubmitAnswerInput{UserID: "u1", SessionID: "missing", QuestionID: "q01"},
			want: entities.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.SubmitAnswer(ctx, tt.in)
			assertKind(t, err, tt.want)
		})
	}

	answers, _ := env.svc.SessionAnswers(ctx, "u1", s.ID)
	if len(answers) != 0 {
		t.Fatalf("rejected submissions left %d records", len(answers))
	}
}

func TestAbandonSession(t *testing.T) {
	ctx := context.Background()

	t.Run("active", func(t *testing.T) {
		env := newTestEnv(t, 3)
		s := env.start(t, "u1", entities.ModeQuick, 3)

		got, err := env.svc.AbandonSession(ctx, "u1", s.ID)
		if err != nil {
			t.Fatalf("AbandonSession() error = %v", err)
		}
		if got.Status != entities.StatusAbandoned || got.AbandonedAt == nil {
			t.Fatalf("session = %+v, want abandoned", got)
		}

		_, err = env.svc.AbandonSession(ctx, "u1", s.ID)
		assertKind(t, err, entities.ErrSessionNotActive)

		_, err = env.trySubmit(s, "q01", true)
		assertKind(t, err, entities.ErrSessionNotActive)
	})

	t.Run("completed", func(t *testing.T) {
		env := newTestEnv(t, 2)
		s := env.start(t, "u1", entities.ModeQuick, 2)
		env.submit(t, s, true)
		env.submit(t, s, true)

		_, err := env.svc.AbandonSession(ctx, "u1", s.ID)
		assertKind(t, err, entities.ErrSessionNotActive)

		got, _ := env.svc.GetSession(ctx, "u1", s.ID)
		if got.Status != entities.StatusCompleted {
			t.Fatalf("Status = %s, want completed", got.Status)
		}
	})
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		answers   []bool
		wantScore float64
	}{
		{name: "nothing answered", wantScore: 0},
		{name: "partially answered", answers: []bool{true, false, true, true}, wantScore: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 10)
			s := env.start(t, "u1", entities.ModeQuick, 10)
			for _, c := range tt.answers {
				env.submit(t, s, c)
			}

			summary, err := env.svc.CompleteSession(ctx, "u1", s.ID)
			if err != nil {
				t.Fatalf("CompleteSession() error = %v", err)
			}
			if summary.ScorePercentage != tt.wantScore {
				t.Fatalf("ScorePercentage = %v, want %v", summary.ScorePercentage, tt.wantScore)
			}
			if summary.Status != entities.StatusCompleted || summary.AnsweredCount != len(tt.answers) {
				t.Fatalf("summary = %+v", summary)
			}

			got, _ := env.svc.GetSession(ctx, "u1", s.ID)
			if got.ScorePercentage == nil || *got.ScorePercentage != tt.wantScore {
				t.Fatalf("stored score = %v, want %v", got.ScorePercentage, tt.wantScore)
			}

			_, err = env.svc.CompleteSession(ctx, "u1", s.ID)
			assertKind(t, err, entities.ErrSessionAlreadyCompleted)
		})
	}
}

func TestCompleteAbandonedSession(t *testing.T) {
	env := newTestEnv(t, 3)
	s := env.start(t, "u1", entities.ModeQuick, 3)
	if _, err := env.svc.AbandonSession(context.Background(), "u1", s.ID); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.CompleteSession(context.Background(), "u1", s.ID)
	assertKind(t, err, entities.ErrSessionAlreadyCompleted)
}

func TestUnseenOnly(t *testing.T) {
	env := newTestEnv(t, 3)
	s := env.start(t, "u1", entities.ModeQuick, 2)
	env.submit(t, s, true)
	env.submit(t, s, false)

	next := env.start(t, "u1", entities.ModeUnseenOnly, 0)
	if fmt.Sprint(next.QuestionIDs) != "[q03]" {
		t.Fatalf("QuestionIDs = %v, want [q03]", next.QuestionIDs)
	}
	env.submit(t, next, true)

	_, err := env.svc.StartSession(context.Background(), "u1", entities.ModeUnseenOnly, entities.Filters{})
	assertKind(t, err, entities.ErrEmptyQuestionPool)

	other := env.start(t, "u2", entities.ModeUnseenOnly, 0)
	if other.Total() != 3 {
		t.Fatalf("another user's history leaked: Total() = %d", other.Total())
	}
}

func TestReviewMistakes(t *testing.T) {
	env := newTestEnv(t, 4)

	_, err := env.svc.StartSession(context.Background(), "u1", entities.ModeReviewMistakes, entities.Filters{})
	assertKind(t, err, entities.ErrEmptyQuestionPool)

	first := env.start(t, "u1", entities.ModeQuick, 4)
	for _, c := range []bool{false, false, true, false} {
		env.submit(t, first, c)
	}

	// q01 is answered correctly later, so only q02 and q04 remain mistakes.
	fix := env.start(t, "u1", entities.ModeCustom, 1)
	env.submit(t, fix, true)

	review := env.start(t, "u1", entities.ModeReviewMistakes, 0)
	if fmt.Sprint(review.QuestionIDs) != "[q02 q04]" {
		t.Fatalf("QuestionIDs = %v, want [q02 q04]", review.QuestionIDs)
	}
}

func TestCurrentQuestion(t *testing.T) {
	env := newTestEnv(t, 3)
	s := env.start(t, "u1", entities.ModeQuick, 3)
	env.submit(t, s, true)

	q, err := env.svc.CurrentQuestion(context.Background(), "u1", s.ID)
	if err != nil {
		t.Fatalf("CurrentQuestion() error = %v", err)
	}
	if q.ID != "q02" || q.Position != 1 || q.Total != 3 {
		t.Fatalf("CurrentQuestion() = %+v", q)
	}

	if _, err := env.svc.AbandonSession(context.Background(), "u1", s.ID); err != nil {
		t.Fatal(err)
	}
	_, err = env.svc.CurrentQuestion(context.Background(), "u1", s.ID)
	assertKind(t, err, entities.ErrSessionNotActive)
}

func TestConcurrentSubmissionsAdvanceOnce(t *testing.T) {
	env := newTestEnv(t, 3)
	s := env.start(t, "u1", entities.ModeQuick, 3)

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.SubmitAnswer(context.Background(), SubmitAnswerInput{
				UserID:     "u1",
				SessionID:  s.ID,
				QuestionID: "q01",
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, entities.ErrDuplicateAnswer):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("successful submissions = %d, want 1", success)
	}

	got, _ := env.svc.GetSession(context.Background(), "u1", s.ID)
	if got.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", got.CurrentIndex)
	}
}

func TestAbandonExpired(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()

	stale := env.start(t, "u1", entities.ModeQuick, 2)
	done := env.start(t, "u2", entities.ModeQuick, 1)
	env.submit(t, done, true)

	env.advance(3 * time.Hour)
	fresh := env.start(t, "u3", entities.ModeQuick, 2)

	n, err := env.svc.AbandonExpired(ctx, 2*time.Hour)
	if err != nil {
		t.Fatalf("AbandonExpired() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("AbandonExpired() = %d, want 1", n)
	}

	wantStatus := map[string]entities.Status{
		stale.ID: entities.StatusAbandoned,
		done.ID:  entities.StatusCompleted,
		fresh.ID: entities.StatusActive,
	}
	for id, want := range wantStatus {
		got, err := env.store.Sessions().GetByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != want {
			t.Errorf("session %s status = %s, want %s", id, got.Status, want)
		}
	}
}

// lockFailStore fails GetForUpdate for one session id.
type lockFailStore struct {
	*storage.MemoryStore
	failID string
}

func (f lockFailStore) WithinTx(ctx context.Context, fn func(context.Context, contracts.Repositories) error) error {
	return f.MemoryStore.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		return fn(ctx, lockFailRepos{Repositories: repos, failID: f.failID})
	})
}

type lockFailRepos struct {
	contracts.Repositories
	failID string
}

func (r lockFailRepos) Sessions() contracts.SessionRepository {
	return lockFailSessions{SessionRepository: r.Repositories.Sessions(), failID: r.failID}
}

type lockFailSessions struct {
	contracts.SessionRepository
	failID string
}

func (s lockFailSessions) GetForUpdate(ctx context.Context, id string) (*entities.Session, error) {
	if id == s.failID {
		return nil, entities.NewError(entities.ErrStorageUnavailable, id, "").WithDetail("lock timeout")
	}
	return s.SessionRepository.GetForUpdate(ctx, id)
}

func TestAbandonExpiredContinuesAfterFailure(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()

	stuck := env.start(t, "u1", entities.ModeQuick, 2)
	env.advance(time.Minute)
	stale := env.start(t, "u2", entities.ModeQuick, 2)
	env.advance(3 * time.Hour)

	svc := NewSessionService(
		lockFailStore{MemoryStore: env.store, failID: stuck.ID},
		env.bank,
		zap.NewNop(),
		WithClock(func() time.Time { return *env.clock }),
	)

	n, err := svc.AbandonExpired(ctx, 2*time.Hour)
	assertKind(t, err, entities.ErrStorageUnavailable)
	if n != 1 {
		t.Fatalf("AbandonExpired() = %d, want 1", n)
	}

	wantStatus := map[string]entities.Status{
		stuck.ID: entities.StatusActive,
		stale.ID: entities.StatusAbandoned,
	}
	for id, want := range wantStatus {
		got, err := env.store.Sessions().GetByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != want {
			t.Errorf("session %s status = %s, want %s", id, got.Status, want)
		}
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t, 2)
	env.events.err = errors.New("broker down")

	s := env.start(t, "u1", entities.ModeQuick, 2)
	env.submit(t, s, true)
}

type blockingStore struct {
	contracts.Store
	started chan struct{}
}

func (b blockingStore) WithinTx(ctx context.Context, fn func(context.Context, contracts.Repositories) error) error {
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestStorageTimeout(t *testing.T) {
	env := newTestEnv(t, 2)
	s := env.start(t, "u1", entities.ModeQuick, 2)

	slow := blockingStore{Store: env.store, started: make(chan struct{})}
	svc := NewSessionService(slow, env.bank, zap.NewNop(), WithStorageTimeout(20*time.Millisecond))

	_, err := svc.SubmitAnswer(context.Background(), SubmitAnswerInput{UserID: "u1", SessionID: s.ID, QuestionID: "q01"})
	assertKind(t, err, entities.ErrStorageUnavailable)
}

func TestMistakenQuestionIDs(t *testing.T) {
	history := []*entities.AnswerRecord{
		{QuestionID: "a", IsCorrect: false},
		{QuestionID: "b", IsCorrect: true},
		{QuestionID: "c", IsCorrect: false},
		{QuestionID: "a", IsCorrect: true},
		{QuestionID: "b", IsCorrect: false},
	}
	got := mistakenQuestionIDs(history)
	if fmt.Sprint(got) != "[b c]" {
		t.Fatalf("mistakenQuestionIDs() = %v, want [b c]", got)
	}
}

type flakyCache struct {
	nopCache
	failures int
	calls    int
}

func (c *flakyCache) Invalidate(context.Context, string) error {
	c.calls++
	if c.calls <= c.failures {
		return errors.New("redis timeout")
	}
	return nil
}

func TestSubmitAnswerRetriesFailedInvalidation(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
	}{
		{name: "first call succeeds", failures: 0, wantCalls: 1},
		{name: "retry succeeds", failures: 1, wantCalls: 2},
		{name: "both fail", failures: 2, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &flakyCache{failures: tt.failures}
			env := newTestEnv(t, 2, WithSummaryCache(cache))
			s := env.start(t, "u1", entities.ModeQuick, 2)

			env.submit(t, s, true)

			if cache.calls != tt.wantCalls {
				t.Fatalf("Invalidate() calls = %d, want %d", cache.calls, tt.wantCalls)
			}
		})
	}
}
