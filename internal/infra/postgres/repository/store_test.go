package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

// newTestPool connects to TEST_DATABASE_URL and applies the schema. Tests
// are skipped in -short mode or when the variable is unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	return pool
}

func seedQuestions(t *testing.T, pool *pgxpool.Pool, prefix string, n int) []string {
	t.Helper()

	repo := NewQuestionRepository(pool)
	ids := make([]string, n)
	for i := range ids {
		q := &entities.Question{
			ID:                 prefix + "-" + string(rune('a'+i)),
			Type:               entities.TypeVocabulary,
			Text:               "pick one",
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: 1,
			Difficulty:         entities.DifficultyEasy,
			Topic:              prefix,
			SetID:              prefix + "-set",
		}
		if err := repo.Insert(context.Background(), q); err != nil {
			t.Fatalf("insert question: %v", err)
		}
		ids[i] = q.ID
	}
	return ids
}

func TestStoreSessionLifecycle(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	prefix := "t" + uuid.NewString()[:8]
	ids := seedQuestions(t, pool, prefix, 2)
	store := NewStore(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	s := entities.NewSession(prefix+"-user", entities.ModeQuick, entities.Filters{Topic: prefix}, ids, now)
	if err := store.Sessions().Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	q := &entities.Question{ID: ids[0], Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1}
	err := store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		locked, err := repos.Sessions().GetForUpdate(ctx, s.ID)
		if err != nil {
			return err
		}
		a := entities.NewAnswerRecord(locked, q, 1, 3, now)
		if err := repos.Answers().Record(ctx, a); err != nil {
			return err
		}
		locked.Advance(a.IsCorrect, now)
		return repos.Sessions().Update(ctx, locked)
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}

	got, err := store.Sessions().GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.CurrentIndex != 1 || got.CorrectCount != 1 || got.Version != 1 {
		t.Fatalf("session = %+v, want index 1, correct 1, version 1", got)
	}
	if got.Filters.Topic != prefix {
		t.Fatalf("filters not persisted: %+v", got.Filters)
	}

	dup := entities.NewAnswerRecord(s, q, 0, 1, now)
	if err := store.Answers().Record(ctx, dup); !errors.Is(err, entities.ErrDuplicateAnswer) {
		t.Fatalf("duplicate Record() error = %v, want ErrDuplicateAnswer", err)
	}

	answers, err := store.Answers().FindForUser(ctx, s.UserID, entities.AnswerFilter{QuestionIDs: ids})
	if err != nil {
		t.Fatalf("FindForUser() error = %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("FindForUser() returned %d answers, want 1", len(answers))
	}

	if _, err := store.Sessions().GetByID(ctx, uuid.NewString()); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Fatalf("GetByID(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	prefix := "t" + uuid.NewString()[:8]
	ids := seedQuestions(t, pool, prefix, 1)
	store := NewStore(pool)

	s := entities.NewSession(prefix+"-user", entities.ModeQuick, entities.Filters{}, ids, time.Now().UTC())
	if err := store.Sessions().Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos contracts.Repositories) error {
		locked, err := repos.Sessions().GetForUpdate(ctx, s.ID)
		if err != nil {
			return err
		}
		locked.Abandon(time.Now().UTC())
		if err := repos.Sessions().Update(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	got, err := store.Sessions().GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != entities.StatusActive {
		t.Fatalf("status = %s after rollback, want active", got.Status)
	}
}

func TestQuestionRepositoryPool(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	prefix := "t" + uuid.NewString()[:8]
	ids := seedQuestions(t, pool, prefix, 3)
	repo := NewQuestionRepository(pool)

	got, err := repo.QuestionPool(ctx, entities.PoolQuery{
		Filters:    entities.Filters{Topic: prefix},
		ExcludeIDs: ids[:1],
	})
	if err != nil {
		t.Fatalf("QuestionPool() error = %v", err)
	}
	if len(got) != 2 || got[0] != ids[1] || got[1] != ids[2] {
		t.Fatalf("QuestionPool() = %v, want %v", got, ids[1:])
	}

	if err := repo.Insert(ctx, &entities.Question{
		ID: ids[0], Type: entities.TypeVocabulary, Options: []string{"a", "b"},
		Difficulty: entities.DifficultyEasy, Topic: prefix, SetID: prefix,
	}); !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("Insert(duplicate) error = %v, want ErrDuplicateQuestion", err)
	}

	qs, err := repo.QuestionsByIDs(ctx, []string{ids[2], ids[0]})
	if err != nil {
		t.Fatalf("QuestionsByIDs() error = %v", err)
	}
	if len(qs) != 2 || qs[0].ID != ids[2] || qs[1].ID != ids[0] {
		t.Fatalf("QuestionsByIDs() did not keep requested order")
	}
}

func TestImportQuestionsIsAllOrNothing(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	prefix := "t" + uuid.NewString()[:8]
	existing := seedQuestions(t, pool, prefix, 1)

	question := func(id string) *entities.Question {
		return &entities.Question{
			ID: id, Type: entities.TypeVocabulary, Text: "pick one", Options: []string{"a", "b"},
			Difficulty: entities.DifficultyEasy, Topic: prefix, SetID: prefix + "-import",
		}
	}

	batch := []*entities.Question{question(prefix + "-new"), question(existing[0])}
	if err := ImportQuestions(ctx, pool, batch); !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("ImportQuestions() error = %v, want ErrDuplicateQuestion", err)
	}

	repo := NewQuestionRepository(pool)
	ids, err := repo.QuestionIDsInScope(ctx, entities.Scope{Kind: entities.ScopeSet, ID: prefix + "-import"})
	if err != nil {
		t.Fatalf("QuestionIDsInScope() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("partial import persisted %v", ids)
	}

	if err := ImportQuestions(ctx, pool, batch[:1]); err != nil {
		t.Fatalf("ImportQuestions() error = %v", err)
	}
}
