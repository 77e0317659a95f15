package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

var ErrVersionConflict = errors.New("session version conflict")

type answerKey struct {
	sessionID  string
	questionID string
}

// MemoryStore keeps sessions and answers in process memory. A single lock
// guards the whole store; transactions hold it from start to commit and
// stage their writes until fn succeeds.
type MemoryStore struct {
	lock chan struct{}

	sessions map[string]*entities.Session
	answers  []*entities.AnswerRecord
	keys     map[answerKey]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lock:     make(chan struct{}, 1),
		sessions: make(map[string]*entities.Session),
		keys:     make(map[answerKey]struct{}),
	}
}

func (s *MemoryStore) Sessions() contracts.SessionRepository { return &memoryView{store: s} }
func (s *MemoryStore) Answers() contracts.AnswerLedger        { return &memoryView{store: s} }

// WithinTx runs fn with exclusive access to the store. Staged writes are
// applied only when fn returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos contracts.Repositories) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	tx := &staging{
		sessions: make(map[string]*entities.Session),
		keys:     make(map[answerKey]struct{}),
	}
	if err := fn(ctx, txView{view: &memoryView{store: s, tx: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("commit", err)
	}

	for id, sess := range tx.sessions {
		s.sessions[id] = sess
	}
	for _, a := range tx.answers {
		s.answers = append(s.answers, a)
		s.keys[answerKey{a.SessionID, a.QuestionID}] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return unavailable("acquire store lock", ctx.Err())
	}
}

func (s *MemoryStore) release() { <-s.lock }

type staging struct {
	sessions map[string]*entities.Session
	answers  []*entities.AnswerRecord
	keys     map[answerKey]struct{}
}

type txView struct{ view *memoryView }

func (t txView) Sessions() contracts.SessionRepository { return t.view }
func (t txView) Answers() contracts.AnswerLedger        { return t.view }

// memoryView implements the repositories either on committed state (tx nil,
// one lock per call) or inside a transaction that already holds the lock.
type memoryView struct {
	store *MemoryStore
	tx    *staging
}

func (v *memoryView) run(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	if v.tx == nil {
		if err := v.store.acquire(ctx); err != nil {
			return err
		}
		defer v.store.release()
	}
	return fn()
}

func (v *memoryView) session(id string) (*entities.Session, bool) {
	if v.tx != nil {
		if s, ok := v.tx.sessions[id]; ok {
			return s, true
		}
	}
	s, ok := v.store.sessions[id]
	return s, ok
}

func (v *memoryView) putSession(s *entities.Session) {
	if v.tx != nil {
		v.tx.sessions[s.ID] = s
		return
	}
	v.store.sessions[s.ID] = s
}

func (v *memoryView) Create(ctx context.Context, s *entities.Session) error {
	return v.run(ctx, "create session", func() error {
		if _, ok := v.session(s.ID); ok {
			return fmt.Errorf("create session %s: already exists", s.ID)
		}
		v.putSession(cloneSession(s))
		return nil
	})
}

func (v *memoryView) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	var out *entities.Session
	err := v.run(ctx, "get session", func() error {
		s, ok := v.session(id)
		if !ok {
			return entities.NewError(entities.ErrSessionNotFound, id, "")
		}
		out = cloneSession(s)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store-wide lock already serializes writers.
func (v *memoryView) GetForUpdate(ctx context.Context, id string) (*entities.Session, error) {
	return v.GetByID(ctx, id)
}

func (v *memoryView) GetActiveByUser(ctx context.Context, userID string) (*entities.Session, error) {
	var out *entities.Session
	err := v.run(ctx, "get active session", func() error {
		for _, s := range v.allSessions() {
			if s.UserID != userID || !s.IsActive() {
				continue
			}
			if out == nil || s.StartedAt.After(out.StartedAt) {
				out = s
			}
		}
		if out == nil {
			return entities.NewError(entities.ErrSessionNotFound, "", "")
		}
		out = cloneSession(out)
		return nil
	})
	return out, err
}

func (v *memoryView) Update(ctx context.Context, s *entities.Session) error {
	return v.run(ctx, "update session", func() error {
		cur, ok := v.session(s.ID)
		if !ok {
			return entities.NewError(entities.ErrSessionNotFound, s.ID, "")
		}
		if cur.Version != s.Version {
			return fmt.Errorf("update session %s: %w", s.ID, ErrVersionConflict)
		}
		s.Version++
		v.putSession(cloneSession(s))
		return nil
	})
}

func (v *memoryView) ListStaleActive(ctx context.Context, startedBefore time.Time) ([]string, error) {
	var ids []string
	err := v.run(ctx, "list stale sessions", func() error {
		stale := make([]*entities.Session, 0)
		for _, s := range v.allSessions() {
			if s.IsActive() && s.StartedAt.Before(startedBefore) {
				stale = append(stale, s)
			}
		}
		sort.Slice(stale, func(i, j int) bool { return stale[i].StartedAt.Before(stale[j].StartedAt) })
		for _, s := range stale {
			ids = append(ids, s.ID)
		}
		return nil
	})
	return ids, err
}

func (v *memoryView) allSessions() []*entities.Session {
	out := make([]*entities.Session, 0, len(v.store.sessions))
	for id, s := range v.store.sessions {
		if v.tx != nil {
			if staged, ok := v.tx.sessions[id]; ok {
				s = staged
			}
		}
		out = append(out, s)
	}
	if v.tx != nil {
		for id, s := range v.tx.sessions {
			if _, ok := v.store.sessions[id]; !ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (v *memoryView) Record(ctx context.Context, a *entities.AnswerRecord) error {
	return v.run(ctx, "record answer", func() error {
		key := answerKey{a.SessionID, a.QuestionID}
		_, committed := v.store.keys[key]
		staged := false
		if v.tx != nil {
			_, staged = v.tx.keys[key]
		}
		if committed || staged {
			return entities.NewError(entities.ErrDuplicateAnswer, a.SessionID, a.QuestionID)
		}

		rec := *a
		if v.tx != nil {
			v.tx.answers = append(v.tx.answers, &rec)
			v.tx.keys[key] = struct{}{}
			return nil
		}
		v.store.answers = append(v.store.answers, &rec)
		v.store.keys[key] = struct{}{}
		return nil
	})
}

func (v *memoryView) FindForSession(ctx context.Context, sessionID string) ([]*entities.AnswerRecord, error) {
	var out []*entities.AnswerRecord
	err := v.run(ctx, "find session answers", func() error {
		out = v.collect(func(a *entities.AnswerRecord) bool { return a.SessionID == sessionID })
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
				return out[i].AnsweredAt.Before(out[j].AnsweredAt)
			}
			return out[i].Position < out[j].Position
		})
		return nil
	})
	return out, err
}

func (v *memoryView) FindForUser(ctx context.Context, userID string, filter entities.AnswerFilter) ([]*entities.AnswerRecord, error) {
	var out []*entities.AnswerRecord
	err := v.run(ctx, "find user answers", func() error {
		out = v.collect(func(a *entities.AnswerRecord) bool { return a.UserID == userID && filter.Matches(a) })
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if !a.AnsweredAt.Equal(b.AnsweredAt) {
				return a.AnsweredAt.Before(b.AnsweredAt)
			}
			if a.SessionID != b.SessionID {
				return a.SessionID < b.SessionID
			}
			return a.Position < b.Position
		})
		return nil
	})
	return out, err
}

func (v *memoryView) collect(keep func(*entities.AnswerRecord) bool) []*entities.AnswerRecord {
	var out []*entities.AnswerRecord
	add := func(list []*entities.AnswerRecord) {
		for _, a := range list {
			if keep(a) {
				rec := *a
				out = append(out, &rec)
			}
		}
	}
	add(v.store.answers)
	if v.tx != nil {
		add(v.tx.answers)
	}
	return out
}

func cloneSession(s *entities.Session) *entities.Session {
	c := *s
	c.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	c.Filters.Types = append([]entities.QuestionType(nil), s.Filters.Types...)
	if s.ScorePercentage != nil {
		v := *s.ScorePercentage
		c.ScorePercentage = &v
	}
	if s.CompletedAt != nil {
		v := *s.CompletedAt
		c.CompletedAt = &v
	}
	if s.AbandonedAt != nil {
		v := *s.AbandonedAt
		c.AbandonedAt = &v
	}
	return &c
}

func unavailable(op string, err error) error {
	return entities.NewError(entities.ErrStorageUnavailable, "", "").WithDetail("%s", op).WithCause(err)
}
