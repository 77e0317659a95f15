// Package contracts declares the storage ports the session core depends on.
// Postgres and in-memory backends both implement them.
package contracts

import (
	"context"
	"time"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// SessionRepository persists sessions. Lookups of unknown ids return an
// error matching entities.ErrSessionNotFound.
type SessionRepository interface {
	Create(ctx context.Context, s *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	// GetForUpdate loads a session and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*entities.Session, error)
	GetActiveByUser(ctx context.Context, userID string) (*entities.Session, error)
	// Update writes s if its version is unchanged and bumps s.Version.
	Update(ctx context.Context, s *entities.Session) error
	ListStaleActive(ctx context.Context, startedBefore time.Time) ([]string, error)
}

// AnswerLedger is the append-only answer log.
type AnswerLedger interface {
	// Record appends a; a second record for the same (session, question)
	// fails with entities.ErrDuplicateAnswer.
	Record(ctx context.Context, a *entities.AnswerRecord) error
	FindForSession(ctx context.Context, sessionID string) ([]*entities.AnswerRecord, error)
	FindForUser(ctx context.Context, userID string, filter entities.AnswerFilter) ([]*entities.AnswerRecord, error)
}

// QuestionStore is the read-only question bank.
type QuestionStore interface {
	// QuestionsByIDs returns the known questions in the order of ids.
	QuestionsByIDs(ctx context.Context, ids []string) ([]*entities.Question, error)
	// QuestionPool returns eligible question ids ordered by id.
	QuestionPool(ctx context.Context, q entities.PoolQuery) ([]string, error)
	QuestionIDsInScope(ctx context.Context, scope entities.Scope) ([]string, error)
}

// Repositories groups the session and answer repositories bound to one
// connection or transaction.
type Repositories interface {
	Sessions() SessionRepository
	Answers() AnswerLedger
}

// Transactor runs fn atomically. Writes made through repos are committed
// only when fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is a storage backend for sessions and answers.
type Store interface {
	Repositories
	Transactor
}
