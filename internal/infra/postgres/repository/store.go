package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

// Store is the Postgres session and answer backend.
type Store struct {
	pool       *pgxpool.Pool
	transactor *postgres.Transactor
	sessions   *SessionRepository
	answers    *AnswerRepository
}

// NewStore creates a Store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:       pool,
		transactor: postgres.NewTransactor(pool),
		sessions:   NewSessionRepository(pool),
		answers:    NewAnswerRepository(pool),
	}
}

func (s *Store) Sessions() contracts.SessionRepository { return s.sessions }
func (s *Store) Answers() contracts.AnswerLedger        { return s.answers }

// WithinTx runs fn with repositories bound to one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos contracts.Repositories) error) error {
	return s.transactor.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, txRepositories{
			sessions: NewSessionRepository(tx),
			answers:  NewAnswerRepository(tx),
		})
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return postgres.Classify("ping", s.pool.Ping(ctx))
}

type txRepositories struct {
	sessions *SessionRepository
	answers  *AnswerRepository
}

func (r txRepositories) Sessions() contracts.SessionRepository { return r.sessions }
func (r txRepositories) Answers() contracts.AnswerLedger        { return r.answers }
