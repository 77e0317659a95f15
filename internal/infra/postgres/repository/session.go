package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

var ErrOptimisticLock = errors.New("session was modified by another process")

const sessionColumns = `
	id, user_id, mode, filters, question_ids, current_index, correct_count,
	status, score_percentage, started_at, completed_at, abandoned_at, version`

// SessionRepository provides access to exam sessions in the database.
type SessionRepository struct {
	db postgres.DBTX
}

// NewSessionRepository creates a new SessionRepository on a pool or transaction.
func NewSessionRepository(db postgres.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *entities.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		s.ID,
		s.UserID,
		s.Mode,
		s.Filters,
		s.QuestionIDs,
		s.CurrentIndex,
		s.CorrectCount,
		s.Status,
		s.ScorePercentage,
		s.StartedAt,
		s.CompletedAt,
		s.AbandonedAt,
		s.Version,
	)
	if err != nil {
		return postgres.Classify("create session", err)
	}

	return nil
}

// GetByID retrieves a session without locking it.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, id, "get session")
	}

	return s, nil
}

// GetForUpdate retrieves a session with a row-level lock held until the
// transaction ends.
func (r *SessionRepository) GetForUpdate(ctx context.Context, id string) (*entities.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`

	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, id, "get session for update")
	}

	return s, nil
}

// GetActiveByUser retrieves the most recent active session of a user.
func (r *SessionRepository) GetActiveByUser(ctx context.Context, userID string) (*entities.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY started_at DESC
		LIMIT 1
	`

	s, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFoundOr(err, "", "get active session")
	}

	return s, nil
}

// Update writes the mutable session fields using optimistic locking.
func (r *SessionRepository) Update(ctx context.Context, s *entities.Session) error {
	query := `
		UPDATE sessions
		SET current_index = $1,
		    correct_count = $2,
		    status = $3,
		    score_percentage = $4,
		    completed_at = $5,
		    abandoned_at = $6,
		    version = version + 1
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.Exec(
		ctx,
		query,
		s.CurrentIndex,
		s.CorrectCount,
		s.Status,
		s.ScorePercentage,
		s.CompletedAt,
		s.AbandonedAt,
		s.ID,
		s.Version,
	)
	if err != nil {
		return postgres.Classify("update session", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update session %s: %w", s.ID, ErrOptimisticLock)
	}

	// Increment version locally
	s.Version++

	return nil
}

// ListStaleActive returns ids of active sessions started before the cutoff.
func (r *SessionRepository) ListStaleActive(ctx context.Context, startedBefore time.Time) ([]string, error) {
	query := `
		SELECT id
		FROM sessions
		WHERE status = 'active' AND started_at < $1
		ORDER BY started_at
	`

	rows, err := r.db.Query(ctx, query, startedBefore)
	if err != nil {
		return nil, postgres.Classify("list stale sessions", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, postgres.Classify("collect stale sessions", err)
	}

	return ids, nil
}

func scanSession(row pgx.Row) (*entities.Session, error) {
	var s entities.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Mode,
		&s.Filters,
		&s.QuestionIDs,
		&s.CurrentIndex,
		&s.CorrectCount,
		&s.Status,
		&s.ScorePercentage,
		&s.StartedAt,
		&s.CompletedAt,
		&s.AbandonedAt,
		&s.Version,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func notFoundOr(err error, sessionID, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.NewError(entities.ErrSessionNotFound, sessionID, "")
	}
	return postgres.Classify(op, err)
}
