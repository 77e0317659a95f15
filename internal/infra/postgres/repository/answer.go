package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

const answerSessionQuestionKey = "answer_records_session_question_key"

const answerColumns = `
	id, session_id, user_id, question_id, position,
	selected_option_index, is_correct, time_spent_seconds, answered_at`

// AnswerRepository is the Postgres answer ledger. Records are never
// updated or deleted.
type AnswerRepository struct {
	db postgres.DBTX
}

// NewAnswerRepository creates a new AnswerRepository on a pool or transaction.
func NewAnswerRepository(db postgres.DBTX) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// Record appends an answer. The unique (session_id, question_id) constraint
// rejects a second answer to the same question.
func (r *AnswerRepository) Record(ctx context.Context, a *entities.AnswerRecord) error {
	query := `
		INSERT INTO answer_records (` + answerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		a.ID,
		a.SessionID,
		a.UserID,
		a.QuestionID,
		a.Position,
		a.SelectedOptionIndex,
		a.IsCorrect,
		a.TimeSpentSeconds,
		a.AnsweredAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, answerSessionQuestionKey) {
			return entities.NewError(entities.ErrDuplicateAnswer, a.SessionID, a.QuestionID).WithCause(err)
		}
		return postgres.Classify("record answer", err)
	}

	return nil
}

// FindForSession returns a session's answers in answering order.
func (r *AnswerRepository) FindForSession(ctx context.Context, sessionID string) ([]*entities.AnswerRecord, error) {
	query := `
		SELECT ` + answerColumns + `
		FROM answer_records
		WHERE session_id = $1
		ORDER BY answered_at, position
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, postgres.Classify("find session answers", err)
	}

	return collectAnswers(rows)
}

// FindForUser returns a user's answers across sessions, oldest first.
func (r *AnswerRepository) FindForUser(
	ctx context.Context,
	userID string,
	filter entities.AnswerFilter,
) ([]*entities.AnswerRecord, error) {
	query := `
		SELECT ` + answerColumns + `
		FROM answer_records
		WHERE user_id = $1
		  AND ($2::text[] IS NULL OR question_id = ANY($2))
		  AND ($3::timestamptz IS NULL OR answered_at >= $3)
		ORDER BY answered_at, session_id, position
	`

	var questionIDs []string
	if len(filter.QuestionIDs) > 0 {
		questionIDs = filter.QuestionIDs
	}

	rows, err := r.db.Query(ctx, query, userID, questionIDs, filter.Since)
	if err != nil {
		return nil, postgres.Classify("find user answers", err)
	}

	return collectAnswers(rows)
}

func collectAnswers(rows pgx.Rows) ([]*entities.AnswerRecord, error) {
	answers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.AnswerRecord, error) {
		var a entities.AnswerRecord
		err := row.Scan(
			&a.ID,
			&a.SessionID,
			&a.UserID,
			&a.QuestionID,
			&a.Position,
			&a.SelectedOptionIndex,
			&a.IsCorrect,
			&a.TimeSpentSeconds,
			&a.AnsweredAt,
		)
		return &a, err
	})
	if err != nil {
		return nil, postgres.Classify("scan answers", err)
	}

	return answers, nil
}
