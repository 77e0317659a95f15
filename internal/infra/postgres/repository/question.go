package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

var ErrDuplicateQuestion = errors.New("question already exists")

const questionColumns = `
	id, type, text, options, correct_answer_index, difficulty,
	topic, set_id, passage_id, explanation`

// QuestionRepository reads the question bank. Insert is used only by the
// import command.
type QuestionRepository struct {
	db postgres.DBTX
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db postgres.DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Insert adds a question. An existing id fails with ErrDuplicateQuestion.
func (r *QuestionRepository) Insert(ctx context.Context, q *entities.Question) error {
	query := `
		INSERT INTO questions (` + questionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		q.ID,
		q.Type,
		q.Text,
		q.Options,
		q.CorrectAnswerIndex,
		q.Difficulty,
		q.Topic,
		q.SetID,
		q.PassageID,
		q.Explanation,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("insert question %s: %w", q.ID, ErrDuplicateQuestion)
		}
		return postgres.Classify("insert question", err)
	}

	return nil
}

// QuestionsByIDs returns the known questions in the order of ids.
func (r *QuestionRepository) QuestionsByIDs(ctx context.Context, ids []string) ([]*entities.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, postgres.Classify("get questions", err)
	}

	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Question, error) {
		var q entities.Question
		err := row.Scan(
			&q.ID,
			&q.Type,
			&q.Text,
			&q.Options,
			&q.CorrectAnswerIndex,
			&q.Difficulty,
			&q.Topic,
			&q.SetID,
			&q.PassageID,
			&q.Explanation,
		)
		return &q, err
	})
	if err != nil {
		return nil, postgres.Classify("scan questions", err)
	}

	byID := make(map[string]*entities.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}

	out := make([]*entities.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}

	return out, nil
}

// QuestionPool returns ids of questions eligible under pq, ordered by id.
func (r *QuestionRepository) QuestionPool(ctx context.Context, pq entities.PoolQuery) ([]string, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	f := pq.Filters
	if f.Topic != "" {
		add("topic = $%d", f.Topic)
	}
	if f.SetID != "" {
		add("set_id = $%d", f.SetID)
	}
	if f.Difficulty != "" {
		add("difficulty = $%d", string(f.Difficulty))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		add("type = ANY($%d)", types)
	}
	if len(pq.ExcludeIDs) > 0 {
		add("NOT (id = ANY($%d))", pq.ExcludeIDs)
	}
	if len(pq.IncludeIDs) > 0 {
		add("id = ANY($%d)", pq.IncludeIDs)
	}

	query := `SELECT id FROM questions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	return r.collectIDs(ctx, "question pool", query, args...)
}

// QuestionIDsInScope returns ids of every question in a topic or set.
func (r *QuestionRepository) QuestionIDsInScope(ctx context.Context, scope entities.Scope) ([]string, error) {
	var column string
	switch scope.Kind {
	case entities.ScopeTopic:
		column = "topic"
	case entities.ScopeSet:
		column = "set_id"
	default:
		return nil, entities.NewError(entities.ErrInvalidRequest, "", "").WithDetail("unknown scope %q", scope.Kind)
	}

	query := `SELECT id FROM questions WHERE ` + column + ` = $1 ORDER BY id`

	return r.collectIDs(ctx, "questions in scope", query, scope.ID)
}

func (r *QuestionRepository) collectIDs(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.Classify(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, postgres.Classify(op, err)
	}

	return ids, nil
}
