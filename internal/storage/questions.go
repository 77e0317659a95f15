package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

var ErrDuplicateQuestionID = errors.New("duplicate question id")

// QuestionBank is a read-only question store backed by a JSON file loaded
// into memory.
type QuestionBank struct {
	questions []*entities.Question // sorted by id
	byID      map[string]*entities.Question
}

// LoadQuestionBank reads and validates the question bank at path.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	questions, err := ReadQuestions(path)
	if err != nil {
		return nil, err
	}
	return NewQuestionBank(questions)
}

// ReadQuestions reads a {"questions": [...]} file and validates every entry.
func ReadQuestions(path string) ([]*entities.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Questions []*entities.Question `json:"questions"`
	}
	if err = json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions JSON: %w", err)
	}

	for _, q := range wrapper.Questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	return wrapper.Questions, nil
}

// NewQuestionBank builds a bank from already validated questions.
func NewQuestionBank(questions []*entities.Question) (*QuestionBank, error) {
	b := &QuestionBank{
		questions: make([]*entities.Question, 0, len(questions)),
		byID:      make(map[string]*entities.Question, len(questions)),
	}
	for _, q := range questions {
		if _, ok := b.byID[q.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestionID, q.ID)
		}
		b.byID[q.ID] = q
		b.questions = append(b.questions, q)
	}
	sort.Slice(b.questions, func(i, j int) bool { return b.questions[i].ID < b.questions[j].ID })
	return b, nil
}

// Len returns the number of questions in the bank.
func (b *QuestionBank) Len() int { return len(b.questions) }

func (b *QuestionBank) QuestionsByIDs(ctx context.Context, ids []string) ([]*entities.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get questions", err)
	}
	out := make([]*entities.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := b.byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *QuestionBank) QuestionPool(ctx context.Context, pq entities.PoolQuery) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("question pool", err)
	}
	var ids []string
	for _, q := range b.questions {
		if pq.Matches(q) {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (b *QuestionBank) QuestionIDsInScope(ctx context.Context, scope entities.Scope) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("questions in scope", err)
	}
	if scope.Kind != entities.ScopeTopic && scope.Kind != entities.ScopeSet {
		return nil, entities.NewError(entities.ErrInvalidRequest, "", "").WithDetail("unknown scope %q", scope.Kind)
	}
	var ids []string
	for _, q := range b.questions {
		if q.InScope(scope) {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}
