// Package entities contains domain entities used across the application.
package entities

import "fmt"

// QuestionType is the closed set of exam question kinds.
type QuestionType string

const (
	TypeSentenceCompletion     QuestionType = "sentence-completion"
	TypeRestatement            QuestionType = "restatement"
	TypeVocabulary             QuestionType = "vocabulary"
	TypeReadingComprehension   QuestionType = "reading-comprehension"
	TypeWordFormation          QuestionType = "word-formation"
	TypeGrammarInContext       QuestionType = "grammar-in-context"
	TypeListeningComprehension QuestionType = "listening-comprehension"
)

var questionTypes = map[QuestionType]struct{}{
	TypeSentenceCompletion:     {},
	TypeRestatement:            {},
	TypeVocabulary:             {},
	TypeReadingComprehension:   {},
	TypeWordFormation:          {},
	TypeGrammarInContext:       {},
	TypeListeningComprehension: {},
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	_, ok := questionTypes[t]
	return ok
}

// Difficulty is the difficulty grade of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a single multiple-choice item from the question bank.
// The core only ever reads questions.
type Question struct {
	ID                 string       `json:"id"`
	Type               QuestionType `json:"type"`
	Text               string       `json:"text"`
	Options            []string     `json:"options"`
	CorrectAnswerIndex int          `json:"correct_answer_index"`
	Difficulty         Difficulty   `json:"difficulty"`
	Topic              string       `json:"topic"`
	SetID              string       `json:"set_id"`
	PassageID          *string      `json:"passage_id,omitempty"` // weak reference to a shared passage
	Explanation        string       `json:"explanation,omitempty"`
}

// Validate checks the structural invariants of a question record.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question id is empty")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("question %s: unknown difficulty %q", q.ID, q.Difficulty)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %s: needs at least 2 options, got %d", q.ID, len(q.Options))
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("question %s: correct answer index %d out of range", q.ID, q.CorrectAnswerIndex)
	}
	return nil
}

// IsCorrect reports whether the selected option is the correct one.
func (q *Question) IsCorrect(selected int) bool {
	return selected == q.CorrectAnswerIndex
}

// PublicQuestion is a question as shown to a client before answering.
type PublicQuestion struct {
	ID         string       `json:"id"`
	Type       QuestionType `json:"type"`
	Text       string       `json:"text"`
	Options    []string     `json:"options"`
	Difficulty Difficulty   `json:"difficulty"`
	Topic      string       `json:"topic"`
	SetID      string       `json:"set_id"`
	PassageID  *string      `json:"passage_id,omitempty"`
	Position   int          `json:"position"` // 0-based position in the session
	Total      int          `json:"total"`
}

// Public strips the answer key from q.
func (q *Question) Public(position, total int) PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
		SetID:      q.SetID,
		PassageID:  q.PassageID,
		Position:   position,
		Total:      total,
	}
}

// PoolQuery describes which questions are eligible for a new session.
type PoolQuery struct {
	Filters    Filters
	ExcludeIDs []string // never eligible
	IncludeIDs []string // when non-empty, only these are eligible
}

// Matches reports whether q is eligible under the query.
func (p PoolQuery) Matches(q *Question) bool {
	f := p.Filters
	if f.Topic != "" && q.Topic != f.Topic {
		return false
	}
	if f.SetID != "" && q.SetID != f.SetID {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, q.Type) {
		return false
	}
	if containsID(p.ExcludeIDs, q.ID) {
		return false
	}
	if len(p.IncludeIDs) > 0 && !containsID(p.IncludeIDs, q.ID) {
		return false
	}
	return true
}

// InScope reports whether q belongs to the given scope.
func (q *Question) InScope(scope Scope) bool {
	switch scope.Kind {
	case ScopeTopic:
		return q.Topic == scope.ID
	case ScopeSet:
		return q.SetID == scope.ID
	}
	return false
}

func containsType(types []QuestionType, t QuestionType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
