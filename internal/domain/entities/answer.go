package entities

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the immutable record of one submitted answer.
// At most one record exists per (SessionID, QuestionID).
type AnswerRecord struct {
	ID                  string    `json:"id"`
	SessionID           string    `json:"session_id"`
	UserID              string    `json:"user_id"`
	QuestionID          string    `json:"question_id"`
	Position            int       `json:"position"`
	SelectedOptionIndex int       `json:"selected_option_index"`
	IsCorrect           bool      `json:"is_correct"`
	TimeSpentSeconds    int       `json:"time_spent_seconds"`
	AnsweredAt          time.Time `json:"answered_at"`
}

// NewAnswerRecord grades the selection against q and builds the record.
func NewAnswerRecord(s *Session, q *Question, selected, timeSpentSeconds int, now time.Time) *AnswerRecord {
	return &AnswerRecord{
		ID:                  uuid.NewString(),
		SessionID:           s.ID,
		UserID:              s.UserID,
		QuestionID:          q.ID,
		Position:            s.CurrentIndex,
		SelectedOptionIndex: selected,
		IsCorrect:           q.IsCorrect(selected),
		TimeSpentSeconds:    timeSpentSeconds,
		AnsweredAt:          now,
	}
}

// AnswerFilter narrows FindForUser results.
type AnswerFilter struct {
	QuestionIDs []string   // empty means all questions
	Since       *time.Time // inclusive lower bound on AnsweredAt
}

// Matches reports whether a passes the filter.
func (f AnswerFilter) Matches(a *AnswerRecord) bool {
	if f.Since != nil && a.AnsweredAt.Before(*f.Since) {
		return false
	}
	if len(f.QuestionIDs) == 0 {
		return true
	}
	for _, id := range f.QuestionIDs {
		if id == a.QuestionID {
			return true
		}
	}
	return false
}
