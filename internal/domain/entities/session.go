package entities

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the question-selection policy chosen at session start.
type Mode string

const (
	ModeQuick          Mode = "quick"
	ModeFull           Mode = "full"
	ModeCustom         Mode = "custom"
	ModePractice       Mode = "practice"
	ModeReviewMistakes Mode = "review_mistakes"
	ModeUnseenOnly     Mode = "unseen_only"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeQuick, ModeFull, ModeCustom, ModePractice, ModeReviewMistakes, ModeUnseenOnly}

// ParseMode validates a raw mode string.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", NewError(ErrInvalidMode, "", "").WithDetail("%q", s)
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Session limits.
const (
	MinQuestionLimit = 1
	MaxQuestionLimit = 100
)

// Filters narrow the question pool at session start. A nil QuestionLimit
// means the mode's default.
type Filters struct {
	QuestionLimit *int           `json:"question_limit,omitempty"`
	Topic         string         `json:"topic,omitempty"`
	SetID         string         `json:"set_id,omitempty"`
	Types         []QuestionType `json:"types,omitempty"`
	Difficulty    Difficulty     `json:"difficulty,omitempty"`
}

// Limit returns a QuestionLimit of n.
func Limit(n int) *int { return &n }

// Validate checks filter values without looking at the question bank.
func (f Filters) Validate() error {
	if n := f.QuestionLimit; n != nil && (*n < MinQuestionLimit || *n > MaxQuestionLimit) {
		return NewError(ErrInvalidRequest, "", "").
			WithDetail("question_limit must be within [%d,%d], got %d", MinQuestionLimit, MaxQuestionLimit, *n)
	}
	for _, t := range f.Types {
		if !t.Valid() {
			return NewError(ErrInvalidRequest, "", "").WithDetail("unknown question type %q", t)
		}
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return NewError(ErrInvalidRequest, "", "").WithDetail("unknown difficulty %q", f.Difficulty)
	}
	return nil
}

// Session represents one user's attempt at an ordered batch of questions.
type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Mode            Mode       `json:"mode"`
	Filters         Filters    `json:"filters"`
	QuestionIDs     []string   `json:"question_ids"`
	CurrentIndex    int        `json:"current_index"`
	CorrectCount    int        `json:"correct_count"`
	Status          Status     `json:"status"`
	ScorePercentage *float64   `json:"score_percentage,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	AbandonedAt     *time.Time `json:"abandoned_at,omitempty"`
	Version         int        `json:"version"`
}

// NewSession creates an active session over the given question ids.
func NewSession(userID string, mode Mode, filters Filters, questionIDs []string, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Mode:         mode,
		Filters:      filters,
		QuestionIDs:  questionIDs,
		CurrentIndex: 0,
		Status:       StatusActive,
		StartedAt:    now,
	}
}

// IsActive reports whether the session still accepts answers.
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// Total returns the number of questions in the session.
func (s *Session) Total() int {
	return len(s.QuestionIDs)
}

// CurrentQuestionID returns the id at the current position, or "" when
// every question has been answered.
func (s *Session) CurrentQuestionID() string {
	if s.CurrentIndex >= len(s.QuestionIDs) {
		return ""
	}
	return s.QuestionIDs[s.CurrentIndex]
}

// Advance moves past the current question and completes the session when
// the last one was answered. It reports whether the session completed.
func (s *Session) Advance(correct bool, now time.Time) bool {
	if correct {
		s.CorrectCount++
	}
	s.CurrentIndex++
	if s.CurrentIndex == len(s.QuestionIDs) {
		s.Complete(now)
		return true
	}
	return false
}

// Complete marks the session as completed and stamps the final score.
func (s *Session) Complete(now time.Time) {
	s.Status = StatusCompleted
	s.CompletedAt = &now
	score := ScorePercentage(s.CorrectCount, s.CurrentIndex)
	s.ScorePercentage = &score
}

// Abandon marks the session as abandoned.
func (s *Session) Abandon(now time.Time) {
	s.Status = StatusAbandoned
	s.AbandonedAt = &now
}

// ScorePercentage returns correct/answered*100, or 0 when nothing was answered.
func ScorePercentage(correct, answered int) float64 {
	if answered <= 0 {
		return 0
	}
	return float64(correct) / float64(answered) * 100
}

// SessionSummary is the final (or running) report of a session.
type SessionSummary struct {
	SessionID        string     `json:"session_id"`
	UserID           string     `json:"user_id"`
	Mode             Mode       `json:"mode"`
	Status           Status     `json:"status"`
	TotalQuestions   int        `json:"total_questions"`
	AnsweredCount    int        `json:"answered_count"`
	CorrectCount     int        `json:"correct_count"`
	ScorePercentage  float64    `json:"score_percentage"`
	TotalTimeSeconds int        `json:"total_time_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Summarize folds the session's answers into a SessionSummary.
func Summarize(s *Session, answers []*AnswerRecord) *SessionSummary {
	sum := &SessionSummary{
		SessionID:      s.ID,
		UserID:         s.UserID,
		Mode:           s.Mode,
		Status:         s.Status,
		TotalQuestions: s.Total(),
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
	for _, a := range answers {
		sum.AnsweredCount++
		if a.IsCorrect {
			sum.CorrectCount++
		}
		sum.TotalTimeSeconds += a.TimeSpentSeconds
	}
	sum.ScorePercentage = ScorePercentage(sum.CorrectCount, sum.AnsweredCount)
	return sum
}
