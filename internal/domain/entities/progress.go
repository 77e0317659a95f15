package entities

import (
	"sort"
	"time"
)

// ScopeKind names the grouping a progress summary is computed over.
type ScopeKind string

const (
	ScopeTopic ScopeKind = "topic"
	ScopeSet   ScopeKind = "set"
)

// Scope identifies one topic or one question set.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

// ProgressSummary holds accuracy and completion statistics for a user
// within a scope. It is always derived from answer records.
type ProgressSummary struct {
	UserID               string   `json:"user_id"`
	Scope                Scope    `json:"scope"`
	TotalQuestions       int      `json:"total_questions"`
	AnsweredCount        int      `json:"answered_count"`
	CorrectCount         int      `json:"correct_count"`
	AttemptCount         int      `json:"attempt_count"`
	AccuracyPercentage   float64  `json:"accuracy_percentage"`
	CompletionPercentage float64  `json:"completion_percentage"`
	LastScorePercentage  *float64 `json:"last_score_percentage"`
	BestScorePercentage  *float64 `json:"best_score_percentage"`
}

type sessionTally struct {
	id       string
	answered int
	correct  int
	lastAt   time.Time
}

// FoldProgress computes a ProgressSummary from the user's answer records.
// questionIDs is the set of questions that belong to scope; records outside
// it are ignored. The result depends only on its inputs.
//
// A question counts as answered once it has any record and as correct when
// its latest record is correct, so CorrectCount <= AnsweredCount <= TotalQuestions.
func FoldProgress(userID string, scope Scope, questionIDs []string, records []*AnswerRecord) *ProgressSummary {
	inScope := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		inScope[id] = struct{}{}
	}

	sorted := make([]*AnswerRecord, 0, len(records))
	for _, r := range records {
		if r.UserID != userID {
			continue
		}
		if _, ok := inScope[r.QuestionID]; ok {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.AnsweredAt.Equal(b.AnsweredAt) {
			return a.AnsweredAt.Before(b.AnsweredAt)
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.Position < b.Position
	})

	latest := make(map[string]bool, len(sorted))
	tallies := make(map[string]*sessionTally)
	for _, r := range sorted {
		latest[r.QuestionID] = r.IsCorrect

		t, ok := tallies[r.SessionID]
		if !ok {
			t = &sessionTally{id: r.SessionID}
			tallies[r.SessionID] = t
		}
		t.answered++
		if r.IsCorrect {
			t.correct++
		}
		t.lastAt = r.AnsweredAt
	}

	sum := &ProgressSummary{
		UserID:         userID,
		Scope:          scope,
		TotalQuestions: len(inScope),
		AnsweredCount:  len(latest),
		AttemptCount:   len(sorted),
	}
	for _, correct := range latest {
		if correct {
			sum.CorrectCount++
		}
	}
	sum.AccuracyPercentage = ScorePercentage(sum.CorrectCount, sum.AnsweredCount)
	sum.CompletionPercentage = ScorePercentage(sum.AnsweredCount, sum.TotalQuestions)

	if len(tallies) == 0 {
		return sum
	}

	ordered := make([]*sessionTally, 0, len(tallies))
	for _, t := range tallies {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].lastAt.Equal(ordered[j].lastAt) {
			return ordered[i].lastAt.Before(ordered[j].lastAt)
		}
		return ordered[i].id < ordered[j].id
	})

	best := 0.0
	for _, t := range ordered {
		if score := ScorePercentage(t.correct, t.answered); score > best {
			best = score
		}
	}
	last := ordered[len(ordered)-1]
	lastScore := ScorePercentage(last.correct, last.answered)
	sum.LastScorePercentage = &lastScore
	sum.BestScorePercentage = &best

	return sum
}
