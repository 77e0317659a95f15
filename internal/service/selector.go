package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// Default question counts per mode when the caller sets no limit.
var defaultLimits = map[entities.Mode]int{
	entities.ModeQuick:          10,
	entities.ModeFull:           entities.MaxQuestionLimit,
	entities.ModeCustom:         20,
	entities.ModePractice:       20,
	entities.ModeReviewMistakes: 20,
	entities.ModeUnseenOnly:     20,
}

// questionLimit returns the number of questions to draw for a new session.
func questionLimit(mode entities.Mode, filters entities.Filters) int {
	if filters.QuestionLimit != nil {
		return *filters.QuestionLimit
	}
	return defaultLimits[mode]
}

// Selector orders an eligible pool and truncates it to limit.
type Selector interface {
	Select(pool []string, limit int) []string
}

// RandomSelector shuffles the pool with its own seeded source.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a RandomSelector. A zero seed uses the clock.
func NewRandomSelector(seed int64) *RandomSelector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSelector) Select(pool []string, limit int) []string {
	out := uniqueKeepOrder(pool)

	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()

	return takeFirst(out, limit)
}

// OrderedSelector keeps the pool order. Useful for reproducible sessions.
type OrderedSelector struct{}

func (OrderedSelector) Select(pool []string, limit int) []string {
	return takeFirst(uniqueKeepOrder(pool), limit)
}

// uniqueKeepOrder returns a copy of ids without duplicates, preserving the
// first occurrence.
func uniqueKeepOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// takeFirst returns the first n elements of ids, or the whole slice if it is shorter.
func takeFirst(ids []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
