package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKeys(t *testing.T) {
	if got := userKey("u1"); got != "progress:u1" {
		t.Fatalf("userKey() = %q", got)
	}
	if got := genKey("gen:u1"); got == userKey("u1") || got == userKey("gen:u1") {
		t.Fatalf("genKey() = %q collides with a summary key", got)
	}
	tests := []struct {
		scope entities.Scope
		want  string
	}{
		{entities.Scope{Kind: entities.ScopeTopic, ID: "grammar"}, "topic:grammar"},
		{entities.Scope{Kind: entities.ScopeSet, ID: "set-1"}, "set:set-1"},
	}
	for _, tt := range tests {
		if got := scopeField(tt.scope); got != tt.want {
			t.Errorf("scopeField(%v) = %q, want %q", tt.scope, got, tt.want)
		}
	}
}

func TestNewClientBadURL(t *testing.T) {
	if _, err := NewClient(context.Background(), "not a url"); err == nil {
		t.Fatal("NewClient() error = nil, want parse error")
	}
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	c := NewSummaryCache(client, time.Minute)

	userID := "cache-" + uuid.NewString()
	scope := entities.Scope{Kind: entities.ScopeTopic, ID: "grammar"}
	best := 80.0

	if _, ok, err := c.Get(ctx, userID, scope); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}

	want := &entities.ProgressSummary{
		UserID:              userID,
		Scope:               scope,
		TotalQuestions:      5,
		AnsweredCount:       4,
		CorrectCount:        3,
		BestScorePercentage: &best,
	}
	gen, err := c.Generation(ctx, userID)
	if err != nil || gen != 0 {
		t.Fatalf("Generation() = %d, %v, want 0", gen, err)
	}
	if err := c.Set(ctx, want, gen); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, userID, scope)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.CorrectCount != 3 || got.BestScorePercentage == nil || *got.BestScorePercentage != best {
		t.Fatalf("Get() = %+v", got)
	}

	other := entities.Scope{Kind: entities.ScopeSet, ID: "set-1"}
	if _, ok, _ := c.Get(ctx, userID, other); ok {
		t.Fatal("Get() hit for a scope that was never stored")
	}

	if err := c.Invalidate(ctx, userID); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, userID, scope); ok {
		t.Fatal("Get() hit after Invalidate")
	}
	if gen, _ := c.Generation(ctx, userID); gen != 1 {
		t.Fatalf("Generation() after Invalidate = %d, want 1", gen)
	}
}

func TestSummaryCacheDropsWritesFromOldGeneration(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	c := NewSummaryCache(client, time.Minute)

	userID := "cache-" + uuid.NewString()
	scope := entities.Scope{Kind: entities.ScopeSet, ID: "set-1"}

	// A summary folded before an answer was recorded.
	gen, err := c.Generation(ctx, userID)
	if err != nil {
		t.Fatalf("Generation() error = %v", err)
	}
	if err := c.Invalidate(ctx, userID); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	stale := &entities.ProgressSummary{UserID: userID, Scope: scope, TotalQuestions: 3}
	if err := c.Set(ctx, stale, gen); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, userID, scope); ok {
		t.Fatal("summary from an old generation was stored")
	}

	current, _ := c.Generation(ctx, userID)
	fresh := &entities.ProgressSummary{UserID: userID, Scope: scope, TotalQuestions: 3, AnsweredCount: 1}
	if err := c.Set(ctx, fresh, current); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, userID, scope)
	if err != nil || !ok || got.AnsweredCount != 1 {
		t.Fatalf("Get() = %+v, %v, %v", got, ok, err)
	}
}
