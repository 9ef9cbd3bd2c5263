package reaper_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/infrastructure/memory"
	"github.com/ErlanBelekov/ops-dashboard/internal/reaper"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *fakePublisher) Publish(level domain.Level, message string) domain.LogEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return domain.LogEvent{ID: int64(len(p.messages)), Level: level, Message: message}
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
	n     int
}

func (e *countingExpirer) DeleteExpired() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	n := e.n
	e.n = 0
	return n
}

func (e *countingExpirer) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	tokens := memory.NewTokenRepository([]byte("k"), 15*time.Minute, c)
	sessions := memory.NewSessionRepository(25*time.Minute, c)

	// t0: first token (expires t0+15m) and a session (expires t0+25m).
	oldToken, _ := tokens.Create("a@example.com")
	_, _ = sessions.Create("a@example.com")
	c.Advance(20 * time.Minute)
	// t0+20m: second token, live until t0+35m.
	_, _ = tokens.Create("b@example.com")
	c.Advance(10 * time.Minute)

	r := reaper.New(tokens, sessions, nil, slog.Default(), "")
	res := r.Sweep()

	if res.Tokens != 1 {
		t.Errorf("tokens removed = %d, want 1", res.Tokens)
	}
	if res.Sessions != 1 {
		t.Errorf("sessions removed = %d, want 1", res.Sessions)
	}
	if _, err := tokens.Consume(oldToken); err == nil {
		t.Error("expired token survived sweep")
	}
	if tokens.Len() != 1 {
		t.Errorf("tokens.Len() = %d, want 1", tokens.Len())
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	r := reaper.New(&countingExpirer{}, &countingExpirer{}, nil, slog.Default(), "not a schedule")
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("want error for invalid schedule")
	}
}

func TestStart_SweepsOnScheduleAndPublishes(t *testing.T) {
	tokens := &countingExpirer{n: 2}
	sessions := &countingExpirer{}
	pub := &fakePublisher{}
	r := reaper.New(tokens, sessions, pub, slog.Default(), "@every 1s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for tokens.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reaper never swept")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pub.count() != 1 {
		t.Errorf("published %d events, want 1", pub.count())
	}
}
