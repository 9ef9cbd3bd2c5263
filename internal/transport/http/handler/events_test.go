package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/broadcast"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
)

func newEventsEngine(b *broadcast.Broadcaster) *gin.Engine {
	h := handler.NewEventsHandler(b, slog.Default())
	r := gin.New()
	r.GET("/api/logs", h.List)
	r.GET("/api/logs/stream", h.Stream)
	return r
}

func TestEventsList_ReturnsSnapshot(t *testing.T) {
	b := broadcast.New(broadcast.Options{Capacity: 2}, slog.Default())
	b.Publish(domain.LevelInfo, "first")
	b.Publish(domain.LevelWarn, "second")
	b.Publish(domain.LevelError, "third")

	w := httptest.NewRecorder()
	newEventsEngine(b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(body, "first") || !strings.Contains(body, "second") || !strings.Contains(body, "third") {
		t.Errorf("body = %s", body)
	}
}

func TestEventsList_FiltersByLevel(t *testing.T) {
	b := broadcast.New(broadcast.Options{Capacity: 10}, slog.Default())
	b.Publish(domain.LevelInfo, "routine")
	b.Publish(domain.LevelError, "broken")

	w := httptest.NewRecorder()
	newEventsEngine(b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/logs?level=error", nil))
	body := w.Body.String()
	if strings.Contains(body, "routine") || !strings.Contains(body, "broken") {
		t.Errorf("body = %s", body)
	}

	w = httptest.NewRecorder()
	newEventsEngine(b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/logs?level=loud", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown level: status = %d, want 400", w.Code)
	}
}

func TestEventsStream_ReplaysHistoryAsSSE(t *testing.T) {
	b := broadcast.New(broadcast.Options{Capacity: 10}, slog.Default())
	b.Publish(domain.LevelInfo, "hello")
	b.Publish(domain.LevelWarn, "world")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/logs/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		newEventsEngine(b).ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	body := w.Body.String()
	for _, want := range []string{"id:1\n", "event:log\n", `"message":"hello"`, "id:2\n", `"message":"world"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "hello") > strings.Index(body, "world") {
		t.Error("events replayed out of order")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after disconnect, want 0", b.SubscriberCount())
	}
}

func TestEventsStream_LastEventIDSkipsSeenHistory(t *testing.T) {
	b := broadcast.New(broadcast.Options{Capacity: 10}, slog.Default())
	b.Publish(domain.LevelInfo, "seen")
	b.Publish(domain.LevelInfo, "missed")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/logs/stream", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		newEventsEngine(b).ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, "seen") {
		t.Errorf("event before cursor was replayed:\n%s", body)
	}
	if !strings.Contains(body, "id:2\n") || !strings.Contains(body, "missed") {
		t.Errorf("event after cursor missing:\n%s", body)
	}
}
