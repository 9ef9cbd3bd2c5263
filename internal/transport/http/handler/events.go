package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/broadcast"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

type eventStreamer interface {
	Snapshot() []domain.LogEvent
	ServeAfter(ctx context.Context, sink broadcast.Sink, lastID int64) error
}

type EventsHandler struct {
	events eventStreamer
	logger *slog.Logger
}

func NewEventsHandler(events eventStreamer, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logger.With("component", "events_handler")}
}

// GET /api/logs?level=<level>
func (h *EventsHandler) List(c *gin.Context) {
	events := h.events.Snapshot()

	if raw := c.Query("level"); raw != "" {
		level, err := domain.ParseLevel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": errInvalidLevel})
			return
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.Level == level {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "events": events})
}

// GET /api/logs/stream
// Server-Sent Events: buffered history first, then live "log" events and
// periodic "ping" keepalives. A reconnecting client's Last-Event-ID skips
// the history it already has.
func (h *EventsHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	err := h.events.ServeAfter(c.Request.Context(), &sseSink{w: c.Writer}, lastEventID(c))
	switch {
	case err == nil, errors.Is(err, broadcast.ErrClosed):
	case errors.Is(err, broadcast.ErrEvicted):
		h.logger.WarnContext(c.Request.Context(), "stream subscriber evicted")
	default:
		h.logger.InfoContext(c.Request.Context(), "stream closed", "error", err)
	}
}

// lastEventID returns the resume cursor, or 0 when absent or malformed.
func lastEventID(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.GetHeader("Last-Event-ID"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// sseSink writes events to a gin response as Server-Sent Events.
type sseSink struct {
	w gin.ResponseWriter
}

func (s *sseSink) WriteEvent(ev domain.LogEvent) error {
	if err := sse.Encode(s.w, sse.Event{
		Event: "log",
		Id:    strconv.FormatInt(ev.ID, 10),
		Data:  ev,
	}); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *sseSink) Keepalive() error {
	if err := sse.Encode(s.w, sse.Event{
		Event: "ping",
		Data:  time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}
