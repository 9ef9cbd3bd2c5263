package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 1m"

// expirer is the part of a store the reaper needs.
type expirer interface {
	DeleteExpired() int
}

type eventPublisher interface {
	Publish(level domain.Level, message string) domain.LogEvent
}

type SweepResult struct {
	Tokens   int
	Sessions int
}

// Reaper removes expired tokens and sessions, on demand via Sweep and
// periodically via Start.
type Reaper struct {
	tokens   expirer
	sessions expirer
	events   eventPublisher
	logger   *slog.Logger
	schedule string
}

func New(tokens, sessions expirer, events eventPublisher, logger *slog.Logger, schedule string) *Reaper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Reaper{
		tokens:   tokens,
		sessions: sessions,
		events:   events,
		logger:   logger.With("component", "reaper"),
		schedule: schedule,
	}
}

func (r *Reaper) Sweep() SweepResult {
	start := time.Now()
	res := SweepResult{
		Tokens:   r.tokens.DeleteExpired(),
		Sessions: r.sessions.DeleteExpired(),
	}
	metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds())
	metrics.ReaperRemovedTotal.WithLabelValues("token").Add(float64(res.Tokens))
	metrics.ReaperRemovedTotal.WithLabelValues("session").Add(float64(res.Sessions))

	if res.Tokens > 0 || res.Sessions > 0 {
		r.logger.Debug("swept expired records", "tokens", res.Tokens, "sessions", res.Sessions)
	}
	return res
}

// Start runs Sweep on the configured cron schedule until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		res := r.Sweep()
		if res.Tokens == 0 && res.Sessions == 0 {
			return
		}
		r.logger.Info("reaper: removed expired records", "tokens", res.Tokens, "sessions", res.Sessions)
		if r.events != nil {
			r.events.Publish(domain.LevelInfo,
				fmt.Sprintf("[reaper] removed %d expired tokens and %d expired sessions", res.Tokens, res.Sessions))
		}
	})
	if err != nil {
		return fmt.Errorf("parse reaper schedule %q: %w", r.schedule, err)
	}

	c.Start()
	r.logger.Info("reaper started", "schedule", r.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("reaper shut down")
	return nil
}
