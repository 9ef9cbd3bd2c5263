package broadcast

import "github.com/ErlanBelekov/ops-dashboard/internal/domain"

// Subscription is a live handle. It is Open until Events is closed.
type Subscription struct {
	events chan domain.LogEvent
	replay []domain.LogEvent
	err    error // set under the broadcaster lock before events is closed
}

// Replay returns the history captured at subscribe time.
func (s *Subscription) Replay() []domain.LogEvent { return s.replay }

// Events yields events published after subscribe. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan domain.LogEvent { return s.events }

// Err explains why Events was closed: ErrEvicted, ErrClosed, or nil for an
// explicit unsubscribe. Only meaningful after Events is closed.
func (s *Subscription) Err() error { return s.err }
