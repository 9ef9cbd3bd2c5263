package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
)

const (
	DefaultCapacity  = 500
	DefaultQueueSize = 64
	DefaultKeepalive = 15 * time.Second
)

var (
	// ErrEvicted is returned by Serve when the subscriber fell behind and
	// was removed during a publish.
	ErrEvicted = errors.New("subscriber evicted")
	// ErrClosed is returned by Serve when the broadcaster shut down.
	ErrClosed = errors.New("broadcaster closed")
)

// Sink is the stream a subscriber is attached to. The broadcaster makes no
// assumption about the wire format.
type Sink interface {
	WriteEvent(ev domain.LogEvent) error
	Keepalive() error
}

type Options struct {
	Capacity  int
	QueueSize int
	Keepalive time.Duration
	Clock     clock.Clock
}

// Broadcaster keeps the last Capacity events and fans new ones out to
// every live subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	ring   []domain.LogEvent
	head   int // index of the oldest event
	size   int
	nextID int64
	subs   map[*Subscription]struct{}
	closed bool

	queueSize int
	keepalive time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Broadcaster {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = DefaultKeepalive
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Broadcaster{
		ring:      make([]domain.LogEvent, opts.Capacity),
		subs:      make(map[*Subscription]struct{}),
		queueSize: opts.QueueSize,
		keepalive: opts.Keepalive,
		clock:     opts.Clock,
		logger:    logger.With("component", "broadcaster"),
	}
}

// Publish records an event and queues it for every subscriber. A subscriber
// whose queue is full is evicted; the others are unaffected.
func (b *Broadcaster) Publish(level domain.Level, message string) domain.LogEvent {
	b.mu.Lock()
	b.nextID++
	ev := domain.LogEvent{
		ID:        b.nextID,
		Timestamp: b.clock.Now(),
		Level:     level,
		Message:   message,
	}
	b.append(ev)
	metrics.EventsPublishedTotal.WithLabelValues(string(level)).Inc()

	evicted := 0
	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			b.removeLocked(sub, ErrEvicted)
			evicted++
		}
	}
	b.mu.Unlock()

	if evicted > 0 {
		metrics.SubscriberEvictionsTotal.Add(float64(evicted))
		b.logger.Warn("evicted slow subscribers", "count", evicted, "event_id", ev.ID)
	}
	return ev
}

// Publishf is Publish with fmt.Sprintf formatting.
func (b *Broadcaster) Publishf(level domain.Level, format string, args ...any) domain.LogEvent {
	return b.Publish(level, fmt.Sprintf(format, args...))
}

func (b *Broadcaster) append(ev domain.LogEvent) {
	capacity := len(b.ring)
	if b.size < capacity {
		b.ring[(b.head+b.size)%capacity] = ev
		b.size++
		return
	}
	b.ring[b.head] = ev
	b.head = (b.head + 1) % capacity
}

func (b *Broadcaster) snapshotLocked() []domain.LogEvent {
	out := make([]domain.LogEvent, b.size)
	for i := range b.size {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}

// Snapshot returns the buffered events in ascending id order.
func (b *Broadcaster) Snapshot() []domain.LogEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Subscribe registers a subscriber. The returned Subscription carries the
// buffer as it was at registration; every later event arrives on Events.
func (b *Broadcaster) Subscribe() *Subscription {
	return b.SubscribeAfter(0)
}

// SubscribeAfter is Subscribe with a resume cursor: the replay holds only
// buffered events with an id above lastID. A cursor ahead of the newest id
// comes from an earlier process and is ignored.
func (b *Broadcaster) SubscribeAfter(lastID int64) *Subscription {
	sub := &Subscription{events: make(chan domain.LogEvent, b.queueSize)}

	b.mu.Lock()
	defer b.mu.Unlock()

	replay := b.snapshotLocked()
	if lastID > 0 && lastID <= b.nextID {
		i := 0
		for i < len(replay) && replay[i].ID <= lastID {
			i++
		}
		replay = replay[i:]
	}
	sub.replay = replay

	if b.closed {
		sub.err = ErrClosed
		close(sub.events)
		return sub
	}
	b.subs[sub] = struct{}{}
	metrics.SubscribersActive.Inc()
	return sub
}

// Unsubscribe removes sub. Calling it more than once is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	b.removeLocked(sub, nil)
	b.mu.Unlock()
}

func (b *Broadcaster) removeLocked(sub *Subscription, reason error) {
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	sub.err = reason
	close(sub.events)
	metrics.SubscribersActive.Dec()
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription. Publish keeps recording history afterwards
// but no new subscriber goes live.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for sub := range b.subs {
		b.removeLocked(sub, ErrClosed)
	}
}

// Ping reports whether the broadcaster still accepts subscribers.
func (b *Broadcaster) Ping(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Serve attaches sink as a subscriber: it replays the buffer, then streams
// live events with a keepalive until ctx is cancelled, a write fails, or the
// subscriber is evicted. The subscriber is always deregistered on return.
func (b *Broadcaster) Serve(ctx context.Context, sink Sink) error {
	return b.ServeAfter(ctx, sink, 0)
}

// ServeAfter is Serve resuming after lastID.
func (b *Broadcaster) ServeAfter(ctx context.Context, sink Sink, lastID int64) error {
	sub := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(sub)

	for _, ev := range sub.replay {
		if err := sink.WriteEvent(ev); err != nil {
			return fmt.Errorf("replay event %d: %w", ev.ID, err)
		}
	}

	ticker := time.NewTicker(b.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.events:
			if !ok {
				return sub.Err()
			}
			if err := sink.WriteEvent(ev); err != nil {
				return fmt.Errorf("write event %d: %w", ev.ID, err)
			}
		case <-ticker.C:
			if err := sink.Keepalive(); err != nil {
				return fmt.Errorf("keepalive: %w", err)
			}
		}
	}
}
