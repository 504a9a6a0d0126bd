package alert

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Listener observes the live slot. live is false when the slot was emptied.
type Listener func(env Envelope, live bool)

// Channel is a single-slot, auto-expiring notification holder.
// Pushing replaces the live envelope and restarts its timer; there is no
// queue. Listeners are invoked outside the lock, in push/clear order.
type Channel struct {
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	live      *Envelope
	timer     *time.Timer
	gen       uint64
	listeners map[int]Listener
	nextID    int

	// notifyMu serializes listener delivery so observers see transitions
	// in the same order they happened.
	notifyMu sync.Mutex
}

// NewChannel creates an empty channel.
func NewChannel(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Push creates a new envelope and makes it the live one.
func (c *Channel) Push(message string, opts Options) Envelope {
	if opts.Kind == "" {
		opts.Kind = KindInfo
	}
	if opts.Reason == "" {
		opts.Reason = ReasonOther
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}

	env := Envelope{
		ID:         uuid.New().String(),
		Kind:       opts.Kind,
		Reason:     opts.Reason,
		Message:    message,
		Duration:   opts.Duration,
		Alarm:      opts.Alarm,
		Escalation: opts.Escalation,
		CreatedAt:  c.now(),
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.live = &env
	c.timer = time.AfterFunc(env.Duration, func() { c.expire(gen) })
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("alert pushed",
		"id", env.ID,
		"reason", env.Reason,
		"alarm", env.Alarm,
		"escalation", env.Escalation,
	)

	for _, l := range listeners {
		l(env, true)
	}
	return env
}

// Clear cancels the timer and empties the slot. Safe when empty.
func (c *Channel) Clear() {
	c.clearIf(func(Envelope) bool { return true })
}

// ClearReason empties the slot only when the live envelope has reason r.
func (c *Channel) ClearReason(r Reason) {
	c.clearIf(func(env Envelope) bool { return env.Reason == r })
}

// ClearID empties the slot only when the live envelope has the given ID.
func (c *Channel) ClearID(id string) {
	c.clearIf(func(env Envelope) bool { return env.ID == id })
}

func (c *Channel) clearIf(match func(Envelope) bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.live == nil || !match(*c.live) {
		c.mu.Unlock()
		return
	}
	env := *c.live
	c.stopTimerLocked()
	c.gen++
	c.live = nil
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("alert cleared", "id", env.ID, "reason", env.Reason)

	for _, l := range listeners {
		l(env, false)
	}
}

// expire runs on the timer goroutine. A stale generation means the envelope
// it was armed for has already been replaced or cleared.
func (c *Channel) expire(gen uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.gen || c.live == nil {
		c.mu.Unlock()
		return
	}
	env := *c.live
	c.live = nil
	c.timer = nil
	c.gen++
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("alert expired", "id", env.ID)

	for _, l := range listeners {
		l(env, false)
	}
}

// Current returns the live envelope, if any.
func (c *Channel) Current() (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		return Envelope{}, false
	}
	return *c.live, true
}

// Subscribe registers a listener and returns a function that removes it.
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if l, ok := c.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// MarshalJSON renders the channel as its live envelope, or null.
func (c *Channel) MarshalJSON() ([]byte, error) {
	env, ok := c.Current()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(env)
}
