package persist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-focus/pkg/focus"
)

// Throttler turns the tick stream into a bounded stream of records.
// It implements focus.Recorder.
type Throttler struct {
	*writer
	subjectID string

	mu     sync.Mutex
	policy Policy
}

// NewThrottler creates a throttler writing to sink. areas may be nil.
func NewThrottler(cfg Config, sink Sink, areas *AreaCache, logger *slog.Logger) *Throttler {
	return &Throttler{
		writer:    newWriter(sink, areas, cfg.WriteTimeout, logger),
		subjectID: cfg.SubjectID,
		policy:    Policy{MinInterval: cfg.MinWriteInterval},
	}
}

// Observe applies the write policy to one sample. Only focused and
// distracted samples are ever written. It returns whether a write was
// submitted; the write itself completes in the background.
func (t *Throttler) Observe(ctx context.Context, s focus.Sample) bool {
	if !s.State.Recordable() {
		return false
	}

	t.mu.Lock()
	fire := t.policy.Decide(s.Focused(), s.Timestamp)
	t.mu.Unlock()
	if !fire {
		return false
	}

	confidence := s.Confidence
	t.submit(ctx, newRecord(t.subjectID, s.Focused(), &confidence, s.Timestamp))
	return true
}

// Reset forgets the last written state so the next sample writes.
func (t *Throttler) Reset() {
	t.mu.Lock()
	t.policy.Reset()
	t.mu.Unlock()
}

var _ focus.Recorder = (*Throttler)(nil)
