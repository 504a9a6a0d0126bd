package alarm

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-focus/pkg/audioio"
)

// Stats reports engine activity.
type Stats struct {
	Unlocked     bool  `json:"unlocked"`
	Looping      bool  `json:"looping"`
	ToneTriggers int64 `json:"tone_triggers"`
	WriteErrors  int64 `json:"write_errors"`
}

// Engine plays the beep pattern on a loop over an audio sink.
//
// Nothing sounds until Unlock has started the sink; before that StartLoop is
// a silent no-op so visual alerts still work on hosts without audio.
type Engine struct {
	cfg    Config
	sink   audioio.Sink
	tone   audioio.AudioChunk
	logger *slog.Logger

	mu       sync.Mutex
	unlocked bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}

	triggers    atomic.Int64
	writeErrors atomic.Int64
}

// New creates an engine writing to sink.
func New(cfg Config, sink audioio.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	ac := sink.Config()
	return &Engine{
		cfg:    cfg,
		sink:   sink,
		tone:   synthesize(cfg.Frequency, cfg.ToneDuration, cfg.Volume, ac.SampleRate, ac.Channels),
		logger: logger,
	}
}

// Unlock starts the audio sink. It must be called from an explicit user
// action. Success is remembered; a failed attempt can be retried.
func (e *Engine) Unlock(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unlocked {
		return nil
	}
	if e.closed {
		return ErrClosed
	}
	if err := e.sink.Start(ctx); err != nil {
		e.logger.Warn("audio unlock failed", "backend", e.sink.Name(), "error", err)
		return err
	}

	e.unlocked = true
	e.logger.Info("audio unlocked", "backend", e.sink.Name())
	return nil
}

// IsUnlocked reports whether Unlock has succeeded.
func (e *Engine) IsUnlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocked
}

// StartLoop begins the repeating pattern. Calling it while already looping
// restarts the pattern from the first beep.
func (e *Engine) StartLoop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.unlocked || e.closed {
		return
	}
	e.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go e.loop(ctx, done)
}

// Stop cancels the loop and cuts off any tone in flight. Safe when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
}

// stopLocked cancels the loop, drops queued audio so a blocked write
// returns, and waits for the loop goroutine to exit.
func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.sink.Clear()
	<-e.done
	e.cancel, e.done = nil, nil
}

// Looping reports whether the pattern is currently repeating.
func (e *Engine) Looping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// Close stops the loop and releases the sink.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.stopLocked()
	e.closed = true
	e.unlocked = false
	return e.sink.Close()
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	unlocked, looping := e.unlocked, e.cancel != nil
	e.mu.Unlock()

	return Stats{
		Unlocked:     unlocked,
		Looping:      looping,
		ToneTriggers: e.triggers.Load(),
		WriteErrors:  e.writeErrors.Load(),
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		if !e.playPattern(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// playPattern plays one run of beeps. It returns false once ctx is done.
func (e *Engine) playPattern(ctx context.Context) bool {
	for i := 0; i < e.cfg.Beeps; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(e.cfg.Spacing):
			}
		}
		if ctx.Err() != nil {
			return false
		}

		e.triggers.Add(1)
		if err := e.sink.Write(ctx, e.tone); err != nil && ctx.Err() == nil {
			if e.writeErrors.Add(1) == 1 {
				e.logger.Warn("alarm tone write failed", "error", err)
			}
		}
	}
	return true
}
