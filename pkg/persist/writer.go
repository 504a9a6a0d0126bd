package persist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Stats counts write outcomes.
type Stats struct {
	Attempted   int64 `json:"attempted"`
	Written     int64 `json:"written"`
	Failed      int64 `json:"failed"`
	AreaMissing int64 `json:"area_missing"`
}

// writer performs fire-and-forget inserts shared by Throttler and
// ActivityTracker.
type writer struct {
	sink    Sink
	areas   *AreaCache
	timeout time.Duration
	logger  *slog.Logger

	onWrite func(Record)

	wg          sync.WaitGroup
	attempted   atomic.Int64
	written     atomic.Int64
	failed      atomic.Int64
	areaMissing atomic.Int64
}

func newWriter(sink Sink, areas *AreaCache, timeout time.Duration, logger *slog.Logger) *writer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &writer{sink: sink, areas: areas, timeout: timeout, logger: logger}
}

// newRecord fills in the fields common to every record.
func newRecord(subjectID string, focused bool, confidence *float64, at time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		IsFocused:  focused,
		Confidence: confidence,
		CreatedAt:  at,
	}
}

// submit writes r on its own goroutine. ctx only contributes values; the
// write outlives the caller's cancellation.
func (w *writer) submit(ctx context.Context, r Record) {
	w.attempted.Add(1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
		defer cancel()

		if w.areas != nil {
			id, err := w.areas.Resolve(ctx, r.SubjectID)
			if err != nil {
				w.areaMissing.Add(1)
				w.logger.Warn("area resolution failed, writing without area",
					"subject", r.SubjectID, "error", err)
			} else {
				r.AreaID = &id
			}
		}

		if err := w.sink.Insert(ctx, r); err != nil {
			w.failed.Add(1)
			w.logger.Warn("focus record dropped", "id", r.ID, "error", err)
			return
		}
		w.written.Add(1)
		if w.onWrite != nil {
			w.onWrite(r)
		}
	}()
}

// OnWrite registers a callback run after each successful insert. Call it
// before the first write.
func (w *writer) OnWrite(fn func(Record)) {
	w.onWrite = fn
}

// Wait blocks until every submitted write has finished.
func (w *writer) Wait() {
	w.wg.Wait()
}

// Stats returns write counters.
func (w *writer) Stats() Stats {
	return Stats{
		Attempted:   w.attempted.Load(),
		Written:     w.written.Load(),
		Failed:      w.failed.Load(),
		AreaMissing: w.areaMissing.Load(),
	}
}
