// Package persist decides when attention samples become durable records and
// writes them without blocking the tick that produced them.
package persist

import (
	"context"
	"time"
)

// Record is one persisted attention fact. It is immutable once written.
type Record struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	AreaID     *string   `json:"area_id"`
	IsFocused  bool      `json:"is_focused"`
	Confidence *float64  `json:"confidence"` // nil for activity-based records
	CreatedAt  time.Time `json:"created_at"`
}

// Sink stores records. Implementations live in pkg/store.
type Sink interface {
	Insert(ctx context.Context, r Record) error
}

// AreaResolver returns the subject's default area id, creating it on first
// use. It must be idempotent per subject.
type AreaResolver interface {
	ResolveArea(ctx context.Context, subjectID string) (string, error)
}
