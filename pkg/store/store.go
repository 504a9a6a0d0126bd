// Package store provides the storage backends behind persist.Sink and
// persist.AreaResolver: PostgreSQL for deployments and a JSON-lines file
// store for single-user setups.
package store

import (
	"context"

	"github.com/teslashibe/go-focus/pkg/persist"
)

// DefaultAreaName is the name given to an auto-created default area.
const DefaultAreaName = "Default"

// Store is a record sink that can also resolve areas.
type Store interface {
	persist.Sink
	persist.AreaResolver

	// Records returns the subject's records, newest first, at most limit.
	Records(ctx context.Context, subjectID string, limit int) ([]persist.Record, error)

	Close() error
}
