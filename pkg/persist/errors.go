package persist

import "errors"

// ErrNoResolver is returned by AreaCache.Resolve when no resolver is set.
var ErrNoResolver = errors.New("persist: no area resolver configured")
