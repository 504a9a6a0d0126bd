package alarm

import "errors"

// ErrClosed is returned by Unlock after Close.
var ErrClosed = errors.New("alarm: engine closed")
