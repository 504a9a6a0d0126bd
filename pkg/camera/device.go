package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Frame is one captured image.
type Frame struct {
	JPEG       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Device is a capture source.
type Device interface {
	// Open acquires the device with cfg. It returns a *DeviceError on
	// failure.
	Open(ctx context.Context, cfg Config) error

	// Read returns the latest frame.
	Read(ctx context.Context) (Frame, error)

	// Close releases the device. Safe to call when not open.
	Close() error
}

var (
	// ErrPermissionDenied matches device errors caused by the OS refusing
	// camera access.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrNotOpen is returned by Read before Open.
	ErrNotOpen = errors.New("camera: device not open")
)

// DeviceError describes a capture failure.
type DeviceError struct {
	Op         string // "open" or "read"
	Permission bool
	Err        error
}

func (e *DeviceError) Error() string {
	if e.Permission {
		return fmt.Sprintf("camera %s: permission denied: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("camera %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPermissionDenied) hold for permission errors.
func (e *DeviceError) Is(target error) bool {
	return target == ErrPermissionDenied && e.Permission
}

// MockDevice is an in-memory Device for tests. It returns a fixed frame
// unless an error is queued.
type MockDevice struct {
	mu      sync.Mutex
	open    bool
	cfg     Config
	openErr error
	readErr []error
	opens   int
	closes  int
	reads   int
}

// NewMockDevice creates a mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// FailOpen makes the next Open calls return err. nil restores success.
func (d *MockDevice) FailOpen(err error) {
	d.mu.Lock()
	d.openErr = err
	d.mu.Unlock()
}

// QueueReadError makes a future Read return err, in FIFO order.
func (d *MockDevice) QueueReadError(err error) {
	d.mu.Lock()
	d.readErr = append(d.readErr, err)
	d.mu.Unlock()
}

func (d *MockDevice) Open(ctx context.Context, cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	d.cfg = cfg
	d.opens++
	return nil
}

func (d *MockDevice) Read(ctx context.Context) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return Frame{}, &DeviceError{Op: "read", Err: ErrNotOpen}
	}
	d.reads++
	if len(d.readErr) > 0 {
		err := d.readErr[0]
		d.readErr = d.readErr[1:]
		return Frame{}, err
	}
	return Frame{
		JPEG:       []byte{0xff, 0xd8, 0xff, 0xd9},
		Width:      d.cfg.Width,
		Height:     d.cfg.Height,
		CapturedAt: time.Now(),
	}, nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		d.closes++
	}
	d.open = false
	return nil
}

// LastConfig returns the configuration of the most recent Open.
func (d *MockDevice) LastConfig() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// IsOpen reports whether the device is held.
func (d *MockDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Counts returns how many times the device was opened, closed and read.
func (d *MockDevice) Counts() (opens, closes, reads int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes, d.reads
}

var _ Device = (*MockDevice)(nil)
