// Package webcam implements camera.Device on top of OpenCV.
package webcam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-focus/pkg/camera"
)

// ErrEmptyFrame is returned when the capture yields no image.
var ErrEmptyFrame = errors.New("webcam: empty frame")

// Device captures from a local webcam.
type Device struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	cfg     camera.Config
}

// New creates an unopened webcam device.
func New() *Device {
	return &Device{}
}

// Open acquires the camera and applies cfg.
func (d *Device) Open(ctx context.Context, cfg camera.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		d.closeLocked()
	}

	capture, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return &camera.DeviceError{Op: "open", Permission: isPermission(err), Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return &camera.DeviceError{Op: "open", Err: fmt.Errorf("device %d not available", cfg.DeviceID)}
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness != 0 {
		// V4L2 exposes brightness as 0-1 with 0.5 neutral.
		capture.Set(gocv.VideoCaptureBrightness, 0.5+cfg.Brightness/2)
	}

	d.capture = capture
	d.frame = gocv.NewMat()
	d.cfg = cfg
	return nil
}

// Read grabs a frame and encodes it as JPEG.
func (d *Device) Read(ctx context.Context) (camera.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return camera.Frame{}, &camera.DeviceError{Op: "read", Err: camera.ErrNotOpen}
	}
	if ok := d.capture.Read(&d.frame); !ok || d.frame.Empty() {
		return camera.Frame{}, &camera.DeviceError{Op: "read", Err: ErrEmptyFrame}
	}

	img := d.frame
	if d.cfg.Mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(d.frame, &flipped, 1)
		img = flipped
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, d.cfg.Quality})
	if err != nil {
		return camera.Frame{}, &camera.DeviceError{Op: "read", Err: fmt.Errorf("encode: %w", err)}
	}
	defer buf.Close()

	return camera.Frame{
		JPEG:       bytes.Clone(buf.GetBytes()),
		Width:      img.Cols(),
		Height:     img.Rows(),
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the camera.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}

func (d *Device) closeLocked() {
	if d.capture == nil {
		return
	}
	d.capture.Close()
	d.frame.Close()
	d.capture = nil
}

// isPermission recognises the OS refusing camera access.
func isPermission(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized")
}

var _ camera.Device = (*Device)(nil)
