// Package landmarks defines the per-frame facial landmark contract consumed
// by the focus engine, plus provider implementations.
//
// Point indices follow the MediaPipe FaceMesh topology with refined iris
// landmarks enabled (478 points).
package landmarks

import (
	"context"
	"time"
)

// Eye corner and iris indices (MediaPipe FaceMesh, refine_landmarks=true).
// "Right" and "left" are from the subject's point of view.
const (
	RightEyeOuter = 33
	RightEyeInner = 133
	LeftEyeInner  = 362
	LeftEyeOuter  = 263

	RightIrisCenter = 468 // 468-472: center then ring
	LeftIrisCenter  = 473 // 473-477: center then ring

	IrisPoints = 5

	// RequiredPoints is the minimum point count for gaze classification.
	RequiredPoints = 478
)

// Point is a normalized landmark position (0-1 in image space, Z relative depth).
type Point struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
	Z float64 `msgpack:"z" json:"z"`
}

// Face is one detected face's landmark set.
type Face struct {
	Points []Point
}

// Has reports whether every index is present in the face.
func (f *Face) Has(indices ...int) bool {
	if f == nil {
		return false
	}
	for _, i := range indices {
		if i < 0 || i >= len(f.Points) {
			return false
		}
	}
	return true
}

// Complete reports whether the face carries every point needed for gaze
// classification.
func (f *Face) Complete() bool {
	return f != nil && len(f.Points) >= RequiredPoints
}

// IrisCentroid returns the mean X/Y of the iris points starting at first.
func (f *Face) IrisCentroid(first int) Point {
	var c Point
	for i := first; i < first+IrisPoints; i++ {
		c.X += f.Points[i].X
		c.Y += f.Points[i].Y
	}
	c.X /= IrisPoints
	c.Y /= IrisPoints
	return c
}

// Provider detects facial landmarks in a single frame.
type Provider interface {
	// Detect returns the landmarks of the face in the JPEG frame, or nil
	// when no face is visible. ts is a monotonic timestamp for the frame.
	Detect(ctx context.Context, jpeg []byte, ts time.Duration) (*Face, error)

	// Close releases resources
	Close() error
}
