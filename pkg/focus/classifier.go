package focus

import (
	"math"
	"time"

	"github.com/teslashibe/go-focus/pkg/landmarks"
)

// Gaze is the per-frame gaze geometry behind a classification.
type Gaze struct {
	RightRatio float64 // iris position within the right eye, 0-1
	LeftRatio  float64 // iris position within the left eye, 0-1
	RightDev   float64 // |RightRatio - 0.5|
	LeftDev    float64 // |LeftRatio - 0.5|
	Forward    bool
	Score      float64 // 0-1, 1 = dead center
}

// Classifier maps one frame's landmarks to a Sample. Its only state is the
// last instant a frame was classified focused, which drives the grace period.
type Classifier struct {
	cfg           Config
	lastFocusedAt time.Time
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify returns the sample for face at now. A nil face means no face is
// visible. Errors are returned only for faces missing required points.
func (c *Classifier) Classify(face *landmarks.Face, now time.Time) (Sample, error) {
	if face == nil {
		return Sample{State: StateNoFace, Confidence: c.cfg.NoFaceConfidence, Timestamp: now}, nil
	}

	g, err := c.Measure(face)
	if err != nil {
		return Sample{}, err
	}

	if g.Forward && g.Score > c.cfg.MinGazeScore {
		c.lastFocusedAt = now
		return Sample{
			State:      StateFocused,
			Confidence: focusedBase + focusedScale*g.Score,
			Timestamp:  now,
		}, nil
	}

	// Grace period: a blink or glance right after a focused frame keeps
	// the focused state at reduced confidence.
	if !c.lastFocusedAt.IsZero() && now.Sub(c.lastFocusedAt) < c.cfg.GracePeriod {
		return Sample{State: StateFocused, Confidence: c.cfg.GraceConfidence, Timestamp: now}, nil
	}

	return Sample{
		State:      StateDistracted,
		Confidence: distractedBase + distractedScale*g.Score,
		Timestamp:  now,
	}, nil
}

// Measure computes the gaze geometry of a face without touching state.
func (c *Classifier) Measure(face *landmarks.Face) (Gaze, error) {
	if !face.Complete() {
		return Gaze{}, ErrIncompleteFace
	}

	right, err := irisRatio(face, landmarks.RightEyeOuter, landmarks.RightEyeInner, landmarks.RightIrisCenter)
	if err != nil {
		return Gaze{}, err
	}
	left, err := irisRatio(face, landmarks.LeftEyeInner, landmarks.LeftEyeOuter, landmarks.LeftIrisCenter)
	if err != nil {
		return Gaze{}, err
	}

	g := Gaze{
		RightRatio: right,
		LeftRatio:  left,
		RightDev:   math.Abs(right - 0.5),
		LeftDev:    math.Abs(left - 0.5),
	}
	g.Forward = g.RightDev < c.cfg.ForwardThreshold && g.LeftDev < c.cfg.ForwardThreshold
	g.Score = clamp(1-(g.RightDev+g.LeftDev)/c.cfg.GazeScoreSpan, 0, 1)
	return g, nil
}

// LastFocusedAt returns the last instant a frame was classified focused.
func (c *Classifier) LastFocusedAt() time.Time {
	return c.lastFocusedAt
}

// Reset forgets the grace-period anchor.
func (c *Classifier) Reset() {
	c.lastFocusedAt = time.Time{}
}

// irisRatio is the iris centroid's horizontal position within the span of
// the two eye corners, clamped to [0,1].
func irisRatio(face *landmarks.Face, cornerA, cornerB, iris int) (float64, error) {
	ax := face.Points[cornerA].X
	bx := face.Points[cornerB].X
	minX, maxX := math.Min(ax, bx), math.Max(ax, bx)
	span := maxX - minX
	if span <= 1e-9 {
		return 0, ErrDegenerateEye
	}
	centroid := face.IrisCentroid(iris)
	return clamp((centroid.X-minX)/span, 0, 1), nil
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// percent converts a 0-1 confidence to a rounded percentage.
func percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}
