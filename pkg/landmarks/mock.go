package landmarks

import (
	"context"
	"sync"
	"time"
)

// Eye geometry used by Synthetic. Values approximate a frontal face that
// fills the middle third of the frame.
const (
	syntheticRightOuterX = 0.38
	syntheticRightInnerX = 0.46
	syntheticLeftInnerX  = 0.54
	syntheticLeftOuterX  = 0.62
	syntheticEyeY        = 0.42
	syntheticIrisRadius  = 0.008
)

// Synthetic builds a complete face whose irises sit at the given horizontal
// ratios within each eye's corner span (0 = outer/min-X corner, 1 = max-X
// corner, 0.5 = centered).
func Synthetic(rightRatio, leftRatio float64) *Face {
	points := make([]Point, RequiredPoints)
	for i := range points {
		points[i] = Point{X: 0.5, Y: 0.5}
	}

	points[RightEyeOuter] = Point{X: syntheticRightOuterX, Y: syntheticEyeY}
	points[RightEyeInner] = Point{X: syntheticRightInnerX, Y: syntheticEyeY}
	points[LeftEyeInner] = Point{X: syntheticLeftInnerX, Y: syntheticEyeY}
	points[LeftEyeOuter] = Point{X: syntheticLeftOuterX, Y: syntheticEyeY}

	placeIris(points, RightIrisCenter,
		syntheticRightOuterX+rightRatio*(syntheticRightInnerX-syntheticRightOuterX))
	placeIris(points, LeftIrisCenter,
		syntheticLeftInnerX+leftRatio*(syntheticLeftOuterX-syntheticLeftInnerX))

	return &Face{Points: points}
}

// Forward returns a synthetic face looking straight at the camera.
func Forward() *Face {
	return Synthetic(0.5, 0.5)
}

// Away returns a synthetic face looking well off to one side.
func Away() *Face {
	return Synthetic(0.9, 0.9)
}

// placeIris writes a center point and four ring points around x.
func placeIris(points []Point, first int, x float64) {
	points[first] = Point{X: x, Y: syntheticEyeY}
	points[first+1] = Point{X: x + syntheticIrisRadius, Y: syntheticEyeY}
	points[first+2] = Point{X: x, Y: syntheticEyeY - syntheticIrisRadius}
	points[first+3] = Point{X: x - syntheticIrisRadius, Y: syntheticEyeY}
	points[first+4] = Point{X: x, Y: syntheticEyeY + syntheticIrisRadius}
}

// Step is one scripted detector response.
type Step struct {
	Face *Face
	Err  error
}

// Scripted is a Provider that replays a fixed sequence of responses.
// After the script is exhausted the last step repeats.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	pos   int
	calls int
}

// NewScripted creates a scripted provider.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Faces is a convenience for scripts without errors. A nil entry is "no face".
func Faces(faces ...*Face) []Step {
	steps := make([]Step, len(faces))
	for i, f := range faces {
		steps[i] = Step{Face: f}
	}
	return steps
}

// Repeat returns n copies of step.
func Repeat(step Step, n int) []Step {
	steps := make([]Step, n)
	for i := range steps {
		steps[i] = step
	}
	return steps
}

// Append adds steps to the end of the script.
func (s *Scripted) Append(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

// Detect returns the next scripted response.
func (s *Scripted) Detect(ctx context.Context, jpeg []byte, ts time.Duration) (*Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.steps) == 0 {
		return nil, nil
	}

	step := s.steps[s.pos]
	if s.pos < len(s.steps)-1 {
		s.pos++
	}
	return step.Face, step.Err
}

// Calls returns how many times Detect was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Close is a no-op.
func (s *Scripted) Close() error {
	return nil
}

var _ Provider = (*Scripted)(nil)
