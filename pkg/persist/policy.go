package persist

import "time"

// Policy is the change-or-interval write rule: write when nothing has been
// written yet, when the focused flag differs from the last written value, or
// when MinWriteInterval has elapsed since the last write. A tick that meets
// both conditions still yields a single write.
type Policy struct {
	MinInterval time.Duration

	written     bool
	lastFocused bool
	lastWriteAt time.Time
}

// Decide reports whether a write should happen and, if so, records it as
// the last write.
func (p *Policy) Decide(focused bool, now time.Time) bool {
	fire := !p.written ||
		focused != p.lastFocused ||
		now.Sub(p.lastWriteAt) >= p.MinInterval
	if !fire {
		return false
	}

	p.written = true
	p.lastFocused = focused
	p.lastWriteAt = now
	return true
}

// LastWrite returns the last written value and when it was written.
func (p *Policy) LastWrite() (focused bool, at time.Time, ok bool) {
	return p.lastFocused, p.lastWriteAt, p.written
}

// Reset forgets the last write.
func (p *Policy) Reset() {
	p.written = false
	p.lastFocused = false
	p.lastWriteAt = time.Time{}
}
