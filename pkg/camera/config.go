// Package camera owns the capture device lifecycle: runtime-configurable
// capture settings, the device abstraction and the controller that drives
// the focus tick loop.
package camera

// Config holds capture parameters. They can be changed at runtime through
// the Manager.
type Config struct {
	// DeviceID is the OS camera index (0 = first webcam).
	DeviceID int `json:"device_id" mapstructure:"device_id"`

	// Resolution
	Width     int `json:"width" mapstructure:"width"`
	Height    int `json:"height" mapstructure:"height"`
	Framerate int `json:"framerate" mapstructure:"framerate"`
	Quality   int `json:"quality" mapstructure:"quality"` // JPEG quality 1-100

	// Brightness adjustment (-1.0 to +1.0), 0 leaves the driver default.
	Brightness float64 `json:"brightness" mapstructure:"brightness"`

	// Mirror flips frames horizontally before encoding.
	Mirror bool `json:"mirror" mapstructure:"mirror"`
}

// Capture limits accepted by Validate.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 60
)

// DefaultConfig returns 640x480 at 15 FPS, plenty for iris landmarks at
// laptop distance.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     640,
		Height:    480,
		Framerate: 15,
		Quality:   80,
	}
}

// Validate returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must not be negative")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}

	return errors
}
