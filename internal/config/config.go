// Package config loads focusd configuration from defaults, an optional .env
// file and FOCUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-focus/pkg/alarm"
	"github.com/teslashibe/go-focus/pkg/audioio"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
	"github.com/teslashibe/go-focus/pkg/persist"
	"github.com/teslashibe/go-focus/pkg/telemetry"
)

// EnvPrefix is prepended to every environment key, so "tracking.tick_interval"
// is read from FOCUS_TRACKING_TICK_INTERVAL.
const EnvPrefix = "FOCUS"

// Store backends.
const (
	StoreJSONL    = "jsonl"
	StorePostgres = "postgres"
)

// Record modes: gaze persists classified webcam samples, activity persists
// focus inferred from page visibility and user input.
const (
	RecordGaze     = "gaze"
	RecordActivity = "activity"
)

// Config is the complete daemon configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	HTTPAddr  string `mapstructure:"http_addr"`
	StaticDir string `mapstructure:"static_dir"`

	Store       string `mapstructure:"store"`
	DataDir     string `mapstructure:"data_dir"`
	DatabaseURL string `mapstructure:"database_url"`
	Migrate     bool   `mapstructure:"migrate"`
	Record      string `mapstructure:"record"`
	AutoStart   bool   `mapstructure:"autostart"`

	Landmarks landmarks.RemoteConfig `mapstructure:"landmarks"`
	Tracking  focus.Config           `mapstructure:"tracking"`
	Persist   persist.Config         `mapstructure:"persist"`
	Alarm     alarm.Config           `mapstructure:"alarm"`
	Audio     audioio.Config         `mapstructure:"audio"`
	Camera    camera.Config          `mapstructure:"camera"`
	MQTT      telemetry.Config       `mapstructure:"mqtt"`
}

// Error reports an invalid configuration section.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads configuration. envFile names a dotenv file to load first; it is
// ignored when empty or missing. Variables already set in the environment
// win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreJSONL:
		if c.DataDir == "" {
			return &Error{Field: "data_dir", Err: errors.New("required for the jsonl store")}
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return &Error{Field: "database_url", Err: errors.New("required for the postgres store")}
		}
	default:
		return &Error{Field: "store", Err: fmt.Errorf("unknown store %q", c.Store)}
	}

	if c.Record != RecordGaze && c.Record != RecordActivity {
		return &Error{Field: "record", Err: fmt.Errorf("unknown record mode %q", c.Record)}
	}

	if err := c.Tracking.Validate(); err != nil {
		return &Error{Field: "tracking", Err: err}
	}
	if err := c.Persist.Validate(); err != nil {
		return &Error{Field: "persist", Err: err}
	}
	if err := c.Alarm.Validate(); err != nil {
		return &Error{Field: "alarm", Err: err}
	}
	if err := c.Audio.Validate(); err != nil {
		return &Error{Field: "audio", Err: err}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &Error{Field: "camera", Err: errors.New(strings.Join(errs, "; "))}
	}
	if err := c.MQTT.Validate(); err != nil {
		return &Error{Field: "mqtt", Err: err}
	}
	return nil
}

// setDefaults registers every key. Viper only binds environment variables
// for keys it knows about, so nothing may be left out here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8090")
	v.SetDefault("static_dir", "")
	v.SetDefault("store", StoreJSONL)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("database_url", "")
	v.SetDefault("migrate", true)
	v.SetDefault("record", RecordGaze)
	v.SetDefault("autostart", false)

	v.SetDefault("landmarks.url", "ws://127.0.0.1:8765/landmarks")
	v.SetDefault("landmarks.handshake_timeout", landmarks.DefaultHandshakeTimeout)
	v.SetDefault("landmarks.request_timeout", landmarks.DefaultRequestTimeout)

	f := focus.DefaultConfig()
	v.SetDefault("tracking.no_face_confidence", f.NoFaceConfidence)
	v.SetDefault("tracking.forward_threshold", f.ForwardThreshold)
	v.SetDefault("tracking.gaze_score_span", f.GazeScoreSpan)
	v.SetDefault("tracking.min_gaze_score", f.MinGazeScore)
	v.SetDefault("tracking.grace_period", f.GracePeriod)
	v.SetDefault("tracking.grace_confidence", f.GraceConfidence)
	v.SetDefault("tracking.tick_interval", f.TickInterval)
	v.SetDefault("tracking.no_face_delay", f.NoFaceDelay)
	v.SetDefault("tracking.no_face_cooldown", f.NoFaceCooldown)
	v.SetDefault("tracking.escalate_after", f.EscalateAfter)
	v.SetDefault("tracking.no_face_message", f.NoFaceMessage)
	v.SetDefault("tracking.low_focus_threshold", f.LowFocusThreshold)
	v.SetDefault("tracking.low_focus_run_length", f.LowFocusRunLength)
	v.SetDefault("tracking.break_hint_cooldown", f.BreakHintCooldown)
	v.SetDefault("tracking.break_hint_message", f.BreakHintMessage)
	v.SetDefault("tracking.alert_duration", f.AlertDuration)
	v.SetDefault("tracking.stale_after", f.StaleAfter)

	p := persist.DefaultConfig()
	v.SetDefault("persist.subject_id", p.SubjectID)
	v.SetDefault("persist.min_write_interval", p.MinWriteInterval)
	v.SetDefault("persist.idle_window", p.IdleWindow)
	v.SetDefault("persist.activity_tick", p.ActivityTick)
	v.SetDefault("persist.write_timeout", p.WriteTimeout)

	a := alarm.DefaultConfig()
	v.SetDefault("alarm.frequency", a.Frequency)
	v.SetDefault("alarm.beeps", a.Beeps)
	v.SetDefault("alarm.spacing", a.Spacing)
	v.SetDefault("alarm.tone_duration", a.ToneDuration)
	v.SetDefault("alarm.loop_interval", a.LoopInterval)
	v.SetDefault("alarm.volume", a.Volume)

	au := audioio.DefaultConfig()
	v.SetDefault("audio.backend", string(au.Backend))
	v.SetDefault("audio.sample_rate", au.SampleRate)
	v.SetDefault("audio.channels", au.Channels)
	v.SetDefault("audio.buffer_duration", au.BufferDuration)
	v.SetDefault("audio.device", au.Device)
	v.SetDefault("audio.command", au.Command)

	c := camera.DefaultConfig()
	v.SetDefault("camera.device_id", c.DeviceID)
	v.SetDefault("camera.width", c.Width)
	v.SetDefault("camera.height", c.Height)
	v.SetDefault("camera.framerate", c.Framerate)
	v.SetDefault("camera.quality", c.Quality)
	v.SetDefault("camera.brightness", c.Brightness)
	v.SetDefault("camera.mirror", c.Mirror)

	m := telemetry.DefaultConfig()
	v.SetDefault("mqtt.broker", m.Broker)
	v.SetDefault("mqtt.client_id", m.ClientID)
	v.SetDefault("mqtt.topic_prefix", m.TopicPrefix)
	v.SetDefault("mqtt.qos", m.QoS)
	v.SetDefault("mqtt.username", m.Username)
	v.SetDefault("mqtt.password", m.Password)
}
