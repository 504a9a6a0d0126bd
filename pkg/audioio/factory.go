package audioio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// NewSink creates an audio sink with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = detectBestBackend(cfg)
	}

	logger.Info("creating audio sink",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	switch backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendExec:
		return NewExecSink(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// detectBestBackend returns exec when a player can be found on PATH.
func detectBestBackend(cfg Config) Backend {
	argv := cfg.Command
	if len(argv) == 0 {
		argv = playerCommand(cfg)
	}
	if _, err := exec.LookPath(argv[0]); err == nil {
		return BackendExec
	}
	return BackendMock
}

// playerCommand returns the default player command line for the platform.
func playerCommand(cfg Config) []string {
	rate := fmt.Sprint(cfg.SampleRate)
	channels := fmt.Sprint(cfg.Channels)

	if runtime.GOOS == "linux" {
		argv := []string{"aplay", "-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", channels}
		if cfg.Device != "" {
			argv = append(argv, "-D", cfg.Device)
		}
		return append(argv, "-")
	}

	return []string{"play", "-q", "-t", "raw", "-e", "signed-integer", "-b", "16",
		"-L", "-r", rate, "-c", channels, "-"}
}
