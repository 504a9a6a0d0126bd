// focusd - webcam attention tracker with a local dashboard
// Classifies gaze every tick, raises alerts when you look away and records
// focus history.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-focus/internal/app"
	"github.com/teslashibe/go-focus/internal/config"
	ilog "github.com/teslashibe/go-focus/internal/log"
)

func main() {
	cfg := parseFlags()

	ilog.Init(cfg.LogLevel)
	logger := ilog.L()

	a, err := app.New(*cfg, logger)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
	}
}

// parseFlags loads configuration and applies command line overrides.
func parseFlags() *config.Config {
	envFile := flag.String("env", ".env", "Path to a dotenv file (ignored if missing)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	addr := flag.String("addr", "", "Dashboard listen address (overrides FOCUS_HTTP_ADDR)")
	storeKind := flag.String("store", "", "Record store: jsonl or postgres")
	record := flag.String("record", "", "Record mode: gaze or activity")
	landmarkURL := flag.String("landmarks", "", "Landmark sidecar websocket URL")
	device := flag.Int("device", -1, "Camera device index")
	autostart := flag.Bool("autostart", false, "Enable tracking on startup")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *storeKind != "" {
		cfg.Store = *storeKind
	}
	if *record != "" {
		cfg.Record = *record
	}
	if *landmarkURL != "" {
		cfg.Landmarks.URL = *landmarkURL
	}
	if *device >= 0 {
		cfg.Camera.DeviceID = *device
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "autostart" {
			cfg.AutoStart = *autostart
		}
	})
	return cfg
}
