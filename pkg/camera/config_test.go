package camera

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("DefaultConfig invalid: %v", errs)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("Preset %s missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("Preset %s invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestConfig_ValidateRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 100
	cfg.Quality = 0
	cfg.Brightness = 2

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Expected 3 errors, got %v", errs)
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	err := m.UpdateConfig(map[string]any{"preset": "720p", "quality": 90.0, "mirror": true})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Expected preset resolution, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Quality != 90 || !cfg.Mirror {
		t.Errorf("Expected overrides applied, got %+v", cfg)
	}
	if len(applied) != 1 {
		t.Errorf("Expected 1 config change callback, got %d", len(applied))
	}
}

func TestManager_UpdateConfigRejects(t *testing.T) {
	m := NewManager(DefaultConfig())

	if err := m.UpdateConfig(map[string]any{"preset": "8k"}); err == nil {
		t.Error("Expected unknown preset error")
	}
	if err := m.UpdateConfig(map[string]any{"zoom": 2.0}); err == nil {
		t.Error("Expected unknown setting error")
	}
	if err := m.UpdateConfig(map[string]any{"width": 50}); err == nil {
		t.Error("Expected validation error")
	}
	if m.GetConfig() != DefaultConfig() {
		t.Error("Rejected updates must not change the config")
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := NewManager(DefaultConfig())
	boom := errors.New("device busy")
	m.OnConfigChange = func(Config) error { return boom }

	if err := m.SetConfig(LowConfig()); !errors.Is(err, boom) {
		t.Errorf("Expected callback error, got %v", err)
	}
}

func TestDeviceError_Permission(t *testing.T) {
	err := error(&DeviceError{Op: "open", Permission: true, Err: errors.New("denied by user")})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("Expected permission error to match ErrPermissionDenied")
	}

	other := error(&DeviceError{Op: "read", Err: errors.New("timeout")})
	if errors.Is(other, ErrPermissionDenied) {
		t.Error("Non-permission error matched ErrPermissionDenied")
	}
}
