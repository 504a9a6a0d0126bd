package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-focus/internal/config"
	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/audioio"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
)

func testConfig(t *testing.T, record string) config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.DataDir = t.TempDir()
	cfg.Record = record
	cfg.Audio.Backend = audioio.BackendMock
	cfg.Tracking.TickInterval = 10 * time.Millisecond
	cfg.Tracking.NoFaceDelay = 20 * time.Millisecond
	cfg.Persist.ActivityTick = 10 * time.Millisecond
	return *cfg
}

func startApp(t *testing.T, cfg config.Config, provider landmarks.Provider) (*App, *camera.MockDevice) {
	t.Helper()

	a, err := New(cfg, nil)
	require.NoError(t, err)

	device := camera.NewMockDevice()
	a.Device = device
	a.Provider = provider
	require.NoError(t, a.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		a.Shutdown()
	})
	return a, device
}

func TestApp_GazeRecording(t *testing.T) {
	cfg := testConfig(t, config.RecordGaze)
	a, device := startApp(t, cfg, landmarks.NewScripted(landmarks.Step{Face: landmarks.Forward()}))

	require.NoError(t, a.Controller().Enable(context.Background()))
	assert.True(t, device.IsOpen())

	require.Eventually(t, func() bool {
		recs, err := a.store.Records(context.Background(), cfg.Persist.SubjectID, 10)
		return err == nil && len(recs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	recs, err := a.store.Records(context.Background(), cfg.Persist.SubjectID, 10)
	require.NoError(t, err)
	assert.True(t, recs[0].IsFocused)
	require.NotNil(t, recs[0].Confidence)
	require.NotNil(t, recs[0].AreaID)

	a.Controller().Disable()
	assert.False(t, device.IsOpen())
	assert.Equal(t, focus.TelemetryOff, a.telemetry.Snapshot().State)
}

func TestApp_NoFaceRaisesAlert(t *testing.T) {
	cfg := testConfig(t, config.RecordGaze)
	a, _ := startApp(t, cfg, landmarks.NewScripted(landmarks.Step{Face: nil}))

	alerts := make(chan alert.Envelope, 8)
	a.channel.Subscribe(func(env alert.Envelope, live bool) {
		if live {
			alerts <- env
		}
	})

	require.NoError(t, a.Controller().Enable(context.Background()))

	select {
	case env := <-alerts:
		assert.Equal(t, alert.ReasonNoFace, env.Reason)
		assert.Equal(t, alert.KindWarning, env.Kind)
		assert.False(t, env.Alarm)
	case <-time.After(2 * time.Second):
		t.Fatal("no alert raised")
	}
}

func TestApp_ActivityRecording(t *testing.T) {
	cfg := testConfig(t, config.RecordActivity)
	a, _ := startApp(t, cfg, landmarks.NewScripted())

	a.activity.SetVisible(true)
	a.activity.SetFocused(true)
	a.activity.Touch(time.Now())

	require.Eventually(t, func() bool {
		recs, err := a.store.Records(context.Background(), cfg.Persist.SubjectID, 10)
		return err == nil && len(recs) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	recs, err := a.store.Records(context.Background(), cfg.Persist.SubjectID, 10)
	require.NoError(t, err)
	assert.Nil(t, recs[len(recs)-1].Confidence)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "nope")
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
