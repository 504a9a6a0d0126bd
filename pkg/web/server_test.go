package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
	"github.com/teslashibe/go-focus/pkg/persist"
)

type fakeAudio struct {
	mu       sync.Mutex
	unlocked bool
	err      error
}

func (a *fakeAudio) Unlock(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.unlocked = true
	return nil
}

func (a *fakeAudio) IsUnlocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unlocked
}

type fakeActivity struct {
	mu      sync.Mutex
	touches int
	visible *bool
	focused *bool
}

func (a *fakeActivity) Touch(time.Time) {
	a.mu.Lock()
	a.touches++
	a.mu.Unlock()
}

func (a *fakeActivity) SetVisible(v bool) {
	a.mu.Lock()
	a.visible = &v
	a.mu.Unlock()
}

func (a *fakeActivity) SetFocused(f bool) {
	a.mu.Lock()
	a.focused = &f
	a.mu.Unlock()
}

type fixture struct {
	srv      *Server
	ctrl     *camera.Controller
	machine  *focus.Machine
	device   *camera.MockDevice
	channel  *alert.Channel
	audio    *fakeAudio
	activity *fakeActivity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := focus.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond

	f := &fixture{
		device:   camera.NewMockDevice(),
		channel:  alert.NewChannel(nil),
		audio:    &fakeAudio{},
		activity: &fakeActivity{},
	}
	f.machine = focus.NewMachine(cfg, landmarks.NewScripted(landmarks.Step{Face: landmarks.Forward()}), nil)
	manager := camera.NewManager(camera.DefaultConfig())
	f.ctrl = camera.NewController(f.machine, f.device, manager, camera.WithAlerts(f.channel))
	t.Cleanup(f.ctrl.Disable)

	f.srv = NewServer(Deps{
		Tracker:   f.ctrl,
		Status:    f.machine,
		Telemetry: f.machine.Telemetry(),
		Alerts:    f.channel,
		Audio:     f.audio,
		Activity:  f.activity,
		Camera:    manager,
	}, "", nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.srv.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestServer_StatusWhenIdle(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["tracking"])
	assert.Equal(t, true, body["visible"])
	assert.Equal(t, false, body["audio_unlocked"])
	assert.Nil(t, body["alert"])

	focusBody := body["focus"].(map[string]any)
	assert.Equal(t, string(focus.StateLoading), focusBody["state"])
}

func TestServer_TrackingToggle(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/tracking", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["tracking"])
	assert.True(t, f.ctrl.Enabled())

	require.Eventually(t, func() bool {
		return f.machine.State() == focus.StateFocused
	}, time.Second, 5*time.Millisecond)

	_, body = f.do(t, http.MethodGet, "/api/telemetry", "")
	assert.Equal(t, string(focus.TelemetryFocused), body["state"])
	assert.Equal(t, true, body["enabled"])

	resp, body = f.do(t, http.MethodPost, "/api/tracking", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["tracking"])
	assert.False(t, f.ctrl.Enabled())
	assert.Equal(t, focus.TelemetryOff, f.machine.Telemetry().Snapshot().State)
}

func TestServer_TrackingPermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.device.FailOpen(&camera.DeviceError{Op: "open", Permission: true, Err: errors.New("denied")})

	resp, body := f.do(t, http.MethodPost, "/api/tracking", `{"enabled":true}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, false, body["tracking"])
	assert.Contains(t, body["error"], "permission denied")
	assert.Equal(t, focus.StateNoPermission, f.machine.State())
}

func TestServer_TrackingBadBody(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/tracking", `{"enabled":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_AlertClear(t *testing.T) {
	f := newFixture(t)
	f.channel.Push("look here", alert.Options{Kind: alert.KindWarning, Reason: alert.ReasonNoFace})

	_, body := f.do(t, http.MethodGet, "/api/status", "")
	require.NotNil(t, body["alert"])
	assert.Equal(t, "look here", body["alert"].(map[string]any)["message"])

	resp, _ := f.do(t, http.MethodPost, "/api/alert/clear", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ok := f.channel.Current()
	assert.False(t, ok)
}

func TestServer_AudioUnlock(t *testing.T) {
	f := newFixture(t)

	f.audio.err = errors.New("no output device")
	resp, body := f.do(t, http.MethodPost, "/api/audio/unlock", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, false, body["unlocked"])

	f.audio.err = nil
	resp, body = f.do(t, http.MethodPost, "/api/audio/unlock", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["unlocked"])
	assert.True(t, f.audio.IsUnlocked())
}

func TestServer_VisibilityAndActivity(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/visibility", `{"visible":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, f.ctrl.Visible())
	require.NotNil(t, f.activity.visible)
	assert.False(t, *f.activity.visible)

	resp, _ = f.do(t, http.MethodPost, "/api/activity", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/activity", `{"window_focused":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 2, f.activity.touches)
	require.NotNil(t, f.activity.focused)
	assert.True(t, *f.activity.focused)
}

func TestServer_Camera(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/camera", "")
	cfg := body["config"].(map[string]any)
	assert.Equal(t, float64(640), cfg["width"])
	assert.Contains(t, body["presets"], "720p")

	resp, body := f.do(t, http.MethodPatch, "/api/camera", `{"preset":"720p","mirror":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1280), body["width"])
	assert.Equal(t, true, body["mirror"])

	resp, body = f.do(t, http.MethodPatch, "/api/camera", `{"zoom":2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown camera setting")
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.srv.App().Test(httptest.NewRequest(http.MethodGet, "/ws/status", nil), -1)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

type fakeHistory struct {
	records []persist.Record
	subject string
	limit   int
}

func (h *fakeHistory) Records(ctx context.Context, subjectID string, limit int) ([]persist.Record, error) {
	h.subject, h.limit = subjectID, limit
	if len(h.records) > limit {
		return h.records[:limit], nil
	}
	return h.records, nil
}

func TestServer_Records(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/records", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	hist := &fakeHistory{records: []persist.Record{
		{ID: "r2", SubjectID: "alice", IsFocused: false},
		{ID: "r1", SubjectID: "alice", IsFocused: true},
	}}
	f.srv.deps.History = hist
	f.srv.deps.SubjectID = "alice"

	resp, err := f.srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/records?limit=1", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []persist.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, "alice", hist.subject)
	assert.Equal(t, 1, hist.limit)

	resp, _ = f.do(t, http.MethodGet, "/api/records?limit=9999", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
