package landmarks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Remote defaults.
const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultRequestTimeout   = 2 * time.Second
)

// ErrRemoteClosed is returned when Detect is called after Close.
var ErrRemoteClosed = errors.New("landmarks: remote provider closed")

// RemoteError is an error reported by the landmark service itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "landmarks: remote: " + e.Message
}

// request is the msgpack frame sent to the landmark service.
type request struct {
	Timestamp int64  `msgpack:"ts_ms"`
	Width     int    `msgpack:"width"`
	Height    int    `msgpack:"height"`
	JPEG      []byte `msgpack:"jpeg"`
}

// newRequest reads the frame size from the JPEG header. Undecodable frames
// are sent with zero dimensions and left to the service to reject.
func newRequest(jpeg []byte, ts time.Duration) request {
	req := request{Timestamp: ts.Milliseconds(), JPEG: jpeg}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(jpeg)); err == nil {
		req.Width, req.Height = cfg.Width, cfg.Height
	}
	return req
}

// response is the msgpack frame returned by the landmark service.
type response struct {
	Faces [][]Point `msgpack:"faces"`
	Error string    `msgpack:"error,omitempty"`
}

// RemoteConfig configures the websocket landmark client.
type RemoteConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// Remote talks to a landmark detection sidecar (e.g. a MediaPipe FaceMesh
// service) over a websocket. Each Detect is one binary request/response pair.
// The connection is dialed lazily and re-dialed after any transport error.
type Remote struct {
	cfg    RemoteConfig
	logger *slog.Logger
	dialer websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewRemote creates a remote provider. No connection is made until the
// first Detect.
func NewRemote(cfg RemoteConfig, logger *slog.Logger) *Remote {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		cfg:    cfg,
		logger: logger,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}
}

// Detect sends one frame and waits for its landmarks.
func (r *Remote) Detect(ctx context.Context, jpeg []byte, ts time.Duration) (*Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRemoteClosed
	}

	if r.conn == nil {
		conn, _, err := r.dialer.DialContext(ctx, r.cfg.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("dial landmark service: %w", err)
		}
		r.conn = conn
		r.logger.Info("landmark service connected", "url", r.cfg.URL)
	}

	payload, err := msgpack.Marshal(newRequest(jpeg, ts))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	deadline := time.Now().Add(r.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		r.dropLocked()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	r.conn.SetReadDeadline(deadline)
	_, msg, err := r.conn.ReadMessage()
	if err != nil {
		r.dropLocked()
		return nil, fmt.Errorf("read landmarks: %w", err)
	}

	var resp response
	if err := msgpack.Unmarshal(msg, &resp); err != nil {
		return nil, fmt.Errorf("decode landmarks: %w", err)
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error}
	}
	if len(resp.Faces) == 0 {
		return nil, nil
	}

	// Only presence matters beyond the first face
	return &Face{Points: resp.Faces[0]}, nil
}

// dropLocked closes a broken connection so the next call re-dials.
func (r *Remote) dropLocked() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Close closes the connection. Detect fails afterwards.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.conn == nil {
		return nil
	}

	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := r.conn.Close()
	r.conn = nil
	return err
}

var _ Provider = (*Remote)(nil)
