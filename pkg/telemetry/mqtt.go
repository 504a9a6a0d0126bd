// Package telemetry mirrors focus telemetry and alerts onto an MQTT broker so
// other devices (a desk lamp, a home dashboard) can react to them.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/focus"
)

// Topic suffixes under Config.TopicPrefix.
const (
	TopicTelemetry = "telemetry"
	TopicAlert     = "alert"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	queueSize      = 64
)

// ErrNotConnected is returned by Connect when the broker could not be reached
// in time. The client keeps retrying in the background.
var ErrNotConnected = errors.New("telemetry: mqtt not connected")

// Config configures the publisher. An empty Broker disables it.
type Config struct {
	Broker      string `mapstructure:"broker"` // host:port or full URL
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         byte   `mapstructure:"qos"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

// DefaultConfig returns a disabled configuration with the standard prefix.
func DefaultConfig() Config {
	return Config{
		ClientID:    "focusd",
		TopicPrefix: "focus",
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.QoS > 2 {
		return fmt.Errorf("telemetry: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if strings.TrimSpace(c.TopicPrefix) == "" {
		return errors.New("telemetry: topic prefix is required")
	}
	return nil
}

// BrokerURL normalizes Broker to a paho URL, defaulting to tcp://.
func (c Config) BrokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	return "tcp://" + c.Broker
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

// Publisher forwards telemetry snapshots and alert envelopes to MQTT.
// Publish calls never block the caller: messages go through a bounded queue
// drained by Run, and are dropped when the queue is full.
type Publisher struct {
	cfg    Config
	client client
	logger *slog.Logger
	queue  chan message

	mu        sync.RWMutex
	published map[string]uint64
	dropped   uint64
	errors    uint64
	connected bool
}

// New creates a publisher. With no broker configured the publisher is inert.
func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		cfg:       cfg,
		logger:    logger.With("component", "mqtt"),
		queue:     make(chan message, queueSize),
		published: make(map[string]uint64),
	}
	if !cfg.Enabled() {
		return p
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWill(p.topic(TopicTelemetry), `{"state":"off"}`, cfg.QoS, true)

	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", cfg.Broker)
	}

	p.client = mqtt.NewClient(opts)
	return p
}

// newWithClient is used by tests to substitute the broker connection.
func newWithClient(cfg Config, c client, logger *slog.Logger) *Publisher {
	p := New(Config{TopicPrefix: cfg.TopicPrefix, QoS: cfg.QoS}, logger)
	p.cfg = cfg
	p.client = c
	return p
}

// Enabled reports whether the publisher talks to a broker.
func (p *Publisher) Enabled() bool {
	return p.client != nil
}

// Connect starts connecting. It waits up to a few seconds for the first
// connection; on timeout it returns ErrNotConnected while paho keeps retrying.
func (p *Publisher) Connect() error {
	if !p.Enabled() {
		return nil
	}
	p.logger.Info("connecting to mqtt broker", "broker", p.cfg.Broker)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return ErrNotConnected
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connect: %w", err)
	}
	p.setConnected(true)
	return nil
}

// Run drains the publish queue until ctx is done, then disconnects.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		return
	}
	defer p.client.Disconnect(250)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.send(msg)
		}
	}
}

// PublishTelemetry queues a telemetry snapshot. Telemetry is retained so new
// subscribers see the current state immediately.
func (p *Publisher) PublishTelemetry(snap focus.Snapshot) {
	p.enqueue(TopicTelemetry, true, snap)
}

// PublishAlert queues the alert slot. An emptied slot is sent as a cleared
// marker carrying the envelope id.
func (p *Publisher) PublishAlert(env alert.Envelope, live bool) {
	if live {
		p.enqueue(TopicAlert, false, env)
		return
	}
	p.enqueue(TopicAlert, false, struct {
		ID      string `json:"id"`
		Cleared bool   `json:"cleared"`
	}{env.ID, true})
}

func (p *Publisher) enqueue(suffix string, retained bool, v any) {
	if !p.Enabled() {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.countError()
		p.logger.Warn("encode mqtt payload failed", "topic", suffix, "error", err)
		return
	}

	select {
	case p.queue <- message{topic: p.topic(suffix), retained: retained, payload: payload}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}

func (p *Publisher) send(msg message) {
	if !p.client.IsConnected() {
		p.countError()
		return
	}

	token := p.client.Publish(msg.topic, p.cfg.QoS, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		p.countError()
		p.logger.Warn("mqtt publish timeout", "topic", msg.topic)
		return
	}
	if err := token.Error(); err != nil {
		p.countError()
		p.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
		return
	}

	p.mu.Lock()
	p.published[msg.topic]++
	p.mu.Unlock()

	p.logger.Debug("published", "topic", msg.topic, "size", len(msg.payload))
}

func (p *Publisher) topic(suffix string) string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + suffix
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}

// Stats contains publisher statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Dropped   uint64
	Errors    uint64
}

// Stats returns a copy of the publisher's counters.
func (p *Publisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	published := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		published[k] = v
	}
	return Stats{
		Connected: p.connected,
		Published: published,
		Dropped:   p.dropped,
		Errors:    p.errors,
	}
}
