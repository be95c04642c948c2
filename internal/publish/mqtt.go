// Package publish forwards acquisition events to an MQTT broker.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mindtv/internal/acquisition"
	"mindtv/internal/logger"
)

const (
	defaultQueueSize      = 512
	defaultPublishTimeout = 2 * time.Second
	connectTimeout        = 5 * time.Second
	disconnectQuiesceMs   = 250
)

var ErrConnectTimeout = errors.New("mqtt connect timeout")

// Config describes the broker link and where events land.
type Config struct {
	Broker         string
	ClientID       string
	Topic          string // events go to <Topic>/<kind>
	QoS            byte
	QueueSize      int
	PublishTimeout time.Duration
}

// client is the subset of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type message struct {
	topic   string
	payload []byte
}

type payload struct {
	SessionID string            `json:"session_id"`
	Event     acquisition.Event `json:"event"`
}

// MQTT publishes run events from a single worker goroutine. Publish never
// blocks the caller: when the queue is full the event is dropped and counted.
type MQTT struct {
	client  client
	topic   string
	qos     byte
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// Connect dials the broker with auto-reconnect and returns a running publisher.
func Connect(cfg Config, log *logger.Logger) (*MQTT, error) {
	log = logger.OrNop(log).Named("mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "broker", cfg.Broker, "err", err)
	}
	opts.OnConnect = func(mqtt.Client) {
		log.Infow("mqtt_connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return newMQTT(c, cfg, log), nil
}

func newMQTT(c client, cfg Config, log *logger.Logger) *MQTT {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	p := &MQTT{
		client:  c,
		topic:   strings.TrimRight(cfg.Topic, "/"),
		qos:     cfg.QoS,
		timeout: cfg.PublishTimeout,
		log:     logger.OrNop(log),
		queue:   make(chan message, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// Publish queues e for delivery under <topic>/<kind>.
func (p *MQTT) Publish(sessionID string, e acquisition.Event) {
	body, err := json.Marshal(payload{SessionID: sessionID, Event: e})
	if err != nil {
		p.failed.Add(1)
		p.log.Errorw("mqtt_encode_failed", "session_id", sessionID, "kind", e.Kind, "err", err)
		return
	}
	msg := message{topic: p.topic + "/" + string(e.Kind), payload: body}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- msg:
	default:
		p.dropped.Add(1)
	}
}

func (p *MQTT) loop() {
	defer close(p.done)
	for msg := range p.queue {
		token := p.client.Publish(msg.topic, p.qos, false, msg.payload)
		if !token.WaitTimeout(p.timeout) {
			p.failed.Add(1)
			p.log.Warnw("mqtt_publish_timeout", "topic", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.failed.Add(1)
			p.log.Warnw("mqtt_publish_failed", "topic", msg.topic, "err", err)
			continue
		}
		p.published.Add(1)
	}
}

// Close flushes queued events and disconnects. It is safe to call twice.
func (p *MQTT) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(disconnectQuiesceMs)
}

// Stats reports delivered, failed and dropped event counts.
func (p *MQTT) Stats() (published, failed, dropped uint64) {
	return p.published.Load(), p.failed.Load(), p.dropped.Load()
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
