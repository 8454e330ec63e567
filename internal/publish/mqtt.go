// Package publish pushes widget readings to an MQTT broker so home
// dashboards and other devices can show the same prayer window.
package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	qos            = 1
)

// Client is the subset of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Payload is the retained message published on every change.
type Payload struct {
	Prayer    string `json:"prayer,omitempty"`
	Next      string `json:"next,omitempty"`
	Percent   int    `json:"percent"`
	Remaining int    `json:"remaining_minutes"`
	Label     string `json:"label,omitempty"`
	WindowEnd int64  `json:"window_end,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PayloadFor converts a driver update. Fields only change at minute
// resolution so identical payloads can be skipped.
func PayloadFor(u driver.Update) Payload {
	var p Payload
	if u.HasReading {
		r := u.Reading
		p = Payload{
			Prayer:    r.Prayer,
			Next:      r.Next,
			Percent:   int(math.Floor(r.FillPercentage)),
			Remaining: int(r.Remaining.Duration() / time.Minute),
			Label:     r.Remaining.Label(),
			WindowEnd: r.End.Unix(),
		}
	}
	if u.Err != nil {
		p.Stale = u.HasReading
		p.Error = u.Err.Error()
	}
	return p
}

// Publisher publishes readings to Topic and availability to Topic+"/status".
type Publisher struct {
	client Client
	topic  string
	logger zerolog.Logger

	mu   sync.Mutex
	last []byte
}

// Connect dials broker and returns a publisher for topic. The connection
// reconnects automatically; a last-will marks the widget offline.
func Connect(broker, topic string, logger zerolog.Logger) (*Publisher, error) {
	if broker == "" {
		return nil, errors.New("mqtt broker URL is required")
	}
	if topic == "" {
		return nil, errors.New("mqtt topic is required")
	}
	logger = logger.With().Str("component", "mqtt").Str("broker", broker).Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("prayer-widget-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWill(statusTopic(topic), "offline", qos, true)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info().Msg("connected to MQTT broker")
		c.Publish(statusTopic(topic), qos, true, "online")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return New(client, topic, logger), nil
}

// New wraps an already connected client.
func New(client Client, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, logger: logger}
}

func statusTopic(topic string) string {
	return topic + "/status"
}

// Observe publishes u if it differs from the last message the broker
// accepted. It has the driver.Subscriber signature and never blocks on the
// network. A failed or timed-out publish is retried on the next update.
func (p *Publisher) Observe(u driver.Update) {
	data, err := json.Marshal(PayloadFor(u))
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode payload")
		return
	}

	p.mu.Lock()
	if bytes.Equal(data, p.last) {
		p.mu.Unlock()
		return
	}
	p.last = data
	p.mu.Unlock()

	token := p.client.Publish(p.topic, qos, true, data)
	go func() {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				p.forget(data)
				p.logger.Warn().Err(err).Str("topic", p.topic).Msg("publish failed")
			}
		case <-time.After(publishTimeout):
			p.forget(data)
			p.logger.Warn().Str("topic", p.topic).Msg("publish timed out")
		}
	}()
}

// forget drops data as the last published payload unless a newer one has
// replaced it.
func (p *Publisher) forget(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bytes.Equal(p.last, data) {
		p.last = nil
	}
}

// Close marks the widget offline and disconnects.
func (p *Publisher) Close() error {
	token := p.client.Publish(statusTopic(p.topic), qos, true, "offline")
	token.WaitTimeout(publishTimeout)
	p.client.Disconnect(250)
	return token.Error()
}
