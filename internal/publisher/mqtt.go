package publisher

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-json-experiment/json"

	"github.com/jgoulah/meterdata/internal/config"
	"github.com/jgoulah/meterdata/pkg/models"
)

const publishTimeout = 10 * time.Second

// client is the part of mqtt.Client the publisher uses
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher sends aggregated usage to an MQTT broker
type Publisher struct {
	client      client
	topicPrefix string
}

// New connects to the configured broker
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.GetClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newWithClient(c, cfg.GetTopicPrefix()), nil
}

func newWithClient(c client, topicPrefix string) *Publisher {
	return &Publisher{client: c, topicPrefix: topicPrefix}
}

// Payload is the JSON body of a published usage message
type Payload struct {
	Building  string  `json:"building"`
	Datetime  string  `json:"datetime"`
	Type      string  `json:"type"`
	UsageUnit string  `json:"usage_unit"`
	Usage     float64 `json:"usage"`
	Occupancy int     `json:"occupancy"`
}

// Topic returns the topic a record is published on: <prefix>/<building>/<type>
func (p *Publisher) Topic(r models.AggregatedRecord) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, slug(r.Building), strings.ToLower(string(r.Type)))
}

// Publish sends one aggregated record and waits for the broker to accept it
func (p *Publisher) Publish(r models.AggregatedRecord) error {
	body, err := json.Marshal(Payload{
		Building:  r.Building,
		Datetime:  r.Timestamp.Format(time.RFC3339),
		Type:      string(r.Type),
		UsageUnit: r.UsageUnit,
		Usage:     r.Usage,
		Occupancy: r.Occupancy,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(p.Topic(r), 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", p.Topic(r))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.Topic(r), err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// slug lowercases a building name and replaces runs of other characters with "_"
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
