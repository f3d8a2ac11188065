package broker

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type IPublisher interface {
	PublishJSON(topic string, qos byte, v any) error
}

type Publisher struct {
	client  mqtt.Client
	log     *zap.Logger
	timeout time.Duration
}

func NewPublisher(client mqtt.Client, log *zap.Logger) *Publisher {
	return &Publisher{client: client, log: log, timeout: 5 * time.Second}
}

// PublishJSON marshals v and publishes it, waiting for the broker ack when
// qos > 0.
func (p *Publisher) PublishJSON(topic string, qos byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(payload)), zap.Uint8("qos", qos))
	return nil
}
