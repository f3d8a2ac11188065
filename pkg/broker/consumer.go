package broker

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Topic roots.
const (
	TopicSensorReadings   = "sensor/readings"
	TopicSimulatorControl = "sensor/control"
	TopicEvaluation       = "dashboard/evaluation"
)

type Handler func(topic string, msg mqtt.Message) error

type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(h Handler)
}

// Consumer subscribes a handler to one or more topic filters.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	log     *zap.Logger
}

func NewConsumer(client mqtt.Client, topics []string, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{client: client, topics: topics, handler: handler, log: log}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// QoSFor is 1 for readings, simulator commands and evaluations, which must
// not be lost, and 0 otherwise.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	for _, root := range []string{TopicSensorReadings, TopicSimulatorControl, TopicEvaluation} {
		if strings.HasPrefix(t, root) {
			return 1
		}
	}
	return 0
}

// ConsumeMessage subscribes to every topic and blocks until ctx is done,
// then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range c.topics {
		topic := topic
		token := c.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if c.handler == nil {
				c.log.Warn("no handler set", zap.String("topic", topic))
				return
			}
			if err := c.handler(msg.Topic(), msg); err != nil {
				c.log.Warn("handle message", zap.String("topic", msg.Topic()), zap.Error(err))
			}
		})
		if token.Wait() && token.Error() != nil {
			c.log.Error("subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
			continue
		}
		c.log.Info("subscribed", zap.String("topic", topic))
	}

	<-ctx.Done()

	if len(c.topics) > 0 {
		c.client.Unsubscribe(c.topics...).Wait()
	}
}
