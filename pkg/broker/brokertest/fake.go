// Package brokertest provides an in-memory mqtt.Client for tests.
package brokertest

import (
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type token struct{ err error }

func (t token) Wait() bool                     { return true }
func (t token) WaitTimeout(time.Duration) bool { return true }
func (t token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t token) Error() error { return t.err }

// Message is a settable mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
	QoS       byte
	Dup       bool
	ID        uint16
}

func (m *Message) Duplicate() bool   { return m.Dup }
func (m *Message) Qos() byte         { return m.QoS }
func (m *Message) Retained() bool    { return false }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return m.ID }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              {}

// Published is one call to Publish.
type Published struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// Client records publishes and routes Deliver calls to subscribers.
type Client struct {
	mu         sync.Mutex
	connected  bool
	subs       map[string]mqtt.MessageHandler
	published  []Published
	PublishErr error
}

func NewClient() *Client {
	return &Client{connected: true, subs: map[string]mqtt.MessageHandler{}}
}

func (c *Client) IsConnected() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.connected }
func (c *Client) IsConnectionOpen() bool { return c.IsConnected() }
func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return token{}
}
func (c *Client) Disconnect(uint) { c.mu.Lock(); c.connected = false; c.mu.Unlock() }

func (c *Client) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return token{err: c.PublishErr}
	}
	c.published = append(c.published, Published{Topic: topic, QoS: qos, Payload: b})
	return token{}
}

func (c *Client) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.subs[topic] = cb
	c.mu.Unlock()
	return token{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	for f, q := range filters {
		c.Subscribe(f, q, cb)
	}
	return token{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return token{}
}

func (c *Client) AddRoute(topic string, cb mqtt.MessageHandler) { c.Subscribe(topic, 0, cb) }

func (c *Client) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// Subscribed reports whether a filter is currently subscribed.
func (c *Client) Subscribed(filter string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[filter]
	return ok
}

// Deliver hands msg to every subscriber whose filter matches its topic.
// It returns the number of handlers called.
func (c *Client) Deliver(msg *Message) int {
	c.mu.Lock()
	var hs []mqtt.MessageHandler
	for f, h := range c.subs {
		if Match(f, msg.TopicName) {
			hs = append(hs, h)
		}
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(c, msg)
	}
	return len(hs)
}

// Published returns a copy of everything published so far.
func (c *Client) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// Match implements MQTT filter matching for + and #.
func Match(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
