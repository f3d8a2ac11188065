// Package mqttfeed buffers sensor readings pushed over MQTT so the dashboard
// can pull a window of them like any other reading source.
package mqttfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/internal/sources"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/dedup"
)

// Topic is the filter the feed subscribes to.
const Topic = broker.TopicSensorReadings + "/#"

type Config struct {
	// Capacity bounds the ring; the oldest readings are dropped first.
	Capacity int
	// DeviceID keeps only readings from one probe when set.
	DeviceID string
	DedupTTL time.Duration
}

type Feed struct {
	mu       sync.Mutex
	ring     []entities.Reading // ordered by timestamp, oldest first
	capacity int
	device   string
	deduper  *dedup.Deduper
	log      *zap.Logger
	now      func() time.Time
	received int64
	dropped  int64
}

func New(cfg Config, log *zap.Logger) *Feed {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	return &Feed{
		ring:     make([]entities.Reading, 0, cfg.Capacity),
		capacity: cfg.Capacity,
		device:   cfg.DeviceID,
		deduper:  dedup.New(cfg.DedupTTL, cfg.Capacity*4),
		log:      log,
		now:      time.Now,
	}
}

// Consume subscribes the feed on client and blocks until ctx is done.
func (f *Feed) Consume(ctx context.Context, client mqtt.Client) {
	broker.NewConsumer(client, []string{Topic}, f.Handle, f.log).ConsumeMessage(ctx)
}

// Handle is the broker.Handler of the feed.
func (f *Feed) Handle(topic string, msg mqtt.Message) error {
	if !f.deduper.ShouldProcessPayload(msg.Payload()) {
		f.log.Debug("duplicate reading dropped", zap.String("topic", topic))
		return nil
	}
	var sr messages.SensorReading
	if err := json.Unmarshal(msg.Payload(), &sr); err != nil {
		return fmt.Errorf("invalid SensorReading on %s: %w", topic, err)
	}
	if sr.DeviceID == "" {
		sr.DeviceID = deviceFromTopic(topic)
	}
	if f.device != "" && sr.DeviceID != f.device {
		return nil
	}
	if sr.Timestamp.IsZero() {
		sr.Timestamp = f.now().UTC()
	}
	f.push(sr.ToReading())
	return nil
}

func (f *Feed) push(r entities.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++

	// readings mostly arrive in order; walk back from the end to place late ones
	i := len(f.ring)
	for i > 0 && f.ring[i-1].Timestamp.After(r.Timestamp) {
		i--
	}
	f.ring = append(f.ring, entities.Reading{})
	copy(f.ring[i+1:], f.ring[i:])
	f.ring[i] = r

	if over := len(f.ring) - f.capacity; over > 0 {
		f.dropped += int64(over)
		f.ring = append(f.ring[:0], f.ring[over:]...)
	}
}

// FetchReadings returns the last windowSize readings, oldest first.
func (f *Feed) FetchReadings(ctx context.Context, windowSize int) ([]entities.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, sources.Unavailable("mqtt feed", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ring) == 0 {
		return nil, sources.Unavailable("mqtt feed", fmt.Errorf("no readings received on %s", Topic))
	}
	if windowSize <= 0 || windowSize > len(f.ring) {
		windowSize = len(f.ring)
	}
	src := f.ring[len(f.ring)-windowSize:]
	out := make([]entities.Reading, len(src))
	for i, r := range src {
		out[i] = clone(r)
	}
	return out, nil
}

// Stats reports the buffered, received and evicted reading counts.
func (f *Feed) Stats() (buffered int, received, dropped int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ring), f.received, f.dropped
}

func deviceFromTopic(topic string) string {
	prefix := broker.TopicSensorReadings + "/"
	if strings.HasPrefix(topic, prefix) {
		return strings.TrimPrefix(topic, prefix)
	}
	return ""
}

func clone(r entities.Reading) entities.Reading {
	out := r
	out.Values = make(map[entities.Field]float64, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	if r.GPS != nil {
		g := *r.GPS
		out.GPS = &g
	}
	return out
}
