// Package sensor_simulator publishes synthetic multi-field probe readings on
// MQTT so the dashboard can run without a live ThingSpeak channel.
package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/dedup"
)

// Device is the simulated probe.
type Device struct {
	ID        string
	Latitude  float64
	Longitude float64
}

func ReadingTopic(deviceID string) string { return broker.TopicSensorReadings + "/" + deviceID }
func ControlTopic(deviceID string) string { return broker.TopicSimulatorControl + "/" + deviceID }

type SensorSimulator struct {
	mu            sync.Mutex
	device        Device
	generator     *DataGenerator
	publisher     broker.IPublisher
	consumer      broker.IConsumer
	deduper       *dedup.Deduper
	irrigateUntil time.Time
	faultUntil    time.Time
	now           func() time.Time
	log           *zap.Logger
}

// NewSensorSimulator wires a probe; consumer may be nil when the probe is
// not remote-controlled.
func NewSensorSimulator(consumer broker.IConsumer, publisher broker.IPublisher,
	gen *DataGenerator, device Device, log *zap.Logger) *SensorSimulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &SensorSimulator{
		device:    device,
		generator: gen,
		publisher: publisher,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000),
		now:       time.Now,
		log:       log.With(zap.String("device", device.ID)),
	}
}

// Start listens for commands and publishes one reading per interval until
// ctx is done.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleMessage)
		go s.consumer.ConsumeMessage(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped")
			return
		case <-ticker.C:
			if _, err := s.PublishOnce(); err != nil {
				s.log.Warn("publish reading", zap.Error(err))
			}
		}
	}
}

// PublishOnce generates and publishes a single reading.
func (s *SensorSimulator) PublishOnce() (model.SensorReading, error) {
	now := s.now().UTC()
	s.mu.Lock()
	irrigating := now.Before(s.irrigateUntil)
	faulty := now.Before(s.faultUntil)
	s.mu.Unlock()

	lat, lon := s.device.Latitude, s.device.Longitude
	sr := model.SensorReading{
		DeviceID:  s.device.ID,
		Latitude:  &lat,
		Longitude: &lon,
		Values:    s.generator.Next(now, irrigating, faulty),
		Timestamp: now,
	}
	topic := ReadingTopic(s.device.ID)
	if err := s.publisher.PublishJSON(topic, broker.QoSFor(topic), sr); err != nil {
		return sr, err
	}
	s.log.Debug("reading published",
		zap.Float64("moisture", s.generator.Moisture()),
		zap.Bool("irrigating", irrigating),
		zap.Bool("faulty", faulty))
	return sr, nil
}

func (s *SensorSimulator) handleMessage(_ string, msg mqtt.Message) error {
	// QoS1 redeliveries carry the same payload
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}

	var cmd messages.SimulatorCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		return fmt.Errorf("invalid SimulatorCommand: %w", err)
	}
	if cmd.DeviceID != s.device.ID {
		return nil
	}
	return s.apply(cmd)
}

func (s *SensorSimulator) apply(cmd messages.SimulatorCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.now().UTC().Add(cmd.Duration())
	switch cmd.Action {
	case messages.ActionIrrigate:
		s.irrigateUntil = until
	case messages.ActionFault:
		s.faultUntil = until
	case messages.ActionReset:
		s.irrigateUntil = time.Time{}
		s.faultUntil = time.Time{}
	default:
		return fmt.Errorf("unknown simulator action %q", cmd.Action)
	}
	s.log.Info("command applied", zap.String("action", cmd.Action), zap.Duration("for", cmd.Duration()))
	return nil
}
