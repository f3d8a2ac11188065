package sensor_simulator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker/brokertest"
)

func newSim(t *testing.T) (*SensorSimulator, *brokertest.Client, *time.Time) {
	t.Helper()
	client := brokertest.NewClient()
	gen := NewDataGenerator(GeneratorConfig{DecayPerMin: 0.1, Seed: 1})
	gen.Seed(40)
	dev := Device{ID: "probe-1", Latitude: 44.5, Longitude: 11.3}
	consumer := broker.NewConsumer(client, []string{ControlTopic(dev.ID)}, nil, zap.NewNop())
	sim := NewSensorSimulator(consumer, broker.NewPublisher(client, zap.NewNop()), gen, dev, zap.NewNop())
	now := t0
	sim.now = func() time.Time { return now }
	return sim, client, &now
}

func command(t *testing.T, cmd messages.SimulatorCommand) *brokertest.Message {
	t.Helper()
	b, err := json.Marshal(cmd)
	require.NoError(t, err)
	return &brokertest.Message{TopicName: ControlTopic(cmd.DeviceID), Body: b, QoS: 1}
}

func TestPublishOnce(t *testing.T) {
	sim, client, _ := newSim(t)

	sr, err := sim.PublishOnce()
	require.NoError(t, err)

	pubs := client.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "sensor/readings/probe-1", pubs[0].Topic)
	assert.Equal(t, byte(1), pubs[0].QoS)

	var got messages.SensorReading
	require.NoError(t, json.Unmarshal(pubs[0].Payload, &got))
	assert.Equal(t, "probe-1", got.DeviceID)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, 44.5, *got.Latitude)
	assert.True(t, got.Timestamp.Equal(t0))
	assert.Equal(t, *sr.Values[entities.FieldPH], *got.Values[entities.FieldPH])

	r := got.ToReading()
	assert.Equal(t, len(entities.AllFields), r.PresentCount())
	assert.Equal(t, 40.0, r.Values[entities.FieldHumidity])
}

func TestCommands(t *testing.T) {
	sim, client, now := newSim(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sim.consumer.SetHandler(sim.handleMessage)
	go sim.consumer.ConsumeMessage(ctx)
	require.Eventually(t, func() bool { return client.Subscribed("sensor/control/probe-1") }, time.Second, 5*time.Millisecond)

	_, err := sim.PublishOnce()
	require.NoError(t, err)

	irrigate := command(t, messages.SimulatorCommand{DeviceID: "probe-1", Action: messages.ActionIrrigate, DurationSec: 1800})
	assert.Equal(t, 1, client.Deliver(irrigate))
	client.Deliver(irrigate) // redelivery is ignored

	*now = t0.Add(10 * time.Minute)
	sr, err := sim.PublishOnce()
	require.NoError(t, err)
	assert.InDelta(t, 46.0, *sr.Values[entities.FieldHumidity], 1e-9)

	// irrigation window over
	*now = t0.Add(40 * time.Minute)
	sr, err = sim.PublishOnce()
	require.NoError(t, err)
	assert.InDelta(t, 46.0-0.1*30, *sr.Values[entities.FieldHumidity], 1e-9)

	// commands for another probe are ignored
	client.Deliver(command(t, messages.SimulatorCommand{DeviceID: "probe-2", Action: messages.ActionFault, DurationSec: 600}))
	sim.mu.Lock()
	assert.True(t, sim.faultUntil.IsZero())
	sim.mu.Unlock()
}

func TestApply(t *testing.T) {
	sim, _, _ := newSim(t)

	require.NoError(t, sim.apply(messages.SimulatorCommand{Action: messages.ActionFault, DurationSec: 60}))
	assert.Equal(t, t0.Add(time.Minute), sim.faultUntil)

	require.NoError(t, sim.apply(messages.SimulatorCommand{Action: messages.ActionReset}))
	assert.True(t, sim.faultUntil.IsZero())
	assert.True(t, sim.irrigateUntil.IsZero())

	assert.Error(t, sim.apply(messages.SimulatorCommand{Action: "flood"}))
	assert.Error(t, sim.handleMessage("sensor/control/probe-1", &brokertest.Message{Body: []byte("{")}))
}
