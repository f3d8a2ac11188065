package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	sensorSimulator "github.com/LeonardoBeccarini/agrisense/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/logger"
)

func main() {
	deviceID := flag.String("device-id", "probe-1", "unique probe identifier")
	clientID := flag.String("client-id", "sensorPublisher1", "MQTT client ID")
	host := flag.String("mqtt-host", "localhost", "MQTT broker host")
	port := flag.Int("mqtt-port", 1883, "MQTT broker port")
	user := flag.String("mqtt-user", "guest", "MQTT user")
	password := flag.String("mqtt-password", "guest", "MQTT password")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	lat := flag.Float64("lat", 6.6018, "latitude")
	lon := flag.Float64("lon", 3.3515, "longitude")
	halfLife := flag.Duration("dry-half-life", 2*time.Hour, "time for moisture to lose half of its value without irrigation")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	soilGrids := flag.Bool("soilgrids", true, "seed moisture from SoilGrids at startup")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.Must(*logLevel, "json", "sensor-simulator")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := broker.Connect(ctx, broker.Config{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		ClientID: *clientID,
	}, log)
	if err != nil {
		log.Fatal("mqtt connection", zap.Error(err))
	}
	defer broker.Close(client, log)

	// linear approximation of the half-life around the default 30% seed
	decay := 15.0 / halfLife.Minutes()
	generator := sensorSimulator.NewDataGenerator(sensorSimulator.GeneratorConfig{DecayPerMin: decay, Seed: *seed})
	if *soilGrids {
		m, err := generator.SeedFromSoilGrids(ctx, *lat, *lon)
		if err != nil {
			log.Warn("soilgrids unavailable, default moisture", zap.Float64("moisture", m), zap.Error(err))
		} else {
			log.Info("moisture seeded from soilgrids", zap.Float64("moisture", m))
		}
	}

	device := sensorSimulator.Device{ID: *deviceID, Latitude: *lat, Longitude: *lon}
	publisher := broker.NewPublisher(client, log)
	consumer := broker.NewConsumer(client, []string{sensorSimulator.ControlTopic(device.ID)}, nil, log)
	sim := sensorSimulator.NewSensorSimulator(consumer, publisher, generator, device, log)

	log.Info("simulator started", zap.String("topic", sensorSimulator.ReadingTopic(device.ID)), zap.Duration("interval", *interval))
	sim.Start(ctx, *interval)
}
