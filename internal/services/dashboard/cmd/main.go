package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/agrisense/internal/config"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/services/dashboard"
	"github.com/LeonardoBeccarini/agrisense/internal/sources"
	"github.com/LeonardoBeccarini/agrisense/internal/sources/mqttfeed"
	"github.com/LeonardoBeccarini/agrisense/internal/sources/openweather"
	"github.com/LeonardoBeccarini/agrisense/internal/sources/thingspeak"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/logger"
	"github.com/LeonardoBeccarini/agrisense/pkg/resilience"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.Log.Level, cfg.Log.Format, "dashboard")
	defer func() { _ = log.Sync() }()

	table, err := cfg.Thresholds()
	if err != nil {
		log.Fatal("threshold table", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === MQTT ===
	var client mqtt.Client
	var publisher broker.IPublisher
	if cfg.MQTT.Enabled {
		client, err = broker.Connect(ctx, broker.Config{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		}, log)
		if err != nil {
			log.Fatal("mqtt connection", zap.Error(err))
		}
		defer broker.Close(client, log)
		publisher = broker.NewPublisher(client, log)
	}

	// === Sources ===
	guard := func(name string) *resilience.Guard {
		return resilience.NewGuard(resilience.Settings{
			Name:        name,
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
			Retries:     cfg.Breaker.Retries,
			MaxElapsed:  cfg.FetchTimeout,
		})
	}
	var breakers []*resilience.Guard

	var readings sources.ReadingSource
	switch cfg.Sensor.Source {
	case config.SourceMQTT:
		feed := mqttfeed.New(mqttfeed.Config{
			Capacity: cfg.Sensor.FeedCapacity,
			DeviceID: cfg.Sensor.DeviceID,
		}, log)
		go feed.Consume(ctx, client)
		readings = feed
	default:
		g := guard("thingspeak")
		breakers = append(breakers, g)
		ts, err := thingspeak.NewClient(thingspeak.Config{
			BaseURL:    cfg.Sensor.BaseURL,
			ChannelID:  cfg.Sensor.ChannelID,
			ReadAPIKey: cfg.Sensor.ReadAPIKey,
			Timeout:    cfg.FetchTimeout,
			FieldMap:   cfg.Sensor.FieldMap,
			GPS:        &entities.GPS{Latitude: cfg.Sensor.Latitude, Longitude: cfg.Sensor.Longitude},
		}, g, log)
		if err != nil {
			log.Fatal("thingspeak client", zap.Error(err))
		}
		readings = ts
	}

	var weather sources.WeatherSource
	if cfg.Weather.APIKey != "" {
		g := guard("openweathermap")
		breakers = append(breakers, g)
		ow, err := openweather.NewClient(openweather.Config{
			BaseURL:      cfg.Weather.BaseURL,
			APIKey:       cfg.Weather.APIKey,
			Timeout:      cfg.FetchTimeout,
			ForecastDays: cfg.Weather.ForecastDays,
		}, g, log)
		if err != nil {
			log.Fatal("openweathermap client", zap.Error(err))
		}
		weather = ow
	} else {
		log.Warn("OPENWEATHERMAP_API_KEY not set, recommendations run without weather")
	}

	// === Refresher ===
	metrics := dashboard.NewMetrics()
	health := dashboard.NewHealth()
	refresher := dashboard.NewRefresher(dashboard.Config{
		Profile:         cfg.Evaluation.CropProfile,
		FallbackProfile: cfg.Evaluation.FallbackProfile,
		WindowSize:      cfg.Evaluation.WindowSize,
		AnomalyK:        cfg.Evaluation.AnomalyK,
		TrendEpsilon:    cfg.Evaluation.TrendEpsilon,
		AlertOnMissing:  cfg.Evaluation.AlertOnMissing,
		Latitude:        cfg.Sensor.Latitude,
		Longitude:       cfg.Sensor.Longitude,
		FetchTimeout:    cfg.FetchTimeout,
		Interval:        cfg.RefreshInterval,
	}, table, dashboard.Deps{
		Readings:  readings,
		Weather:   weather,
		Publisher: publisher,
		Metrics:   metrics,
		Health:    health,
		Breakers:  breakers,
		Logger:    log,
	})

	// === gRPC health ===
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("grpc listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	gs := grpc.NewServer()
	health.Register(gs)
	go func() {
		log.Info("gRPC health listening", zap.String("port", cfg.GRPCPort))
		if err := gs.Serve(lis); err != nil {
			log.Error("grpc server", zap.Error(err))
		}
	}()

	// === HTTP ===
	api := dashboard.NewAPI(refresher, metrics, client, log)
	hs := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP listening", zap.String("port", cfg.HTTPPort))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	log.Info("dashboard started",
		zap.String("profile", cfg.Evaluation.CropProfile),
		zap.String("source", cfg.Sensor.Source),
		zap.Duration("interval", cfg.RefreshInterval))

	refresher.Start(ctx)

	log.Info("shutting down")
	health.Shutdown()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
}
