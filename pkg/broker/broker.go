// Package broker holds the MQTT plumbing shared by the dashboard service and
// the sensor simulator.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	// ConnectRetries is the number of attempts before giving up.
	ConnectRetries int
	MaxElapsed     time.Duration
}

func (c Config) URL() string { return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port) }

// Connect dials the broker with exponential backoff. The connection is
// closed when ctx is done.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}
	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn("mqtt connect failed", zap.String("broker", cfg.URL()), zap.Error(token.Error()))
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.URL(), err)
	}
	log.Info("connected to mqtt broker", zap.String("broker", cfg.URL()), zap.String("client_id", cfg.ClientID))

	go func() {
		<-ctx.Done()
		Close(client, log)
	}()
	return client, nil
}

func Close(client mqtt.Client, log *zap.Logger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Info("mqtt connection closed")
	}
}
