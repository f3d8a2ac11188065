package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/sources/thingspeak"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "general", cfg.Evaluation.CropProfile)
	assert.Equal(t, 100, cfg.Evaluation.WindowSize)
	assert.Equal(t, 2.0, cfg.Evaluation.AnomalyK)
	assert.Equal(t, 0.01, cfg.Evaluation.TrendEpsilon)
	assert.False(t, cfg.Evaluation.AlertOnMissing)
	assert.Equal(t, SourceThingSpeak, cfg.Sensor.Source)
	assert.Equal(t, thingspeak.DefaultFieldMap(), cfg.Sensor.FieldMap)
	assert.Equal(t, 6.6018, cfg.Sensor.Latitude)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	table, err := cfg.Thresholds()
	require.NoError(t, err)
	assert.Contains(t, table.IDs(), "maize")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CROP_PROFILE", "Maize")
	t.Setenv("WINDOW_SIZE", "48")
	t.Setenv("ANOMALY_K", "3.5")
	t.Setenv("TREND_EPSILON", "0.05")
	t.Setenv("ALERT_ON_MISSING", "true")
	t.Setenv("SENSOR_SOURCE", "MQTT")
	t.Setenv("FIELD_MAP", "temperature=field2,humidity=field1")
	t.Setenv("REFRESH_INTERVAL_SEC", "60")
	t.Setenv("THINGSPEAK_READ_API_KEY", "abc")
	t.Setenv("OPENWEATHERMAP_API_KEY", "owm")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "maize", cfg.Evaluation.CropProfile)
	assert.Equal(t, 48, cfg.Evaluation.WindowSize)
	assert.Equal(t, 3.5, cfg.Evaluation.AnomalyK)
	assert.Equal(t, 0.05, cfg.Evaluation.TrendEpsilon)
	assert.True(t, cfg.Evaluation.AlertOnMissing)
	assert.Equal(t, SourceMQTT, cfg.Sensor.Source)
	assert.Equal(t, "field2", cfg.Sensor.FieldMap[entities.FieldTemperature])
	assert.Len(t, cfg.Sensor.FieldMap, 2)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "abc", cfg.Sensor.ReadAPIKey)
	assert.Equal(t, "owm", cfg.Weather.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MalformedValuesAreRejected(t *testing.T) {
	t.Setenv("WINDOW_SIZE", "many")
	t.Setenv("ANOMALY_K", "two")
	t.Setenv("ALERT_ON_MISSING", "maybe")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, `WINDOW_SIZE: "many" is not an integer`)
	assert.ErrorContains(t, err, `ANOMALY_K: "two" is not a number`)
	assert.ErrorContains(t, err, `ALERT_ON_MISSING: "maybe" is not a boolean`)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad field map":  {"FIELD_MAP", "temperature=field1,ph=field1"},
		"zero window":    {"WINDOW_SIZE", "0"},
		"negative k":     {"ANOMALY_K", "-1"},
		"negative eps":   {"TREND_EPSILON", "-0.1"},
		"zero eps":       {"TREND_EPSILON", "0"},
		"bad port":       {"MQTT_PORT", "1883/tcp"},
		"unknown source": {"SENSOR_SOURCE", "csv"},
		"zero refresh":   {"REFRESH_INTERVAL_SEC", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_ThingSpeakNeedsChannel(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Sensor.ChannelID = ""
	assert.ErrorContains(t, cfg.Validate(), "THINGSPEAK_CHANNEL_ID")
}

func TestLoad_MQTTSourceNeedsBroker(t *testing.T) {
	t.Setenv("SENSOR_SOURCE", "mqtt")
	t.Setenv("MQTT_ENABLED", "false")
	_, err := Load()
	assert.ErrorContains(t, err, "MQTT_ENABLED")
}

func TestThresholds_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"x": {}}`), 0o600))
	t.Setenv("THRESHOLDS_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.Thresholds()
	assert.Error(t, err, "a profile without bands is rejected")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGRISENSE_TEST_DOTENV=from-file\nCROP_PROFILE=rice\n"), 0o600))
	t.Setenv("CROP_PROFILE", "tomato")
	t.Cleanup(func() { os.Unsetenv("AGRISENSE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("AGRISENSE_TEST_DOTENV"))
	assert.Equal(t, "tomato", os.Getenv("CROP_PROFILE"), "existing variables win")
}
