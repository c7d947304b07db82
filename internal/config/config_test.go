package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/order-alert/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.HTTP.APIKeys)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders-stream", cfg.Kafka.Topic)
	assert.Equal(t, "order-alert", cfg.Kafka.GroupID)
	assert.Equal(t, 8, cfg.Worker.WorkerCount)
	assert.Equal(t, 300*time.Millisecond, cfg.Worker.BatchWait)
	assert.Equal(t, "https://api.twilio.com", cfg.Twilio.BaseURL)
	assert.Equal(t, 10000, cfg.Twilio.TimeoutMs)
	assert.Equal(t, 100.0, cfg.Alert.Threshold)
	assert.Equal(t, "£", cfg.Alert.Currency)
	assert.Empty(t, cfg.MySQL.DSN)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
log:
  level: debug
kafka:
  topic: orders-eu
alert:
  threshold: 250
  currency: "€"
http:
  api_keys: ["k1", "k2"]
`)
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "orders-eu", cfg.Kafka.Topic)
	assert.Equal(t, 250.0, cfg.Alert.Threshold)
	assert.Equal(t, "€", cfg.Alert.Currency)
	assert.Equal(t, []string{"k1", "k2"}, cfg.HTTP.APIKeys)
	// untouched keys keep their defaults
	assert.Equal(t, "order-alert", cfg.Kafka.GroupID)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "orders-stream", cfg.Kafka.Topic)
}

func TestLoad_InvalidFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644))

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORDERALERT_LOG_LEVEL", "error")
	t.Setenv("ORDERALERT_KAFKA_GROUP_ID", "alerts-prod")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "alerts-prod", cfg.Kafka.GroupID)
}

func TestLoad_EventHubConnectionString(t *testing.T) {
	const cs = "Endpoint=sb://shop.servicebus.windows.net/;SharedAccessKeyName=listen;SharedAccessKey=abc=;EntityPath=orders-stream"
	t.Setenv("EventHubConnectionString", cs)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, cs, cfg.Kafka.ConnectionString)
}
