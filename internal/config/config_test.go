package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "rfid_db", cfg.Database.Database)
	assert.Equal(t, 5, cfg.Database.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Database.RetryInterval)
	assert.True(t, cfg.DBEnabled)

	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.BrokerURL())
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, DefaultTopics, cfg.Ingest.Topics)
	assert.Equal(t, int64(1), cfg.Ingest.DefaultTenantID)
	assert.Equal(t, 5*time.Second, cfg.Ingest.SinkTimeout)
	assert.Equal(t, "rfid:scan:stream", cfg.Ingest.ScanStream)

	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "rfid")
	t.Setenv("DB_NAME", "rfid_prod")
	t.Setenv("DB_MAX_RETRIES", "3")
	t.Setenv("DB_RETRY_INTERVAL", "2s")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_QOS", "0")
	t.Setenv("RFID_TOPICS", "rfid/scan, rfid/heartbeat ,")
	t.Setenv("DEFAULT_TENANT_ID", "7")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "rfid", cfg.Database.User)
	assert.Equal(t, "rfid_prod", cfg.Database.Database)
	assert.Equal(t, 3, cfg.Database.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Database.RetryInterval)
	assert.False(t, cfg.DBEnabled)

	assert.Equal(t, "tcp://broker.local:8883", cfg.MQTT.BrokerURL())
	assert.Equal(t, byte(0), cfg.MQTT.QoS)

	assert.Equal(t, []string{"rfid/scan", "rfid/heartbeat"}, cfg.Ingest.Topics)
	assert.Equal(t, int64(7), cfg.Ingest.DefaultTenantID)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BrokerWithScheme(t *testing.T) {
	os.Clearenv()
	t.Setenv("MQTT_BROKER", "ssl://broker.example.com:8883")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ssl://broker.example.com:8883", cfg.MQTT.BrokerURL())
}

func TestLoad_InvalidTenantFallsBack(t *testing.T) {
	os.Clearenv()
	t.Setenv("DEFAULT_TENANT_ID", "zero")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.Ingest.DefaultTenantID)
}
