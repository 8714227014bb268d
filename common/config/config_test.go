package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://broker:1883", (&MQTTConfig{Broker: "broker"}).BrokerURL())
	assert.Equal(t, "tcp://broker:8883", (&MQTTConfig{Broker: "broker", Port: 8883}).BrokerURL())
	assert.Equal(t, "ssl://broker:8883", (&MQTTConfig{Broker: "ssl://broker:8883", Port: 1}).BrokerURL())
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "rfid_db", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rfid_db sslmode=disable", c.GetDSN())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("X_HOST", "pg")
	t.Setenv("X_PORT", "6543")
	t.Setenv("X_NAME", "scans")
	t.Setenv("X_MAX_RETRIES", "0")
	t.Setenv("X_RETRY_INTERVAL", "250ms")
	db := DatabaseConfig{MaxRetries: 5}
	db.LoadFromEnv("X")
	assert.Equal(t, "pg", db.Host)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, "scans", db.Database)
	assert.Equal(t, 5, db.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, db.RetryInterval)

	t.Setenv("M_QOS", "3")
	t.Setenv("M_CLIENT_ID", "ingest-2")
	mq := MQTTConfig{QoS: 1}
	mq.LoadFromEnv("M")
	assert.Equal(t, byte(1), mq.QoS)
	assert.Equal(t, "ingest-2", mq.ClientID)

	t.Setenv("R_ADDR", "cache:6380")
	t.Setenv("R_DB", "2")
	var rc RedisConfig
	rc.LoadFromEnv("R")
	assert.Equal(t, "cache:6380", rc.Addr)
	assert.Equal(t, 2, rc.DB)
}
