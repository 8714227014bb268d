package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anand0056/rfid-server-setup/common/config"

	"github.com/joho/godotenv"
)

// Config RFID 采集服务配置
type Config struct {
	Database  config.DatabaseConfig
	DBEnabled bool

	Redis        config.RedisConfig
	RedisEnabled bool

	MQTT config.MQTTConfig

	Ingest struct {
		// Topics subscribed on the broker; wildcards allowed.
		Topics []string
		// Tenant used for diagnostics until a reader has been resolved.
		DefaultTenantID int64
		// Upper bound for a single error_logs write.
		SinkTimeout time.Duration
		// Redis stream receiving persisted scans.
		ScanStream string
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// DefaultTopics are the scan and heartbeat topics the readers publish on.
var DefaultTopics = []string{"binimise/rfid", "rfid/scan", "rfid/+/scan", "rfid/heartbeat"}

// Load 加载配置
// A .env file in the working directory is read first when present; real
// environment variables always win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "rfid_db"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 4
	cfg.Database.MaxIdle = 2
	cfg.Database.MaxRetries = 5
	cfg.Database.RetryInterval = 5 * time.Second
	cfg.Database.LoadFromEnv("DB")
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"

	cfg.MQTT.Broker = "localhost"
	cfg.MQTT.Port = 1883
	cfg.MQTT.ClientID = "rfid-ingest"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MaxRetries = 5
	cfg.MQTT.RetryInterval = 5 * time.Second
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Ingest.Topics = splitList(getEnv("RFID_TOPICS", ""))
	if len(cfg.Ingest.Topics) == 0 {
		cfg.Ingest.Topics = append([]string(nil), DefaultTopics...)
	}
	cfg.Ingest.DefaultTenantID = 1
	if v, err := strconv.ParseInt(getEnv("DEFAULT_TENANT_ID", "1"), 10, 64); err == nil && v > 0 {
		cfg.Ingest.DefaultTenantID = v
	}
	cfg.Ingest.SinkTimeout = 5 * time.Second
	if d, err := time.ParseDuration(getEnv("SINK_TIMEOUT", "5s")); err == nil && d > 0 {
		cfg.Ingest.SinkTimeout = d
	}
	cfg.Ingest.ScanStream = getEnv("SCAN_STREAM", "rfid:scan:stream")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8081")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
