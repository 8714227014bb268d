package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Connection states reported by /health.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ConnectionStatus reports whether a long-lived client is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

type memoryStats struct {
	Alloc string `json:"alloc"`
	Sys   string `json:"sys"`
}

type connections struct {
	Database string `json:"database"`
	MQTT     string `json:"mqtt"`
	Redis    string `json:"redis"`
}

// HealthReport is the /health body.
type HealthReport struct {
	Status        string      `json:"status"`
	Timestamp     string      `json:"timestamp"`
	Memory        memoryStats `json:"memory"`
	Goroutines    int         `json:"goroutines"`
	Connections   connections `json:"connections"`
	UptimeSeconds float64     `json:"uptime_seconds"`
}

type healthFailure struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// HealthHandler 健康检查
// A nil database or redis checker means that backend is disabled.
type HealthHandler struct {
	database Pinger
	mqtt     ConnectionStatus
	redis    Pinger
	started  time.Time
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthHandler(database Pinger, mqtt ConnectionStatus, redis Pinger, started time.Time, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		database: database,
		mqtt:     mqtt,
		redis:    redis,
		started:  started,
		timeout:  3 * time.Second,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Health check failed", zap.Any("panic", rec))
			writeJSON(w, http.StatusInternalServerError, healthFailure{
				Status:    StatusError,
				Timestamp: now.Format(time.RFC3339),
				Error:     fmt.Sprint(rec),
			})
		}
	}()

	report := h.Check(r.Context(), now)
	status := http.StatusOK
	if report.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Check probes every dependency. The service is ok when the database
// (unless disabled) and the broker are reachable; redis only informs.
func (h *HealthHandler) Check(ctx context.Context, now time.Time) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	report := HealthReport{
		Timestamp: now.Format(time.RFC3339),
		Memory: memoryStats{
			Alloc: megabytes(mem.Alloc),
			Sys:   megabytes(mem.Sys),
		},
		Goroutines: runtime.NumGoroutine(),
		Connections: connections{
			Database: h.ping(ctx, h.database, "database"),
			MQTT:     StatusError,
			Redis:    h.ping(ctx, h.redis, "redis"),
		},
		UptimeSeconds: now.Sub(h.started).Seconds(),
	}
	if h.mqtt != nil && h.mqtt.IsConnected() {
		report.Connections.MQTT = StatusOK
	}

	report.Status = StatusOK
	if report.Connections.Database == StatusError || report.Connections.MQTT != StatusOK {
		report.Status = StatusError
	}
	return report
}

func (h *HealthHandler) ping(ctx context.Context, p Pinger, name string) string {
	if p == nil {
		return StatusDisabled
	}
	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("Health probe failed", zap.String("dependency", name), zap.Error(err))
		return StatusError
	}
	return StatusOK
}

func megabytes(b uint64) string {
	return fmt.Sprintf("%.2fMB", float64(b)/1024/1024)
}
