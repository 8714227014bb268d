// Package heartbeat keeps reader liveness current and provisions readers
// that report in before anyone registered them.
package heartbeat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/metrics"
	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
	"github.com/anand0056/rfid-server-setup/internal/resolver"
)

// Result is what a heartbeat did to rfid_readers.
type Result string

const (
	Updated Result = "updated"
	Created Result = "created"
	Ignored Result = "ignored"
	Failed  Result = "failed"
)

type message struct {
	ReaderID any `json:"reader_id"`
}

// Handler 心跳处理器
// Failures are only logged; heartbeats never produce error_logs entries.
type Handler struct {
	readers  repository.ReadersRepository
	resolver *resolver.Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewHandler(readers repository.ReadersRepository, res *resolver.Resolver, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		readers:  readers,
		resolver: res,
		metrics:  m,
		logger:   logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while handling heartbeat", zap.Any("panic", r))
			result = Failed
		}
		h.metrics.Heartbeat(string(result))
	}()

	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Debug("Ignoring undecodable heartbeat", zap.ByteString("payload", payload), zap.Error(err))
		return Ignored
	}
	readerID := readerIDString(msg.ReaderID)
	if readerID == "" {
		h.logger.Debug("Ignoring heartbeat without reader_id", zap.ByteString("payload", payload))
		return Ignored
	}

	tenantID := h.resolver.TenantForReader(ctx, readerID)

	rows, err := h.readers.MarkHeartbeat(ctx, readerID)
	if err != nil {
		h.logger.Error("Failed to update reader heartbeat", zap.String("reader_id", readerID), zap.Error(err))
		return Failed
	}
	if rows > 0 {
		h.logger.Info("Updated heartbeat for reader",
			zap.String("reader_id", readerID),
			zap.Any("tenant_id", tenantID),
		)
		return Updated
	}

	reader := &models.Reader{
		ReaderID: readerID,
		TenantID: tenantID,
		Name:     "Auto-created " + readerID,
		Location: "Location for " + readerID,
		IsOnline: true,
	}
	if err := h.readers.CreateReader(ctx, reader, models.ReaderGroupDefault); err != nil {
		h.logger.Error("Could not auto-create reader from heartbeat", zap.String("reader_id", readerID), zap.Error(err))
		return Failed
	}

	h.logger.Info("Auto-created reader from heartbeat",
		zap.String("reader_id", readerID),
		zap.Any("tenant_id", tenantID),
	)
	return Created
}

// readerIDString accepts string and numeric ids; readers have been seen sending both.
func readerIDString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
