// Package stream fans persisted scans out to a Redis stream.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscommon "github.com/anand0056/rfid-server-setup/common/redis"
	"github.com/anand0056/rfid-server-setup/internal/models"
)

// ScanPublisher is what the scan processor calls after a scan is stored.
type ScanPublisher interface {
	PublishScan(ctx context.Context, topic string, entry *models.ScanLogEntry) error
}

// RedisScanPublisher 扫描事件发布到 Redis Streams
type RedisScanPublisher struct {
	client rediscommon.StreamAdder
	stream string
	logger *zap.Logger
}

func NewRedisScanPublisher(client rediscommon.StreamAdder, stream string, logger *zap.Logger) *RedisScanPublisher {
	return &RedisScanPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

var _ ScanPublisher = (*RedisScanPublisher)(nil)

// ScanMessage is the document written to the stream's data field.
type ScanMessage struct {
	MessageID    string `json:"message_id"`
	TenantID     int64  `json:"tenant_id"`
	ReaderID     string `json:"reader_id"`
	CardUID      string `json:"card_uid"`
	IsAuthorized bool   `json:"is_authorized"`
	EventType    string `json:"event_type"`
	Notes        string `json:"notes"`
	Topic        string `json:"topic"`
	ScannedAt    int64  `json:"scanned_at"`
}

func (p *RedisScanPublisher) PublishScan(ctx context.Context, topic string, entry *models.ScanLogEntry) error {
	msg := ScanMessage{
		MessageID:    uuid.New().String(),
		TenantID:     entry.TenantID,
		ReaderID:     entry.ReaderID,
		CardUID:      entry.CardUID,
		IsAuthorized: entry.IsAuthorized,
		EventType:    entry.EventType,
		Notes:        entry.Notes,
		Topic:        topic,
		ScannedAt:    entry.Timestamp.Unix(),
	}
	if msg.EventType == "" {
		msg.EventType = models.EventTypeScan
	}
	if entry.Timestamp.IsZero() {
		msg.ScannedAt = time.Now().Unix()
	}

	streamID, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Published scan to Redis Streams",
		zap.String("stream", p.stream),
		zap.String("stream_id", streamID),
		zap.String("message_id", msg.MessageID),
		zap.String("reader_id", msg.ReaderID),
	)
	return nil
}
