package repository

import (
	"context"
	"fmt"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// PostgresScanLogsRepository ScanLogsRepository 的 PostgreSQL 实现
type PostgresScanLogsRepository struct {
	conn Connector
}

func NewPostgresScanLogsRepository(conn Connector) *PostgresScanLogsRepository {
	return &PostgresScanLogsRepository{conn: conn}
}

var _ ScanLogsRepository = (*PostgresScanLogsRepository)(nil)

// InsertScanLog 写入扫描记录
func (r *PostgresScanLogsRepository) InsertScanLog(ctx context.Context, entry *models.ScanLogEntry) error {
	eventType := entry.EventType
	if eventType == "" {
		eventType = models.EventTypeScan
	}
	return r.conn.WithConnection(ctx, func(db DBTX) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO rfid_logs (
				card_uid, reader_id, is_authorized, timestamp, tenant_id,
				event_type, raw_data, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			entry.CardUID,
			entry.ReaderID,
			entry.IsAuthorized,
			entry.Timestamp,
			entry.TenantID,
			eventType,
			entry.RawData,
			entry.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scan log: %w", err)
		}
		return nil
	})
}
