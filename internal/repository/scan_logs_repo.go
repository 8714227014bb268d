package repository

import (
	"context"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// ScanLogsRepository rfid_logs 写入接口（只追加）
type ScanLogsRepository interface {
	InsertScanLog(ctx context.Context, entry *models.ScanLogEntry) error
}
