package repository

import (
	"context"
	"time"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// ErrorLogsRepository error_logs 访问接口
// The pipeline only appends; the resolution columns are the operator's.
type ErrorLogsRepository interface {
	// InsertErrorLog appends an entry and returns its id.
	InsertErrorLog(ctx context.Context, entry *models.ErrorLogEntry) (int64, error)

	GetErrorLog(ctx context.Context, id int64) (*models.ErrorLogEntry, error)

	// ListErrorLogs returns one page, newest first. The filter must be normalized.
	ListErrorLogs(ctx context.Context, filter models.ErrorLogFilter) (*models.ErrorLogPage, error)

	// GetErrorLogStats counts a tenant's entries; RecentCount covers entries created at or after since.
	GetErrorLogStats(ctx context.Context, tenantID int64, since time.Time) (*models.ErrorLogStats, error)

	// SetErrorLogResolved flips the resolution state. ErrNotFound for an unknown id.
	SetErrorLogResolved(ctx context.Context, id int64, resolved bool, resolvedBy, notes *string) error
}
