package repository

import (
	"context"
	"time"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// ReadersRepository rfid_readers 访问接口
//
// Scans address a reader by its device-facing reader_id; heartbeats address
// it by the row id. Auto-provisioned readers get the same value in both.
type ReadersRepository interface {
	// GetReader looks a reader up by reader_id. ErrNotFound when absent.
	GetReader(ctx context.Context, readerID string) (*models.Reader, error)

	// GetTenantForReader returns the tenant of the reader with row id id.
	// A nil tenant with a nil error means the reader exists without a tenant
	// or does not exist at all.
	GetTenantForReader(ctx context.Context, id string) (*int64, error)

	// TouchReader marks the reader online after a successful scan.
	TouchReader(ctx context.Context, readerID string, at time.Time) error

	// MarkHeartbeat sets last_heartbeat/status for row id id and reports how
	// many rows matched.
	MarkHeartbeat(ctx context.Context, id string) (int64, error)

	// CreateReader inserts an auto-provisioned reader.
	CreateReader(ctx context.Context, reader *models.Reader, readerGroupID int) error
}
