package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// PostgresReadersRepository ReadersRepository 的 PostgreSQL 实现
type PostgresReadersRepository struct {
	conn Connector
}

// NewPostgresReadersRepository 创建读卡器 Repository
func NewPostgresReadersRepository(conn Connector) *PostgresReadersRepository {
	return &PostgresReadersRepository{conn: conn}
}

var _ ReadersRepository = (*PostgresReadersRepository)(nil)

// GetReader 根据 reader_id 获取读卡器
func (r *PostgresReadersRepository) GetReader(ctx context.Context, readerID string) (*models.Reader, error) {
	query := `
		SELECT
			r.reader_id,
			r.tenant_id,
			COALESCE(r.name, '') AS name,
			COALESCE(r.location, '') AS location,
			COALESCE(r.is_online, FALSE) AS is_online,
			r.last_heartbeat
		FROM rfid_readers r
		WHERE r.reader_id = $1
		LIMIT 1
	`

	var (
		reader    models.Reader
		tenantID  sql.NullInt64
		heartbeat sql.NullTime
	)
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		return db.QueryRowContext(ctx, query, readerID).Scan(
			&reader.ReaderID,
			&tenantID,
			&reader.Name,
			&reader.Location,
			&reader.IsOnline,
			&heartbeat,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reader %s: %w", readerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query reader: %w", err)
	}

	if tenantID.Valid {
		v := tenantID.Int64
		reader.TenantID = &v
	}
	if heartbeat.Valid {
		t := heartbeat.Time
		reader.LastHeartbeat = &t
	}
	return &reader, nil
}

// GetTenantForReader 根据 id 获取读卡器所属租户
func (r *PostgresReadersRepository) GetTenantForReader(ctx context.Context, id string) (*int64, error) {
	var tenantID sql.NullInt64
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		return db.QueryRowContext(ctx,
			`SELECT tenant_id FROM rfid_readers WHERE id = $1`, id,
		).Scan(&tenantID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tenant for reader %s: %w", id, err)
	}
	if !tenantID.Valid {
		return nil, nil
	}
	v := tenantID.Int64
	return &v, nil
}

// TouchReader 扫描成功后刷新读卡器心跳
func (r *PostgresReadersRepository) TouchReader(ctx context.Context, readerID string, at time.Time) error {
	return r.conn.WithConnection(ctx, func(db DBTX) error {
		_, err := db.ExecContext(ctx, `
			UPDATE rfid_readers
			SET last_heartbeat = $1, is_online = TRUE
			WHERE reader_id = $2
		`, at, readerID)
		if err != nil {
			return fmt.Errorf("failed to update reader heartbeat: %w", err)
		}
		return nil
	})
}

// MarkHeartbeat 处理心跳：更新 last_heartbeat 并置为 online
func (r *PostgresReadersRepository) MarkHeartbeat(ctx context.Context, id string) (int64, error) {
	var affected int64
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		res, err := db.ExecContext(ctx, `
			UPDATE rfid_readers
			SET last_heartbeat = NOW(), status = 'online', is_online = TRUE
			WHERE id = $1
		`, id)
		if err != nil {
			return fmt.Errorf("failed to update heartbeat: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// CreateReader 自动创建读卡器
func (r *PostgresReadersRepository) CreateReader(ctx context.Context, reader *models.Reader, readerGroupID int) error {
	var tenantID sql.NullInt64
	if reader.TenantID != nil {
		tenantID = sql.NullInt64{Int64: *reader.TenantID, Valid: true}
	}
	return r.conn.WithConnection(ctx, func(db DBTX) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO rfid_readers
				(id, reader_id, name, location, status, is_online, last_heartbeat, tenant_id, reader_group_id)
			VALUES ($1, $1, $2, $3, 'online', TRUE, NOW(), $4, $5)
		`, reader.ReaderID, reader.Name, reader.Location, tenantID, readerGroupID)
		if err != nil {
			return fmt.Errorf("failed to create reader: %w", err)
		}
		return nil
	})
}
