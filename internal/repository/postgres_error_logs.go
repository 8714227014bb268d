package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// PostgresErrorLogsRepository ErrorLogsRepository 的 PostgreSQL 实现
type PostgresErrorLogsRepository struct {
	conn Connector
}

func NewPostgresErrorLogsRepository(conn Connector) *PostgresErrorLogsRepository {
	return &PostgresErrorLogsRepository{conn: conn}
}

var _ ErrorLogsRepository = (*PostgresErrorLogsRepository)(nil)

const errorLogColumns = `
	id, tenant_id, error_type, error_message, raw_data, source_topic, stack_trace,
	created_at, COALESCE(resolved, FALSE), resolved_by, resolved_at, resolution_notes
`

// InsertErrorLog 写入错误日志
func (r *PostgresErrorLogsRepository) InsertErrorLog(ctx context.Context, entry *models.ErrorLogEntry) (int64, error) {
	var rawData sql.NullString
	if len(entry.RawData) > 0 {
		rawData = sql.NullString{String: string(entry.RawData), Valid: true}
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		return db.QueryRowContext(ctx, `
			INSERT INTO error_logs
				(tenant_id, error_type, error_message, raw_data, source_topic, stack_trace, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
			entry.TenantID,
			string(entry.ErrorType),
			entry.ErrorMessage,
			rawData,
			nullString(entry.SourceTopic),
			nullString(entry.StackTrace),
			createdAt,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", err)
	}
	return id, nil
}

// GetErrorLog 根据 id 获取错误日志
func (r *PostgresErrorLogsRepository) GetErrorLog(ctx context.Context, id int64) (*models.ErrorLogEntry, error) {
	var entry *models.ErrorLogEntry
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		row := db.QueryRowContext(ctx, `SELECT `+errorLogColumns+` FROM error_logs WHERE id = $1`, id)
		var err error
		entry, err = scanErrorLog(row)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("error log %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get error log: %w", err)
	}
	return entry, nil
}

// ListErrorLogs 分页查询错误日志
func (r *PostgresErrorLogsRepository) ListErrorLogs(ctx context.Context, filter models.ErrorLogFilter) (*models.ErrorLogPage, error) {
	var (
		where []string
		args  []any
	)
	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.ErrorType != "" {
		args = append(args, string(filter.ErrorType))
		where = append(where, fmt.Sprintf("error_type = $%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		where = append(where, fmt.Sprintf("COALESCE(resolved, FALSE) = $%d", len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	page := &models.ErrorLogPage{Page: filter.Page, Data: []models.ErrorLogEntry{}}
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_logs`+whereClause, args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("failed to count error logs: %w", err)
		}

		listArgs := append(append([]any(nil), args...), filter.Limit, filter.Offset())
		query := fmt.Sprintf(`SELECT %s FROM error_logs%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			errorLogColumns, whereClause, len(listArgs)-1, len(listArgs))
		rows, err := db.QueryContext(ctx, query, listArgs...)
		if err != nil {
			return fmt.Errorf("failed to list error logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			entry, err := scanErrorLog(rows)
			if err != nil {
				return fmt.Errorf("failed to scan error log: %w", err)
			}
			page.Data = append(page.Data, *entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if filter.Limit > 0 {
		page.TotalPages = (page.Total + filter.Limit - 1) / filter.Limit
	}
	return page, nil
}

// GetErrorLogStats 错误日志统计
func (r *PostgresErrorLogsRepository) GetErrorLogStats(ctx context.Context, tenantID int64, since time.Time) (*models.ErrorLogStats, error) {
	stats := &models.ErrorLogStats{ByType: make(map[models.ErrorType]int)}
	for _, t := range models.ErrorTypes {
		stats.ByType[t] = 0
	}

	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		err := db.QueryRowContext(ctx, `
			SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE COALESCE(resolved, FALSE)),
				COUNT(*) FILTER (WHERE created_at >= $2)
			FROM error_logs
			WHERE tenant_id = $1
		`, tenantID, since).Scan(&stats.Total, &stats.Resolved, &stats.RecentCount)
		if err != nil {
			return fmt.Errorf("failed to count error logs: %w", err)
		}

		rows, err := db.QueryContext(ctx, `
			SELECT error_type, COUNT(*)
			FROM error_logs
			WHERE tenant_id = $1
			GROUP BY error_type
		`, tenantID)
		if err != nil {
			return fmt.Errorf("failed to group error logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				errorType string
				count     int
			)
			if err := rows.Scan(&errorType, &count); err != nil {
				return fmt.Errorf("failed to scan error log stats: %w", err)
			}
			stats.ByType[models.ErrorType(errorType)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	stats.Unresolved = stats.Total - stats.Resolved
	return stats, nil
}

// SetErrorLogResolved 标记错误日志已处理/未处理
func (r *PostgresErrorLogsRepository) SetErrorLogResolved(ctx context.Context, id int64, resolved bool, resolvedBy, notes *string) error {
	return r.conn.WithConnection(ctx, func(db DBTX) error {
		var (
			res sql.Result
			err error
		)
		if resolved {
			res, err = db.ExecContext(ctx, `
				UPDATE error_logs
				SET resolved = TRUE, resolved_by = $2, resolved_at = NOW(), resolution_notes = $3
				WHERE id = $1
			`, id, nullString(resolvedBy), nullString(notes))
		} else {
			res, err = db.ExecContext(ctx, `
				UPDATE error_logs
				SET resolved = FALSE, resolved_by = NULL, resolved_at = NULL, resolution_notes = NULL
				WHERE id = $1
			`, id)
		}
		if err != nil {
			return fmt.Errorf("failed to update error log: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update error log: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("error log %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanErrorLog(row rowScanner) (*models.ErrorLogEntry, error) {
	var (
		entry      models.ErrorLogEntry
		errorType  string
		rawData    sql.NullString
		topic      sql.NullString
		stack      sql.NullString
		resolvedBy sql.NullString
		resolvedAt sql.NullTime
		notes      sql.NullString
	)
	if err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&errorType,
		&entry.ErrorMessage,
		&rawData,
		&topic,
		&stack,
		&entry.CreatedAt,
		&entry.Resolved,
		&resolvedBy,
		&resolvedAt,
		&notes,
	); err != nil {
		return nil, err
	}

	entry.ErrorType = models.ErrorType(errorType)
	if rawData.Valid && rawData.String != "" {
		entry.RawData = json.RawMessage(rawData.String)
	}
	entry.SourceTopic = stringPtr(topic)
	entry.StackTrace = stringPtr(stack)
	entry.ResolvedBy = stringPtr(resolvedBy)
	entry.ResolutionNotes = stringPtr(notes)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		entry.ResolvedAt = &t
	}
	return &entry, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
