package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// PostgresCardsRepository CardsRepository 的 PostgreSQL 实现
type PostgresCardsRepository struct {
	conn Connector
}

// NewPostgresCardsRepository 创建卡 Repository
func NewPostgresCardsRepository(conn Connector) *PostgresCardsRepository {
	return &PostgresCardsRepository{conn: conn}
}

var _ CardsRepository = (*PostgresCardsRepository)(nil)

// GetCard 获取卡信息
// staff wins over vehicle when a card is bound to both; with neither the
// card's own card_type is kept.
func (r *PostgresCardsRepository) GetCard(ctx context.Context, cardUID string) (*models.Card, error) {
	query := `
		SELECT
			c.card_uid,
			c.tenant_id,
			COALESCE(c.is_active, FALSE) AS is_active,
			COALESCE(s.first_name, v.owner_name) AS owner_name,
			CASE
				WHEN s.id IS NOT NULL THEN 'staff'
				WHEN v.id IS NOT NULL THEN 'vehicle'
				ELSE COALESCE(c.card_type, 'unknown')
			END AS card_type
		FROM rfid_cards c
		LEFT JOIN staff s ON c.staff_id = s.id
		LEFT JOIN vehicles v ON c.vehicle_id = v.id
		WHERE c.card_uid = $1
		LIMIT 1
	`

	var (
		card     models.Card
		tenantID sql.NullInt64
		owner    sql.NullString
	)
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		return db.QueryRowContext(ctx, query, cardUID).Scan(
			&card.CardUID,
			&tenantID,
			&card.IsActive,
			&owner,
			&card.CardType,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %s: %w", cardUID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query card: %w", err)
	}

	if tenantID.Valid {
		v := tenantID.Int64
		card.TenantID = &v
	}
	if owner.Valid {
		s := owner.String
		card.OwnerName = &s
	}
	return &card, nil
}

// GetTenantForCard 获取卡所属租户
func (r *PostgresCardsRepository) GetTenantForCard(ctx context.Context, cardUID string) (*int64, error) {
	var tenantID sql.NullInt64
	err := r.conn.WithConnection(ctx, func(db DBTX) error {
		return db.QueryRowContext(ctx,
			`SELECT tenant_id FROM rfid_cards WHERE card_uid = $1`, cardUID,
		).Scan(&tenantID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tenant for card %s: %w", cardUID, err)
	}
	if !tenantID.Valid {
		return nil, nil
	}
	v := tenantID.Int64
	return &v, nil
}
