package repository

import (
	"context"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// CardsRepository rfid_cards 访问接口
type CardsRepository interface {
	// GetCard returns the card with owner and type resolved through the staff
	// and vehicles tables. ErrNotFound when the uid has no row.
	GetCard(ctx context.Context, cardUID string) (*models.Card, error)

	// GetTenantForCard returns the card's tenant, nil when unknown.
	GetTenantForCard(ctx context.Context, cardUID string) (*int64, error)
}
