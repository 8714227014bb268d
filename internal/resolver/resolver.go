// Package resolver maps scan references (reader ids, card uids) to stored
// readers, cards and tenants.
package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
)

// Resolver 引用解析器
type Resolver struct {
	readers       repository.ReadersRepository
	cards         repository.CardsRepository
	defaultTenant int64
	logger        *zap.Logger
}

func New(readers repository.ReadersRepository, cards repository.CardsRepository, defaultTenant int64, logger *zap.Logger) *Resolver {
	return &Resolver{
		readers:       readers,
		cards:         cards,
		defaultTenant: defaultTenant,
		logger:        logger,
	}
}

// Reader looks a reader up by reader_id. Misses surface as repository.ErrNotFound.
func (r *Resolver) Reader(ctx context.Context, readerID string) (*models.Reader, error) {
	return r.readers.GetReader(ctx, readerID)
}

// Card looks a card up by uid. Misses surface as repository.ErrNotFound.
func (r *Resolver) Card(ctx context.Context, cardUID string) (*models.Card, error) {
	return r.cards.GetCard(ctx, cardUID)
}

// TenantForCard is best-effort: lookup failures are logged and yield nil.
func (r *Resolver) TenantForCard(ctx context.Context, cardUID string) *int64 {
	tenantID, err := r.cards.GetTenantForCard(ctx, cardUID)
	if err != nil {
		r.logger.Warn("Failed to resolve tenant for card",
			zap.String("card_uid", cardUID),
			zap.Error(err),
		)
		return nil
	}
	return tenantID
}

// TenantForReader is best-effort: lookup failures are logged and yield nil.
func (r *Resolver) TenantForReader(ctx context.Context, readerID string) *int64 {
	tenantID, err := r.readers.GetTenantForReader(ctx, readerID)
	if err != nil {
		r.logger.Warn("Failed to resolve tenant for reader",
			zap.String("reader_id", readerID),
			zap.Error(err),
		)
		return nil
	}
	return tenantID
}

// TenantOrDefault returns *tenantID, or the configured default when nil.
func (r *Resolver) TenantOrDefault(tenantID *int64) int64 {
	if tenantID == nil {
		return r.defaultTenant
	}
	return *tenantID
}

// DefaultTenant is the tenant used when nothing better is known.
func (r *Resolver) DefaultTenant() int64 {
	return r.defaultTenant
}
