package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
	"github.com/anand0056/rfid-server-setup/internal/repository/memory"
)

type brokenStore struct {
	*memory.Store
}

func (brokenStore) GetTenantForCard(context.Context, string) (*int64, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) GetTenantForReader(context.Context, string) (*int64, error) {
	return nil, errors.New("connection reset")
}

func int64Ptr(v int64) *int64 { return &v }

func TestResolver_Lookups(t *testing.T) {
	store := memory.NewStore()
	store.PutReader(models.Reader{ReaderID: "R100", TenantID: int64Ptr(3)})
	store.PutCard(models.Card{CardUID: "CARD42", TenantID: int64Ptr(5), IsActive: true, CardType: models.CardTypeStaff})
	r := New(store, store, 1, zap.NewNop())
	ctx := context.Background()

	reader, err := r.Reader(ctx, "R100")
	require.NoError(t, err)
	assert.Equal(t, "R100", reader.ReaderID)

	_, err = r.Reader(ctx, "R404")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	card, err := r.Card(ctx, "CARD42")
	require.NoError(t, err)
	assert.True(t, card.IsActive)

	_, err = r.Card(ctx, "NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, int64(3), *r.TenantForReader(ctx, "R100"))
	assert.Equal(t, int64(5), *r.TenantForCard(ctx, "CARD42"))
	assert.Nil(t, r.TenantForReader(ctx, "R404"))
	assert.Nil(t, r.TenantForCard(ctx, "NOPE"))
}

func TestResolver_TenantLookupsSwallowErrors(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	store := brokenStore{memory.NewStore()}
	r := New(store, store, 1, zap.New(core))

	assert.Nil(t, r.TenantForCard(context.Background(), "CARD42"))
	assert.Nil(t, r.TenantForReader(context.Background(), "R100"))
	assert.Equal(t, 2, observed.Len())
}

func TestResolver_TenantOrDefault(t *testing.T) {
	r := New(memory.NewStore(), memory.NewStore(), 7, zap.NewNop())

	assert.Equal(t, int64(7), r.TenantOrDefault(nil))
	assert.Equal(t, int64(2), r.TenantOrDefault(int64Ptr(2)))
	assert.Equal(t, int64(7), r.DefaultTenant())
}
