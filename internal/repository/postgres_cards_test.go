package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCard_Staff(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresCardsRepository(conn)

	rows := sqlmock.NewRows([]string{"card_uid", "tenant_id", "is_active", "owner_name", "card_type"}).
		AddRow("CARD42", int64(2), true, "Alice", "staff")

	mock.ExpectQuery(`LEFT JOIN staff s`).
		WithArgs("CARD42").
		WillReturnRows(rows)

	card, err := repo.GetCard(context.Background(), "CARD42")

	require.NoError(t, err)
	assert.Equal(t, "CARD42", card.CardUID)
	assert.True(t, card.IsActive)
	assert.Equal(t, "staff", card.CardType)
	require.NotNil(t, card.OwnerName)
	assert.Equal(t, "Alice", *card.OwnerName)
	require.NotNil(t, card.TenantID)
	assert.Equal(t, int64(2), *card.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCard_NoOwner(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresCardsRepository(conn)

	rows := sqlmock.NewRows([]string{"card_uid", "tenant_id", "is_active", "owner_name", "card_type"}).
		AddRow("V-1", nil, false, nil, "visitor")

	mock.ExpectQuery(`FROM rfid_cards c`).
		WithArgs("V-1").
		WillReturnRows(rows)

	card, err := repo.GetCard(context.Background(), "V-1")

	require.NoError(t, err)
	assert.Nil(t, card.OwnerName)
	assert.Nil(t, card.TenantID)
	assert.Equal(t, "visitor", card.CardType)
	assert.Equal(t, "Card Type: visitor, Owner: Unknown", card.Notes())
}

func TestGetCard_NotFound(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresCardsRepository(conn)

	mock.ExpectQuery(`FROM rfid_cards c`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	card, err := repo.GetCard(context.Background(), "nope")
	assert.Nil(t, card)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetTenantForCard(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresCardsRepository(conn)

	mock.ExpectQuery(`SELECT tenant_id FROM rfid_cards`).
		WithArgs("CARD42").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT tenant_id FROM rfid_cards`).
		WithArgs("CARD43").
		WillReturnError(errors.New("boom"))

	tenant, err := repo.GetTenantForCard(context.Background(), "CARD42")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *tenant)

	tenant, err = repo.GetTenantForCard(context.Background(), "CARD43")
	assert.Error(t, err)
	assert.Nil(t, tenant)
}
