package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

func TestInsertScanLog(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresScanLogsRepository(conn)

	at := time.Now()
	raw := `{"deviceSn":"DEV1","deviceID":"R100","tagNum":7,"tagID":"CARD42"}`
	mock.ExpectExec(`INSERT INTO rfid_logs`).
		WithArgs("CARD42", "R100", false, at, int64(4), "scan", raw, "Card Type: unknown, Owner: Unknown").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertScanLog(context.Background(), &models.ScanLogEntry{
		CardUID:   "CARD42",
		ReaderID:  "R100",
		Timestamp: at,
		TenantID:  4,
		RawData:   raw,
		Notes:     "Card Type: unknown, Owner: Unknown",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertScanLog_Error(t *testing.T) {
	db, mock, conn := setupMockDB(t)
	defer db.Close()
	repo := NewPostgresScanLogsRepository(conn)

	mock.ExpectExec(`INSERT INTO rfid_logs`).
		WillReturnError(errors.New("disk full"))

	err := repo.InsertScanLog(context.Background(), &models.ScanLogEntry{CardUID: "C", ReaderID: "R"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
