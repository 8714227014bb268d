package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
)

func TestStore_HeartbeatProvisioning(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	n, err := s.MarkHeartbeat(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, s.CreateReader(ctx, &models.Reader{ReaderID: "R1", Name: "Auto-created R1"}, 1))
	assert.Error(t, s.CreateReader(ctx, &models.Reader{ReaderID: "R1"}, 1))

	n, err = s.MarkHeartbeat(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	readers := s.Readers()
	require.Len(t, readers, 1)
	assert.True(t, readers[0].IsOnline)
	assert.NotNil(t, readers[0].LastHeartbeat)
}

func TestStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenant := int64(5)
	s.PutReader(models.Reader{ReaderID: "R1", TenantID: &tenant})
	s.PutCard(models.Card{CardUID: "C1", TenantID: &tenant, IsActive: true, CardType: models.CardTypeStaff})

	r, err := s.GetReader(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *r.TenantID)

	_, err = s.GetReader(ctx, "R2")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	c, err := s.GetCard(ctx, "C1")
	require.NoError(t, err)
	assert.True(t, c.IsActive)

	_, err = s.GetCard(ctx, "C2")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	got, err := s.GetTenantForCard(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *got)

	got, err = s.GetTenantForReader(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ErrorLogQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	old := time.Now().Add(-48 * time.Hour)

	_, _ = s.InsertErrorLog(ctx, &models.ErrorLogEntry{TenantID: 1, ErrorType: models.ErrorParse, CreatedAt: old})
	_, _ = s.InsertErrorLog(ctx, &models.ErrorLogEntry{TenantID: 1, ErrorType: models.ErrorValidation})
	id, _ := s.InsertErrorLog(ctx, &models.ErrorLogEntry{TenantID: 1, ErrorType: models.ErrorValidation})
	_, _ = s.InsertErrorLog(ctx, &models.ErrorLogEntry{TenantID: 2, ErrorType: models.ErrorUnknownCard})

	by := "ops"
	require.NoError(t, s.SetErrorLogResolved(ctx, id, true, &by, nil))
	assert.True(t, errors.Is(s.SetErrorLogResolved(ctx, 99, true, nil, nil), repository.ErrNotFound))

	tenant := int64(1)
	f := models.ErrorLogFilter{TenantID: &tenant, Limit: 2}
	f.Normalize()
	page, err := s.ListErrorLogs(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, id, page.Data[0].ID)

	far := models.ErrorLogFilter{TenantID: &tenant, Page: 1 << 58, Limit: 50}
	far.Normalize()
	page, err = s.ListErrorLogs(ctx, far)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Empty(t, page.Data)

	stats, err := s.GetErrorLogStats(ctx, 1, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.Unresolved)
	assert.Equal(t, 2, stats.RecentCount)
	assert.Equal(t, 2, stats.ByType[models.ErrorValidation])
	assert.Equal(t, 0, stats.ByType[models.ErrorUnknownCard])
}
