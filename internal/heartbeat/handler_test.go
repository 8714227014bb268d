package heartbeat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository/memory"
	"github.com/anand0056/rfid-server-setup/internal/resolver"
)

type brokenReaders struct {
	*memory.Store
	markErr   error
	createErr error
}

func (b *brokenReaders) MarkHeartbeat(ctx context.Context, id string) (int64, error) {
	if b.markErr != nil {
		return 0, b.markErr
	}
	return b.Store.MarkHeartbeat(ctx, id)
}

func (b *brokenReaders) CreateReader(ctx context.Context, r *models.Reader, group int) error {
	if b.createErr != nil {
		return b.createErr
	}
	return b.Store.CreateReader(ctx, r, group)
}

func newHandler(store *brokenReaders) *Handler {
	res := resolver.New(store, store, 1, zap.NewNop())
	return NewHandler(store, res, nil, zap.NewNop())
}

func TestHandle_CreatesOnceThenUpdates(t *testing.T) {
	store := &brokenReaders{Store: memory.NewStore()}
	h := newHandler(store)
	ctx := context.Background()

	assert.Equal(t, Created, h.Handle(ctx, []byte(`{"reader_id":"R9"}`)))
	assert.Equal(t, Updated, h.Handle(ctx, []byte(`{"reader_id":"R9"}`)))
	assert.Equal(t, Updated, h.Handle(ctx, []byte(`{"reader_id":"R9"}`)))

	readers := store.Readers()
	require.Len(t, readers, 1)
	assert.Equal(t, "R9", readers[0].ReaderID)
	assert.Equal(t, "Auto-created R9", readers[0].Name)
	assert.Equal(t, "Location for R9", readers[0].Location)
	assert.True(t, readers[0].IsOnline)
	assert.NotNil(t, readers[0].LastHeartbeat)
	assert.Nil(t, readers[0].TenantID)
}

func TestHandle_KnownReaderKeepsTenant(t *testing.T) {
	mem := memory.NewStore()
	tenant := int64(4)
	mem.PutReader(models.Reader{ReaderID: "R1", TenantID: &tenant, Name: "Gate"})
	h := newHandler(&brokenReaders{Store: mem})

	assert.Equal(t, Updated, h.Handle(context.Background(), []byte(`{"reader_id":"R1"}`)))

	readers := mem.Readers()
	require.Len(t, readers, 1)
	assert.Equal(t, "Gate", readers[0].Name)
	assert.Equal(t, int64(4), *readers[0].TenantID)
	assert.True(t, readers[0].IsOnline)
}

func TestHandle_NumericReaderID(t *testing.T) {
	store := &brokenReaders{Store: memory.NewStore()}
	h := newHandler(store)

	assert.Equal(t, Created, h.Handle(context.Background(), []byte(`{"reader_id":1234567}`)))
	assert.Equal(t, "1234567", store.Readers()[0].ReaderID)
}

func TestHandle_Ignored(t *testing.T) {
	store := &brokenReaders{Store: memory.NewStore()}
	h := newHandler(store)

	for _, payload := range []string{`not json`, `{}`, `{"reader_id":""}`, `{"reader_id":"  "}`, `{"reader_id":null}`, `{"reader_id":true}`, `[]`} {
		assert.Equal(t, Ignored, h.Handle(context.Background(), []byte(payload)), payload)
	}
	assert.Empty(t, store.Readers())
	assert.Empty(t, store.ErrorLogs())
}

func TestHandle_FailuresAreNotRecorded(t *testing.T) {
	store := &brokenReaders{Store: memory.NewStore(), markErr: errors.New("connection reset")}
	h := newHandler(store)

	assert.Equal(t, Failed, h.Handle(context.Background(), []byte(`{"reader_id":"R1"}`)))

	store.markErr = nil
	store.createErr = errors.New("duplicate key")
	assert.Equal(t, Failed, h.Handle(context.Background(), []byte(`{"reader_id":"R1"}`)))

	assert.Empty(t, store.ErrorLogs())
	assert.Empty(t, store.Readers())
}
