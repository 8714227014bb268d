// Package guardian owns the single datastore handle shared by the message
// pipeline and the health probe.
package guardian

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/common/database"
	"github.com/anand0056/rfid-server-setup/internal/repository"
)

// ErrUnavailable is returned when the retry budget is spent without a connection.
var ErrUnavailable = errors.New("datastore unavailable")

// OpenFunc opens and verifies a fresh handle.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// Guardian serializes every use of the handle: connect, liveness check,
// statement execution and reconnect all happen under one mutex, so two
// callers never reconnect at the same time.
type Guardian struct {
	mu         sync.Mutex
	db         *sql.DB
	open       OpenFunc
	maxRetries int
	interval   time.Duration
	logger     *zap.Logger
}

// New creates a guardian. Nothing is opened until Connect or the first WithConnection.
func New(open OpenFunc, maxRetries int, interval time.Duration, logger *zap.Logger) *Guardian {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Guardian{
		open:       open,
		maxRetries: maxRetries,
		interval:   interval,
		logger:     logger,
	}
}

var _ repository.Connector = (*Guardian)(nil)

// Connect opens the handle if it is not open yet.
func (g *Guardian) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db != nil {
		return nil
	}
	return g.connectLocked(ctx)
}

// WithConnection runs fn with a live handle, reconnecting first when the
// handle is missing or fails its ping.
func (g *Guardian) WithConnection(ctx context.Context, fn func(repository.DBTX) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureLocked(ctx); err != nil {
		return err
	}
	return fn(g.db)
}

// Ping reports whether the datastore is reachable, reconnecting if needed.
func (g *Guardian) Ping(ctx context.Context) error {
	return g.WithConnection(ctx, func(repository.DBTX) error { return nil })
}

// Close releases the handle. A later WithConnection reopens it.
func (g *Guardian) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := database.Close(g.db)
	g.db = nil
	return err
}

func (g *Guardian) ensureLocked(ctx context.Context) error {
	if g.db == nil {
		g.logger.Warn("Database connection not established, connecting")
		return g.connectLocked(ctx)
	}
	if err := g.db.PingContext(ctx); err != nil {
		// the caller gave up; the handle itself may be fine
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.logger.Warn("Database connection lost, reconnecting", zap.Error(err))
		if cerr := database.Close(g.db); cerr != nil {
			g.logger.Debug("Error closing stale database handle", zap.Error(cerr))
		}
		g.db = nil
		return g.connectLocked(ctx)
	}
	return nil
}

func (g *Guardian) connectLocked(ctx context.Context) error {
	attempt := 0
	db, err := backoff.Retry(ctx, func() (*sql.DB, error) {
		attempt++
		return g.open(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(g.interval)),
		backoff.WithMaxTries(uint(g.maxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			g.logger.Error("Database connection failed",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		g.logger.Error("Failed to connect to database after maximum retries",
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g.db = db
	g.logger.Info("Connected to database", zap.Int("attempts", attempt))
	return nil
}
