// Package processor turns one raw scan message into an rfid_logs row or
// error_logs entries.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/guardian"
	"github.com/anand0056/rfid-server-setup/internal/metrics"
	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
	"github.com/anand0056/rfid-server-setup/internal/resolver"
	"github.com/anand0056/rfid-server-setup/internal/sink"
	"github.com/anand0056/rfid-server-setup/internal/stream"
	"github.com/anand0056/rfid-server-setup/internal/validator"
)

// Outcome is the terminal state of one scan message.
type Outcome string

const (
	OutcomeLogged            Outcome = "logged"
	OutcomeLoggedUnknownCard Outcome = "logged_unknown_card"
	OutcomeParseError        Outcome = "parse_error"
	OutcomeValidationError   Outcome = "validation_error"
	OutcomeUnknownReader     Outcome = "unknown_reader"
	OutcomeDatabaseError     Outcome = "database_error"
	OutcomeSystemError       Outcome = "system_error"
)

// Logged reports whether an rfid_logs row was written.
func (o Outcome) Logged() bool {
	return o == OutcomeLogged || o == OutcomeLoggedUnknownCard
}

const legacyDeviceKey = "devicelater"

const msgDatabaseDown = "Cannot process RFID scan - database not connected"

// Processor 扫描消息处理器
type Processor struct {
	resolver  *resolver.Resolver
	scanLogs  repository.ScanLogsRepository
	readers   repository.ReadersRepository
	sink      sink.Recorder
	publisher stream.ScanPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Processor)

// WithPublisher fans stored scans out after persistence.
func WithPublisher(p stream.ScanPublisher) Option {
	return func(pr *Processor) { pr.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(pr *Processor) { pr.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(pr *Processor) { pr.now = now }
}

func New(
	res *resolver.Resolver,
	readers repository.ReadersRepository,
	scanLogs repository.ScanLogsRepository,
	recorder sink.Recorder,
	logger *zap.Logger,
	opts ...Option,
) *Processor {
	p := &Processor{
		resolver: res,
		readers:  readers,
		scanLogs: scanLogs,
		sink:     recorder,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// scanContext carries what the stages have learned so far. tenantID starts
// as the default and is replaced once the reader resolves.
type scanContext struct {
	event    models.ScanEvent
	raw      string
	tenantID int64
	decoded  any
	scan     models.ValidatedScan
	reader   *models.Reader
	card     *models.Card
	unknown  bool
}

func (sc *scanContext) diagnostic(t models.ErrorType, msg string) sink.Diagnostic {
	tenant := sc.tenantID
	return sink.Diagnostic{
		Type:        t,
		Message:     msg,
		RawData:     sc.raw,
		SourceTopic: sc.event.Topic,
		TenantID:    &tenant,
	}
}

// Process runs one scan message through decode, validation, resolution and
// persistence. Every failure becomes an error_logs entry; nothing is returned
// to the caller except the outcome.
func (p *Processor) Process(ctx context.Context, event models.ScanEvent) (outcome Outcome) {
	sc := &scanContext{
		event:    event,
		raw:      string(event.Payload),
		tenantID: p.resolver.DefaultTenant(),
	}

	defer func() {
		if r := recover(); r != nil {
			d := sc.diagnostic(models.ErrorSystem, fmt.Sprintf("Unexpected error: %v", r))
			d.StackTrace = string(debug.Stack())
			p.sink.Record(ctx, d)
			outcome = OutcomeSystemError
		}
		p.metrics.ScanOutcome(string(outcome))
	}()

	p.logger.Debug("Received scan message",
		zap.String("topic", event.Topic),
		zap.String("payload", sc.raw),
	)

	if outcome, ok := p.decode(ctx, sc); !ok {
		return outcome
	}
	if outcome, ok := p.validate(ctx, sc); !ok {
		return outcome
	}
	if outcome, ok := p.resolveReader(ctx, sc); !ok {
		return outcome
	}
	if outcome, ok := p.resolveCard(ctx, sc); !ok {
		return outcome
	}
	return p.persist(ctx, sc)
}

func (p *Processor) decode(ctx context.Context, sc *scanContext) (Outcome, bool) {
	var probe any
	if err := json.Unmarshal(sc.event.Payload, &probe); err != nil {
		p.sink.Record(ctx, sc.diagnostic(models.ErrorParse, fmt.Sprintf("Invalid JSON: %v", err)))
		return OutcomeParseError, false
	}

	// decode again keeping numbers exact so tagNum 5.0 is not taken for 5
	dec := json.NewDecoder(bytes.NewReader(sc.event.Payload))
	dec.UseNumber()
	if err := dec.Decode(&sc.decoded); err != nil {
		panic(err)
	}
	return "", true
}

func (p *Processor) validate(ctx context.Context, sc *scanContext) (Outcome, bool) {
	if obj, ok := sc.decoded.(map[string]any); ok {
		if _, legacy := obj[legacyDeviceKey]; legacy {
			p.sink.Record(ctx, sc.diagnostic(models.ErrorValidation, "Found 'devicelater' instead of required 'deviceID'"))
			return OutcomeValidationError, false
		}
	}

	scan, err := validator.Validate(sc.decoded)
	if err != nil {
		p.sink.Record(ctx, sc.diagnostic(models.ErrorValidation, "Invalid format: "+err.Error()))
		return OutcomeValidationError, false
	}
	sc.scan = scan
	return "", true
}

func (p *Processor) resolveReader(ctx context.Context, sc *scanContext) (Outcome, bool) {
	reader, err := p.resolver.Reader(ctx, sc.scan.DeviceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p.sink.Record(ctx, sc.diagnostic(models.ErrorUnknownReader, "Reader not found in database: "+sc.scan.DeviceID))
		return OutcomeUnknownReader, false
	case err != nil:
		p.sink.Record(ctx, sc.diagnostic(models.ErrorDatabase, databaseMessage("reader", err)))
		return OutcomeDatabaseError, false
	}

	sc.reader = reader
	sc.tenantID = p.resolver.TenantOrDefault(reader.TenantID)
	return "", true
}

func (p *Processor) resolveCard(ctx context.Context, sc *scanContext) (Outcome, bool) {
	card, err := p.resolver.Card(ctx, sc.scan.TagID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// unknown cards are still logged, unauthorized
		p.sink.Record(ctx, sc.diagnostic(models.ErrorUnknownCard, "Card not found in database: "+sc.scan.TagID))
		sc.card = models.UnknownCard(sc.scan.TagID)
		sc.unknown = true
	case err != nil:
		p.sink.Record(ctx, sc.diagnostic(models.ErrorDatabase, databaseMessage("card", err)))
		return OutcomeDatabaseError, false
	default:
		sc.card = card
	}
	return "", true
}

func (p *Processor) persist(ctx context.Context, sc *scanContext) Outcome {
	scannedAt := p.now()
	entry := &models.ScanLogEntry{
		CardUID:      sc.scan.TagID,
		ReaderID:     sc.scan.DeviceID,
		IsAuthorized: sc.card.IsActive,
		Timestamp:    scannedAt,
		TenantID:     sc.tenantID,
		EventType:    models.EventTypeScan,
		RawData:      sc.raw,
		Notes:        sc.card.Notes(),
	}

	if err := p.scanLogs.InsertScanLog(ctx, entry); err != nil {
		p.sink.Record(ctx, sc.diagnostic(models.ErrorDatabase, fmt.Sprintf("Failed to save scan: %v", err)))
		return OutcomeDatabaseError
	}
	if err := p.readers.TouchReader(ctx, sc.scan.DeviceID, scannedAt); err != nil {
		p.sink.Record(ctx, sc.diagnostic(models.ErrorDatabase, fmt.Sprintf("Failed to save scan: %v", err)))
		return OutcomeDatabaseError
	}

	p.logger.Info("Logged scan",
		zap.String("card_uid", entry.CardUID),
		zap.String("reader_id", entry.ReaderID),
		zap.Bool("is_authorized", entry.IsAuthorized),
		zap.Int64("tenant_id", entry.TenantID),
	)

	if p.publisher != nil {
		if err := p.publisher.PublishScan(ctx, sc.event.Topic, entry); err != nil {
			p.logger.Error("Failed to publish scan", zap.String("reader_id", entry.ReaderID), zap.Error(err))
		}
	}

	if sc.unknown {
		return OutcomeLoggedUnknownCard
	}
	return OutcomeLogged
}

func databaseMessage(what string, err error) string {
	if errors.Is(err, guardian.ErrUnavailable) {
		return msgDatabaseDown
	}
	return fmt.Sprintf("Failed to look up %s: %v", what, err)
}
