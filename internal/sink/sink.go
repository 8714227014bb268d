// Package sink records rejected and failed events in error_logs.
package sink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/metrics"
	"github.com/anand0056/rfid-server-setup/internal/models"
)

// Delivery says where a diagnostic ended up.
type Delivery int

const (
	// DeliveredDurable means the error_logs row was written.
	DeliveredDurable Delivery = iota
	// DeliveredFallback means the datastore write failed and only the log line exists.
	DeliveredFallback
)

func (d Delivery) String() string {
	if d == DeliveredDurable {
		return "durable"
	}
	return "fallback"
}

// Diagnostic is one rejected or failed event.
type Diagnostic struct {
	Type        models.ErrorType
	Message     string
	RawData     any
	SourceTopic string
	StackTrace  string
	// TenantID nil means the configured default tenant.
	TenantID *int64
}

// Recorder is what the pipeline stages depend on.
type Recorder interface {
	Record(ctx context.Context, d Diagnostic) Delivery
}

// ErrorLogWriter is the only store method the sink needs.
type ErrorLogWriter interface {
	InsertErrorLog(ctx context.Context, entry *models.ErrorLogEntry) (int64, error)
}

// Sink 诊断日志落库，失败时降级为结构化日志
type Sink struct {
	store         ErrorLogWriter
	defaultTenant int64
	timeout       time.Duration
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func New(store ErrorLogWriter, defaultTenant int64, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Sink {
	return &Sink{
		store:         store,
		defaultTenant: defaultTenant,
		timeout:       timeout,
		logger:        logger,
		metrics:       m,
	}
}

var _ Recorder = (*Sink)(nil)

// Record writes d to error_logs. It never returns an error and never panics;
// when the write fails every field of d goes to the fallback log line instead.
func (s *Sink) Record(ctx context.Context, d Diagnostic) (delivery Delivery) {
	tenantID := s.defaultTenant
	if d.TenantID != nil {
		tenantID = *d.TenantID
	}

	defer func() {
		if r := recover(); r != nil {
			s.fallback(d, tenantID, fmt.Errorf("panic while recording diagnostic: %v", r))
			delivery = DeliveredFallback
		}
		s.metrics.Diagnostic(string(d.Type), delivery.String())
	}()

	entry := &models.ErrorLogEntry{
		TenantID:     tenantID,
		ErrorType:    d.Type,
		ErrorMessage: d.Message,
		RawData:      WrapRawData(d.RawData),
		CreatedAt:    time.Now(),
	}
	if d.SourceTopic != "" {
		topic := d.SourceTopic
		entry.SourceTopic = &topic
	}
	if d.StackTrace != "" {
		stack := d.StackTrace
		entry.StackTrace = &stack
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id, err := s.store.InsertErrorLog(ctx, entry)
	if err != nil {
		s.fallback(d, tenantID, err)
		return DeliveredFallback
	}

	s.logger.Info("Logged diagnostic",
		zap.Int64("error_log_id", id),
		zap.String("error_type", string(d.Type)),
		zap.String("error_message", d.Message),
		zap.Int64("tenant_id", tenantID),
	)
	return DeliveredDurable
}

func (s *Sink) fallback(d Diagnostic, tenantID int64, cause error) {
	s.logger.Error("Failed to record diagnostic in error_logs, details follow",
		zap.String("error_type", string(d.Type)),
		zap.String("error_message", d.Message),
		zap.String("raw_data", rawString(d.RawData)),
		zap.String("source_topic", d.SourceTopic),
		zap.String("stack_trace", d.StackTrace),
		zap.Int64("tenant_id", tenantID),
		zap.NamedError("cause", cause),
	)
}

func rawString(v any) string {
	switch raw := v.(type) {
	case nil:
		return ""
	case string:
		return raw
	case []byte:
		return string(raw)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// WrapRawData converts raw input into the JSON document stored in error_logs.raw_data:
//
//	valid JSON text   -> {"parsed_data": <value>, "original_string": <text>}
//	other text        -> {"raw_text": <text>, "parse_error": "Could not parse as JSON"}
//	invalid UTF-8     -> {"raw_text": <text with U+FFFD>, "raw_base64": <exact bytes>, "parse_error": "Payload is not valid UTF-8"}
//	non-text values   -> {"data": <value>, "type": "<Go type>"}
//
// nil yields nil (stored as NULL). Byte slices count as text.
func WrapRawData(v any) json.RawMessage {
	var doc any
	switch raw := v.(type) {
	case nil:
		return nil
	case string:
		doc = wrapText(raw)
	case []byte:
		doc = wrapText(string(raw))
	default:
		doc = struct {
			Data any    `json:"data"`
			Type string `json:"type"`
		}{Data: raw, Type: fmt.Sprintf("%T", raw)}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		// values encoding/json rejects (channels, funcs, cyclic maps) keep their printed form
		out, _ = json.Marshal(struct {
			Data string `json:"data"`
			Type string `json:"type"`
		}{Data: fmt.Sprintf("%v", v), Type: fmt.Sprintf("%T", v)})
	}
	return out
}

func wrapText(s string) any {
	if !utf8.ValidString(s) {
		return struct {
			RawText    string `json:"raw_text"`
			RawBase64  string `json:"raw_base64"`
			ParseError string `json:"parse_error"`
		}{
			RawText:    strings.ToValidUTF8(s, "\uFFFD"),
			RawBase64:  base64.StdEncoding.EncodeToString([]byte(s)),
			ParseError: "Payload is not valid UTF-8",
		}
	}
	if json.Valid([]byte(s)) {
		return struct {
			ParsedData     json.RawMessage `json:"parsed_data"`
			OriginalString string          `json:"original_string"`
		}{ParsedData: json.RawMessage(s), OriginalString: s}
	}
	return struct {
		RawText    string `json:"raw_text"`
		ParseError string `json:"parse_error"`
	}{RawText: s, ParseError: "Could not parse as JSON"}
}
