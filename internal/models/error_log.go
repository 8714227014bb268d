package models

import (
	"encoding/json"
	"math"
	"time"
)

// ErrorType 错误类型（error_logs.error_type）
type ErrorType string

const (
	ErrorParse         ErrorType = "parse_error"
	ErrorValidation    ErrorType = "validation_error"
	ErrorUnknownReader ErrorType = "unknown_reader"
	ErrorUnknownCard   ErrorType = "unknown_card"
	ErrorDatabase      ErrorType = "database_error"
	ErrorSystem        ErrorType = "system_error"
)

// ErrorTypes lists every type the pipeline writes, in a stable order.
var ErrorTypes = []ErrorType{
	ErrorParse,
	ErrorValidation,
	ErrorUnknownReader,
	ErrorUnknownCard,
	ErrorDatabase,
	ErrorSystem,
}

// Valid reports whether t is one of the known error types.
func (t ErrorType) Valid() bool {
	for _, known := range ErrorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ErrorLogEntry 错误日志（error_logs）
type ErrorLogEntry struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	ErrorType       ErrorType       `json:"error_type"`
	ErrorMessage    string          `json:"error_message"`
	RawData         json.RawMessage `json:"raw_data,omitempty"`
	SourceTopic     *string         `json:"source_topic,omitempty"`
	StackTrace      *string         `json:"stack_trace,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Resolved        bool            `json:"resolved"`
	ResolvedBy      *string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolutionNotes *string         `json:"resolution_notes,omitempty"`
}

// ErrorLogFilter narrows an error log listing. Zero values mean "any".
type ErrorLogFilter struct {
	TenantID  *int64
	ErrorType ErrorType
	Resolved  *bool
	Page      int
	Limit     int
}

// ErrorLogPage is one page of an error log listing.
type ErrorLogPage struct {
	Data       []ErrorLogEntry `json:"data"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// ErrorLogStats summarises a tenant's error log.
type ErrorLogStats struct {
	Total       int               `json:"total"`
	Resolved    int               `json:"resolved"`
	Unresolved  int               `json:"unresolved"`
	ByType      map[ErrorType]int `json:"by_type"`
	RecentCount int               `json:"recent_count"`
}

const (
	DefaultErrorLogLimit = 50
	MaxErrorLogLimit     = 200
)

// Normalize fills in paging defaults and clamps the page size. Page is
// capped so Offset stays within int32, which is also what OFFSET accepts
// without complaint.
func (f *ErrorLogFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultErrorLogLimit
	}
	if f.Limit > MaxErrorLogLimit {
		f.Limit = MaxErrorLogLimit
	}
	if maxPage := math.MaxInt32/f.Limit + 1; f.Page > maxPage {
		f.Page = maxPage
	}
}

// Offset is the row offset of the filter's page.
func (f ErrorLogFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
