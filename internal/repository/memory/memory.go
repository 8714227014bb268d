// Package memory keeps readers, cards and logs in process memory. It backs
// the service when DB_ENABLED=false and the pipeline tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
)

type readerRow struct {
	reader  models.Reader
	status  string
	groupID int
}

// Store 内存存储
type Store struct {
	mu        sync.RWMutex
	readers   map[string]*readerRow
	cards     map[string]models.Card
	scanLogs  []models.ScanLogEntry
	errorLogs []models.ErrorLogEntry
	nextID    int64
}

func NewStore() *Store {
	return &Store{
		readers: make(map[string]*readerRow),
		cards:   make(map[string]models.Card),
	}
}

var (
	_ repository.ReadersRepository   = (*Store)(nil)
	_ repository.CardsRepository     = (*Store)(nil)
	_ repository.ScanLogsRepository  = (*Store)(nil)
	_ repository.ErrorLogsRepository = (*Store)(nil)
)

// PutReader seeds or replaces a reader.
func (s *Store) PutReader(r models.Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers[r.ReaderID] = &readerRow{reader: r, groupID: models.ReaderGroupDefault}
}

// PutCard seeds or replaces a card.
func (s *Store) PutCard(c models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.CardUID] = c
}

// Readers returns a snapshot of all readers ordered by id.
func (s *Store) Readers() []models.Reader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Reader, 0, len(s.readers))
	for _, row := range s.readers {
		out = append(out, row.reader)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReaderID < out[j].ReaderID })
	return out
}

// ScanLogs returns a snapshot of rfid_logs in insertion order.
func (s *Store) ScanLogs() []models.ScanLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ScanLogEntry(nil), s.scanLogs...)
}

// ErrorLogs returns a snapshot of error_logs in insertion order.
func (s *Store) ErrorLogs() []models.ErrorLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ErrorLogEntry(nil), s.errorLogs...)
}

func (s *Store) GetReader(_ context.Context, readerID string) (*models.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.readers[readerID]
	if !ok {
		return nil, fmt.Errorf("reader %s: %w", readerID, repository.ErrNotFound)
	}
	r := row.reader
	return &r, nil
}

func (s *Store) GetTenantForReader(_ context.Context, id string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.readers[id]
	if !ok || row.reader.TenantID == nil {
		return nil, nil
	}
	v := *row.reader.TenantID
	return &v, nil
}

func (s *Store) TouchReader(_ context.Context, readerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.readers[readerID]; ok {
		row.reader.IsOnline = true
		row.reader.LastHeartbeat = &at
	}
	return nil
}

func (s *Store) MarkHeartbeat(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.readers[id]
	if !ok {
		return 0, nil
	}
	now := time.Now()
	row.reader.IsOnline = true
	row.reader.LastHeartbeat = &now
	row.status = "online"
	return 1, nil
}

func (s *Store) CreateReader(_ context.Context, reader *models.Reader, readerGroupID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.readers[reader.ReaderID]; exists {
		return fmt.Errorf("reader %s already exists", reader.ReaderID)
	}
	now := time.Now()
	r := *reader
	r.IsOnline = true
	r.LastHeartbeat = &now
	s.readers[r.ReaderID] = &readerRow{reader: r, status: "online", groupID: readerGroupID}
	return nil
}

func (s *Store) GetCard(_ context.Context, cardUID string) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardUID]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardUID, repository.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) GetTenantForCard(_ context.Context, cardUID string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardUID]
	if !ok || c.TenantID == nil {
		return nil, nil
	}
	v := *c.TenantID
	return &v, nil
}

func (s *Store) InsertScanLog(_ context.Context, entry *models.ScanLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	if e.EventType == "" {
		e.EventType = models.EventTypeScan
	}
	s.scanLogs = append(s.scanLogs, e)
	return nil
}

func (s *Store) InsertErrorLog(_ context.Context, entry *models.ErrorLogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e := *entry
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.errorLogs = append(s.errorLogs, e)
	return e.ID, nil
}

func (s *Store) GetErrorLog(_ context.Context, id int64) (*models.ErrorLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.errorLogs {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, fmt.Errorf("error log %d: %w", id, repository.ErrNotFound)
}

func (s *Store) ListErrorLogs(_ context.Context, filter models.ErrorLogFilter) (*models.ErrorLogPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.ErrorLogEntry
	for _, e := range s.errorLogs {
		if filter.TenantID != nil && e.TenantID != *filter.TenantID {
			continue
		}
		if filter.ErrorType != "" && e.ErrorType != filter.ErrorType {
			continue
		}
		if filter.Resolved != nil && e.Resolved != *filter.Resolved {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := &models.ErrorLogPage{Page: filter.Page, Total: len(matched), Data: []models.ErrorLogEntry{}}
	if filter.Limit > 0 {
		page.TotalPages = (page.Total + filter.Limit - 1) / filter.Limit
		start := filter.Offset()
		if start >= 0 && start < len(matched) {
			end := start + filter.Limit
			if end > len(matched) {
				end = len(matched)
			}
			page.Data = append(page.Data, matched[start:end]...)
		}
	}
	return page, nil
}

func (s *Store) GetErrorLogStats(_ context.Context, tenantID int64, since time.Time) (*models.ErrorLogStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.ErrorLogStats{ByType: make(map[models.ErrorType]int)}
	for _, t := range models.ErrorTypes {
		stats.ByType[t] = 0
	}
	for _, e := range s.errorLogs {
		if e.TenantID != tenantID {
			continue
		}
		stats.Total++
		if e.Resolved {
			stats.Resolved++
		}
		if !e.CreatedAt.Before(since) {
			stats.RecentCount++
		}
		stats.ByType[e.ErrorType]++
	}
	stats.Unresolved = stats.Total - stats.Resolved
	return stats, nil
}

func (s *Store) SetErrorLogResolved(_ context.Context, id int64, resolved bool, resolvedBy, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.errorLogs {
		e := &s.errorLogs[i]
		if e.ID != id {
			continue
		}
		e.Resolved = resolved
		if resolved {
			now := time.Now()
			e.ResolvedBy = resolvedBy
			e.ResolvedAt = &now
			e.ResolutionNotes = notes
		} else {
			e.ResolvedBy = nil
			e.ResolvedAt = nil
			e.ResolutionNotes = nil
		}
		return nil
	}
	return fmt.Errorf("error log %d: %w", id, repository.ErrNotFound)
}
