package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anand0056/rfid-server-setup/internal/models"
	"github.com/anand0056/rfid-server-setup/internal/repository"
)

const errorLogsPath = "/api/v1/error-logs"

// recentWindow is what stats count as recent.
const recentWindow = 24 * time.Hour

// ErrorLogsHandler 错误日志查询与处理
type ErrorLogsHandler struct {
	repo          repository.ErrorLogsRepository
	defaultTenant int64
	logger        *zap.Logger
	now           func() time.Time
}

func NewErrorLogsHandler(repo repository.ErrorLogsRepository, defaultTenant int64, logger *zap.Logger) *ErrorLogsHandler {
	return &ErrorLogsHandler{
		repo:          repo,
		defaultTenant: defaultTenant,
		logger:        logger,
		now:           time.Now,
	}
}

// ServeHTTP routes everything under /api/v1/error-logs.
func (h *ErrorLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, errorLogsPath), "/")
	parts := []string{}
	if rest != "" {
		parts = strings.Split(rest, "/")
	}

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, r)
	case len(parts) == 1 && parts[0] == "stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Stats(w, r)
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Get(w, r, parts[0])
	case len(parts) == 2 && (parts[1] == "resolve" || parts[1] == "unresolve"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SetResolved(w, r, parts[0], parts[1] == "resolve")
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// List GET /api/v1/error-logs?tenant_id=&error_type=&resolved=&page=&limit=
func (h *ErrorLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ErrorLogFilter{
		Page:  parseInt(q.Get("page"), 1),
		Limit: parseInt(q.Get("limit"), models.DefaultErrorLogLimit),
	}

	if v := q.Get("tenant_id"); v != "" {
		tenantID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid tenant_id"))
			return
		}
		filter.TenantID = &tenantID
	}
	if v := q.Get("error_type"); v != "" {
		t := models.ErrorType(v)
		if !t.Valid() {
			writeJSON(w, http.StatusBadRequest, Fail("invalid error_type"))
			return
		}
		filter.ErrorType = t
	}
	if v := q.Get("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid resolved"))
			return
		}
		filter.Resolved = &resolved
	}
	filter.Normalize()

	page, err := h.repo.ListErrorLogs(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list error logs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list error logs"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(page))
}

// Stats GET /api/v1/error-logs/stats?tenant_id=
func (h *ErrorLogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID := h.defaultTenant
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid tenant_id"))
			return
		}
		tenantID = parsed
	}

	stats, err := h.repo.GetErrorLogStats(r.Context(), tenantID, h.now().Add(-recentWindow))
	if err != nil {
		h.logger.Error("Failed to load error log stats", zap.Int64("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load error log stats"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Get GET /api/v1/error-logs/{id}
func (h *ErrorLogsHandler) Get(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	entry, err := h.repo.GetErrorLog(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

type resolveRequest struct {
	ResolvedBy      string `json:"resolved_by"`
	ResolutionNotes string `json:"resolution_notes"`
}

// SetResolved POST /api/v1/error-logs/{id}/resolve and /unresolve
func (h *ErrorLogsHandler) SetResolved(w http.ResponseWriter, r *http.Request, rawID string, resolved bool) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	var by, notes *string
	if resolved {
		var req resolveRequest
		if err := readBodyJSON(r, 1<<16, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		if strings.TrimSpace(req.ResolvedBy) == "" {
			writeJSON(w, http.StatusBadRequest, Fail("resolved_by is required"))
			return
		}
		by = &req.ResolvedBy
		if req.ResolutionNotes != "" {
			notes = &req.ResolutionNotes
		}
	}

	if err := h.repo.SetErrorLogResolved(r.Context(), id, resolved, by, notes); err != nil {
		h.writeRepoError(w, id, err)
		return
	}

	entry, err := h.repo.GetErrorLog(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

func (h *ErrorLogsHandler) writeRepoError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, Fail("error log not found"))
		return
	}
	h.logger.Error("Error log request failed", zap.Int64("id", id), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid id"))
		return 0, false
	}
	return id, true
}
