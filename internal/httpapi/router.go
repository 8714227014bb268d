// Package httpapi serves the health probe, metrics and the error-log API.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.HandleHandler("/health", h)
}

func (r *Router) RegisterMetricsRoutes(metrics http.Handler) {
	r.HandleHandler("/metrics", metrics)
}

func (r *Router) RegisterErrorLogRoutes(h *ErrorLogsHandler) {
	r.HandleHandler(errorLogsPath, h)
	r.HandleHandler(errorLogsPath+"/", h)
}
