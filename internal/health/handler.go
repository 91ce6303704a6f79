package health

import (
	"context"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shadow-links/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	checkTimeout = 2 * time.Second
)

// Handler handles health check operations.
type Handler struct {
	checkers map[string]Checker
	logger   *zap.Logger
}

// NewHandler creates a new health handler with no dependencies registered.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		logger:   logger,
	}
}

// Add registers a named dependency check.
func (h *Handler) Add(name string, checker Checker) *Handler {
	h.checkers[name] = checker

	return h
}

// Names returns the registered dependency names, sorted.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string            `doc:"ok or degraded"                 example:"ok" json:"status"`
		Checks map[string]string `doc:"healthy or unhealthy per backend" json:"checks"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = StatusOK
	resp.Body.Checks = make(map[string]string, len(h.checkers))

	for _, name := range h.Names() {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checkers[name].Ping(checkCtx)

		cancel()

		if err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			resp.Body.Checks[name] = "unhealthy"
			resp.Body.Status = StatusDegraded

			continue
		}

		resp.Body.Checks[name] = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. Health checks are never rate limited.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
