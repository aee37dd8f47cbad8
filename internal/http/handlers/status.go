package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// StatusSource provides monitor results.
type StatusSource interface {
	// Latest returns the most recent result, false before the first check.
	Latest() (*MonitorStatus, bool)
	// Check runs a check now and returns its result.
	Check(ctx context.Context) (*MonitorStatus, error)
}

// StatusHandler serves monitor results.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// StatusInput is the input for the status endpoints.
type StatusInput struct{}

// StatusOutput is the output for the status endpoints.
type StatusOutput struct {
	Body MonitorStatus
}

// Register registers the status routes with the API.
func (h *StatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Latest monitor result",
		Description: "Returns the schedule conflicts, upcoming recordings and free space seen by the last check",
		Tags:        []string{"Monitor"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID:   "runCheck",
		Method:        http.MethodPost,
		Path:          "/api/v1/check",
		Summary:       "Check the backend now",
		Tags:          []string{"Monitor"},
		DefaultStatus: http.StatusOK,
	}, h.RunCheck)
}

// GetStatus returns the latest monitor result.
func (h *StatusHandler) GetStatus(_ context.Context, _ *StatusInput) (*StatusOutput, error) {
	status, ok := h.source.Latest()
	if !ok {
		return nil, huma.Error404NotFound("no check has completed yet")
	}
	return &StatusOutput{Body: *status}, nil
}

// RunCheck checks the backend and returns the result.
func (h *StatusHandler) RunCheck(ctx context.Context, _ *StatusInput) (*StatusOutput, error) {
	status, err := h.source.Check(ctx)
	if err != nil {
		return nil, huma.Error502BadGateway("backend check failed", err)
	}
	return &StatusOutput{Body: *status}, nil
}
