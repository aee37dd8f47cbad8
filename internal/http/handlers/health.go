package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const mb = 1024 * 1024

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	checks    map[string]func(context.Context) error
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]func(context.Context) error),
	}
}

// WithCheck adds a named dependency check reported by /health. A failing
// check marks the service degraded.
func (h *HealthHandler) WithCheck(name string, check func(context.Context) error) *HealthHandler {
	h.checks[name] = check
	return h
}

// LivezInput is the input for the liveness endpoint.
type LivezInput struct{}

// LivezOutput is the output for the liveness endpoint.
type LivezOutput struct {
	Body LivezResponse
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      "GET",
		Path:        "/livez",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health of mythctl, its dependencies and the host it runs on",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetLivez reports that the process is serving.
func (h *HealthHandler) GetLivez(_ context.Context, _ *LivezInput) (*LivezOutput, error) {
	return &LivezOutput{Body: LivezResponse{Status: "ok"}}, nil
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	status := "healthy"
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			Host:          hostInfo(ctx),
			Checks:        checks,
		},
	}, nil
}

// hostInfo samples load and memory. Fields the platform cannot report stay
// zero.
func hostInfo(ctx context.Context) HostInfo {
	info := HostInfo{Cores: runtime.NumCPU()}

	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		info.Load1Min = avg.Load1
		info.Load5Min = avg.Load5
		info.Load15Min = avg.Load15
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		info.TotalMemoryMB = float64(vm.Total) / mb
		info.UsedMemoryMB = float64(vm.Used) / mb
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil { //nolint:gosec // pids fit in int32
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil && rss != nil {
			info.ProcessRSSMB = float64(rss.RSS) / mb
		}
	}

	return info
}
