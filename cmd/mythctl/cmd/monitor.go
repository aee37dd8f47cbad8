package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gomyth/internal/config"
	apihttp "github.com/jmylchreest/gomyth/internal/http"
	"github.com/jmylchreest/gomyth/internal/http/handlers"
	"github.com/jmylchreest/gomyth/internal/observability"
	"github.com/jmylchreest/gomyth/internal/scheduler"
	"github.com/jmylchreest/gomyth/internal/version"
	"github.com/jmylchreest/gomyth/pkg/format"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/protocol"
)

var (
	monitorOnce     bool
	monitorSchedule string
	monitorPort     int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch upcoming recordings and free space",
	Long: `Poll the backend on a cron schedule (6 fields, seconds first) and log
schedule conflicts, recordings starting within monitor.look_ahead, and
storage falling below monitor.free_space_warning.

With server.port (or --port) set, the latest result is served as JSON on
/api/v1/status, POST /api/v1/check runs a check immediately, and /health
reports the host and the last check.

  mythctl monitor --schedule "0 */10 * * * *"
  mythctl monitor --port 8080
  mythctl monitor --once`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "run one check, print the report and exit")
	monitorCmd.Flags().StringVar(&monitorSchedule, "schedule", "", "cron schedule (overrides monitor.schedule)")
	monitorCmd.Flags().IntVar(&monitorPort, "port", 0, "serve the status API on this port (overrides server.port)")
	rootCmd.AddCommand(monitorCmd)
}

// monitorReport is the outcome of one check.
type monitorReport struct {
	Checked   time.Time
	Upcoming  []*models.ProgramInfo
	Conflicts []*models.ProgramInfo
	Total     int64 // bytes
	Free      int64 // bytes
	LowSpace  bool
}

// checkBackend gathers the pending schedule and free space from b.
func checkBackend(ctx context.Context, b backend, mc config.MonitorConfig, now time.Time) (*monitorReport, error) {
	pending, err := b.QueryPendingRecordings(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying pending recordings: %w", err)
	}
	summary, err := b.QueryFreeSpaceSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying free space: %w", err)
	}

	report := &monitorReport{
		Checked: now,
		Total:   config.KiBytes(summary.TotalSpace()).Bytes(),
		Free:    config.KiBytes(summary.FreeSpace()).Bytes(),
	}
	report.LowSpace = mc.FreeSpaceWarning > 0 && report.Free < mc.FreeSpaceWarning.Bytes()

	horizon := now.Add(mc.LookAhead.Duration())
	for _, p := range pending.Programs {
		if p.IsStatus(models.StatusConflict) {
			report.Conflicts = append(report.Conflicts, p)
		}
		start := p.RecStartTime()
		if !p.IsStatus(models.StatusWillRecord) || start.Before(now) || start.After(horizon) {
			continue
		}
		report.Upcoming = append(report.Upcoming, p)
	}
	return report, nil
}

// logReport writes the report to the structured log.
func logReport(log *slog.Logger, r *monitorReport) {
	log.Info("backend checked",
		slog.Int("upcoming", len(r.Upcoming)),
		slog.Int("conflicts", len(r.Conflicts)),
		slog.String("free", format.Bytes(r.Free)),
	)
	for _, p := range r.Conflicts {
		log.Warn("recording conflict",
			slog.String("title", p.Title()),
			slog.String("channel", p.Callsign()),
			slog.Time("start", p.RecStartTime()),
		)
	}
	if r.LowSpace {
		log.Warn("free space below threshold",
			slog.String("free", format.Bytes(r.Free)),
			slog.String("threshold", cfg.Monitor.FreeSpaceWarning.String()),
		)
	}
}

func printReport(w io.Writer, r *monitorReport) error {
	fmt.Fprintf(w, "Free space: %s of %s (%s used)\n",
		format.Bytes(r.Free), format.Bytes(r.Total), format.Percentage(r.Total-r.Free, r.Total))
	if r.LowSpace {
		fmt.Fprintln(w, "WARNING: free space below threshold")
	}
	fmt.Fprintf(w, "Conflicts: %d\n", len(r.Conflicts))
	return printPending(w, &protocol.PendingRecordings{Programs: r.Upcoming}, r.Checked)
}

// reportStore keeps the latest report for the status API.
type reportStore struct {
	mu     sync.RWMutex
	latest *monitorReport
	err    error
	run    func(ctx context.Context) error
}

func (s *reportStore) set(r *monitorReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.latest, s.err = r, nil
}

func (s *reportStore) Latest() (*handlers.MonitorStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, false
	}
	return monitorStatus(s.latest), true
}

func (s *reportStore) Check(ctx context.Context) (*handlers.MonitorStatus, error) {
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	status, _ := s.Latest()
	return status, nil
}

// healthy fails while the last check failed.
func (s *reportStore) healthy(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func monitorStatus(r *monitorReport) *handlers.MonitorStatus {
	recordings := func(progs []*models.ProgramInfo) []handlers.ScheduledRecording {
		out := make([]handlers.ScheduledRecording, 0, len(progs))
		for _, p := range progs {
			out = append(out, handlers.ScheduledRecording{
				Title:    p.Title(),
				Subtitle: p.Subtitle(),
				Channel:  p.Callsign(),
				Start:    p.RecStartTime(),
				End:      p.RecEndTime(),
				Status:   enumName(p.Status()),
			})
		}
		return out
	}
	return &handlers.MonitorStatus{
		CheckedAt:  r.Checked,
		TotalBytes: r.Total,
		FreeBytes:  r.Free,
		Free:       format.Bytes(r.Free),
		LowSpace:   r.LowSpace,
		Conflicts:  recordings(r.Conflicts),
		Upcoming:   recordings(r.Upcoming),
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store := &reportStore{}
	check := func(ctx context.Context) error {
		log := observability.LoggerFromContext(ctx)
		b, err := dialBackend(ctx, cfg, log)
		if err != nil {
			err = fmt.Errorf("connecting to %s: %w", cfg.Backend.Address(), err)
			store.set(nil, err)
			return err
		}
		defer b.Close()

		report, err := checkBackend(ctx, b, cfg.Monitor, time.Now())
		store.set(report, err)
		if err != nil {
			return err
		}
		logReport(log, report)
		if monitorOnce {
			return printReport(cmd.OutOrStdout(), report)
		}
		return nil
	}

	sched := scheduler.New(logger)
	if monitorOnce {
		return sched.RunNow(ctx, "monitor", check)
	}
	store.run = func(ctx context.Context) error { return sched.RunNow(ctx, "monitor", check) }

	schedule := cfg.Monitor.Schedule
	if monitorSchedule != "" {
		schedule = monitorSchedule
	}
	if err := sched.Add("monitor", schedule, check); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverCfg := cfg.Server
	if monitorPort > 0 {
		serverCfg.Port = monitorPort
	}
	errCh := make(chan error, 1)
	if serverCfg.Enabled() {
		srv := newStatusServer(serverCfg, store)
		go func() { errCh <- srv.ListenAndServe(ctx) }()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	select {
	case <-ctx.Done():
		if serverCfg.Enabled() {
			return <-errCh
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func newStatusServer(c config.ServerConfig, store *reportStore) *apihttp.Server {
	srv := apihttp.NewServer(c, observability.WithComponent(logger, "http"), version.Version)
	handlers.NewHealthHandler(version.Version).
		WithCheck("monitor", store.healthy).
		Register(srv.API())
	handlers.NewStatusHandler(store).Register(srv.API())
	return srv
}
