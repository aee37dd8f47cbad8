package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/pkg/format"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/protocol"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// backend is the subset of protocol.Client the commands use.
type backend interface {
	Version() versioning.Version
	QueryRecordings(ctx context.Context, filter string) ([]*models.ProgramInfo, error)
	QueryPendingRecordings(ctx context.Context) (*protocol.PendingRecordings, error)
	QueryFreeSpace(ctx context.Context) ([]*models.DriveInfo, error)
	QueryFreeSpaceSummary(ctx context.Context) (*models.FreeSpaceSummary, error)
	QueryUptime(ctx context.Context) (*models.Uptime, error)
	QueryLoad(ctx context.Context) (*models.LoadAverage, error)
	QueryMemStats(ctx context.Context) (*models.MemoryStats, error)
	QueryGuideDataThrough(ctx context.Context) (*models.GuideDataThrough, error)
	Close() error
}

// dialBackend connects to the configured backend. Tests replace it.
var dialBackend = func(ctx context.Context, c *config.Config, log *slog.Logger) (backend, error) {
	opts := []protocol.ClientOption{
		protocol.WithVersion(versioning.Version(c.Backend.ProtocolVersion)),
		protocol.WithRetryRejected(c.Backend.RetryRejected),
		protocol.WithLogger(log),
		protocol.WithAnnounce(c.Backend.Announce),
		protocol.WithDialTimeout(c.Backend.Timeout),
		protocol.WithMaxPacketSize(int(c.Backend.MaxPacketSize.Bytes())),
	}
	if c.Backend.Hostname != "" {
		opts = append(opts, protocol.WithHostname(c.Backend.Hostname))
	}
	client, err := protocol.Dial(ctx, c.Backend.Address(), opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// withBackend runs fn against a fresh backend connection.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := dialBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Backend.Address(), err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Debug("closing backend connection", slog.String("error", cerr.Error()))
		}
	}()
	return fn(ctx, b)
}

var (
	recordingsFilter string
	recordingsLimit  int
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "List recordings on the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, b backend) error {
			progs, err := b.QueryRecordings(ctx, recordingsFilter)
			if err != nil {
				return err
			}
			if recordingsLimit > 0 && len(progs) > recordingsLimit {
				progs = progs[:recordingsLimit]
			}
			if outputFormat(cmd) == "json" {
				return writeRecordsJSON(cmd.OutOrStdout(), progs)
			}
			return printRecordings(cmd.OutOrStdout(), progs)
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List upcoming recordings and conflicts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, b backend) error {
			pending, err := b.QueryPendingRecordings(ctx)
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				return writeRecordsJSON(cmd.OutOrStdout(), pending.Programs)
			}
			return printPending(cmd.OutOrStdout(), pending, time.Now())
		})
	},
}

var freeSpaceCmd = &cobra.Command{
	Use:   "free-space",
	Short: "Show storage group usage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, b backend) error {
			drives, err := b.QueryFreeSpace(ctx)
			if err != nil {
				return err
			}
			summary, err := b.QueryFreeSpaceSummary(ctx)
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				return writeRecordsJSON(cmd.OutOrStdout(), drives)
			}
			return printFreeSpace(cmd.OutOrStdout(), drives, summary)
		})
	},
}

var uptimeCmd = &cobra.Command{
	Use:   "uptime",
	Short: "Show backend uptime, load, memory and guide data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, b backend) error {
			return printStatus(ctx, cmd.OutOrStdout(), b)
		})
	},
}

func init() {
	recordingsCmd.Flags().StringVar(&recordingsFilter, "filter", protocol.FilterPlay,
		"recording list filter (Play, Delete, Recording, Ascending, Descending)")
	recordingsCmd.Flags().IntVar(&recordingsLimit, "limit", 0, "show at most this many recordings")
	rootCmd.AddCommand(recordingsCmd, pendingCmd, freeSpaceCmd, uptimeCmd)
}

func printRecordings(w io.Writer, progs []*models.ProgramInfo) error {
	if len(progs) == 0 {
		fmt.Fprintln(w, "No recordings found")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "START\tCHANNEL\tTITLE\tSUBTITLE\tSIZE\tSTATUS")
	var total int64
	for _, p := range progs {
		total += p.FileSize()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			format.Timestamp(p.StartTime()),
			dash(p.Callsign()),
			format.Truncate(p.Title(), 40),
			dash(format.Truncate(p.Subtitle(), 40)),
			format.Bytes(p.FileSize()),
			enumName(p.Status()),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s recordings, %s\n", format.Number(int64(len(progs))), format.Bytes(total))
	return nil
}

func printPending(w io.Writer, pending *protocol.PendingRecordings, now time.Time) error {
	if pending.HasConflicts {
		fmt.Fprintln(w, "WARNING: the schedule has conflicts")
	}
	if len(pending.Programs) == 0 {
		fmt.Fprintln(w, "No pending recordings")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "START\tWHEN\tCHANNEL\tTITLE\tSTATUS")
	for _, p := range pending.Programs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			format.Timestamp(p.RecStartTime()),
			format.RelativeTime(p.RecStartTime(), now),
			dash(p.Callsign()),
			format.Truncate(p.Title(), 40),
			enumName(p.Status()),
		)
	}
	return tw.Flush()
}

func printFreeSpace(w io.Writer, drives []*models.DriveInfo, summary *models.FreeSpaceSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "HOST\tDIRECTORY\tTOTAL\tUSED\tFREE\tUSE%")
	for _, d := range drives {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Hostname(), d.Directory(),
			format.KiB(d.TotalSpace()), format.KiB(d.UsedSpace()), format.KiB(d.FreeSpace()),
			format.Percentage(d.UsedSpace(), d.TotalSpace()),
		)
	}
	if summary != nil {
		fmt.Fprintf(tw, "TOTAL\t\t%s\t%s\t%s\t%s\n",
			format.KiB(summary.TotalSpace()), format.KiB(summary.UsedSpace()), format.KiB(summary.FreeSpace()),
			format.Percentage(summary.UsedSpace(), summary.TotalSpace()),
		)
	}
	return tw.Flush()
}

func printStatus(ctx context.Context, w io.Writer, b backend) error {
	up, err := b.QueryUptime(ctx)
	if err != nil {
		return err
	}
	load, err := b.QueryLoad(ctx)
	if err != nil {
		return err
	}
	mem, err := b.QueryMemStats(ctx)
	if err != nil {
		return err
	}
	guide, err := b.QueryGuideDataThrough(ctx)
	if err != nil {
		return err
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Protocol:\t%s\n", b.Version())
	fmt.Fprintf(tw, "Uptime:\t%s\n", format.Uptime(up.Duration()))
	fmt.Fprintf(tw, "Load:\t%.2f %.2f %.2f\n", load.OneMinute(), load.FiveMinutes(), load.FifteenMinutes())
	fmt.Fprintf(tw, "RAM:\t%s MB free of %s MB\n",
		format.Number(int64(mem.FreeRAM())), format.Number(int64(mem.TotalRAM())))
	fmt.Fprintf(tw, "Swap:\t%s MB free of %s MB\n",
		format.Number(int64(mem.FreeVM())), format.Number(int64(mem.TotalVM())))
	fmt.Fprintf(tw, "Guide data:\t%s\n", format.Timestamp(guide.Time()))
	return tw.Flush()
}

// enumName returns the constant name of e, or "-" when absent.
func enumName(e *group.Enum) string {
	if e == nil {
		return "-"
	}
	return e.Name()
}
