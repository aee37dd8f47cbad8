package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/pkg/format"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/mythdb"
)

// openDatabase connects to the configured database. Tests replace it.
var openDatabase = func(c config.DatabaseConfig, log *slog.Logger) (*mythdb.DB, error) {
	return mythdb.Open(c, log, nil)
}

// withDatabase runs fn against the configured database.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, db *mythdb.DB) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDatabase(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	logger.Debug("database opened", slog.String("schema", schema.String()))
	return fn(ctx, db)
}

var (
	rulesInactive bool
	rulesTitle    string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List recording rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *mythdb.DB) error {
			repo, err := mythdb.RecordingRules(db)
			if err != nil {
				return err
			}

			var conds []string
			var args []any
			if !rulesInactive {
				conds = append(conds, "(`inactive` IS NULL OR `inactive` = 0)")
			}
			if rulesTitle != "" {
				conds = append(conds, "`title` LIKE ?")
				args = append(args, "%"+rulesTitle+"%")
			}
			rules, err := repo.List(ctx, strings.Join(conds, " AND "), args...)
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				return writeRecordsJSON(cmd.OutOrStdout(), rules)
			}
			return printRules(cmd.OutOrStdout(), rules)
		})
	},
}

var (
	jobsHost    string
	jobsPending bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the job queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *mythdb.DB) error {
			repo, err := mythdb.Jobs(db)
			if err != nil {
				return err
			}

			var where string
			var args []any
			if jobsHost != "" {
				where = "`hostname` = ?"
				args = append(args, jobsHost)
			}
			jobs, err := repo.List(ctx, where, args...)
			if err != nil {
				return err
			}
			if jobsPending {
				open := jobs[:0]
				for _, j := range jobs {
					if !j.IsDone() {
						open = append(open, j)
					}
				}
				jobs = open
			}
			if outputFormat(cmd) == "json" {
				return writeRecordsJSON(cmd.OutOrStdout(), jobs)
			}
			return printJobs(cmd.OutOrStdout(), jobs)
		})
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesInactive, "inactive", false, "include inactive rules")
	rulesCmd.Flags().StringVar(&rulesTitle, "title", "", "only rules whose title contains this text")
	jobsCmd.Flags().StringVar(&jobsHost, "host", "", "only jobs assigned to this host")
	jobsCmd.Flags().BoolVar(&jobsPending, "pending", false, "hide finished jobs")
	rootCmd.AddCommand(rulesCmd, jobsCmd)
}

func printRules(w io.Writer, rules []*models.RecordingRule) error {
	if len(rules) == 0 {
		fmt.Fprintln(w, "No recording rules found")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tSTATION\tPRIORITY\tGROUP\tNEXT")
	for _, r := range rules {
		title := format.Truncate(r.Title(), 40)
		if r.Inactive() {
			title += " (inactive)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID(), enumName(r.Type()), title, dash(r.Station()),
			r.RecPriority(), r.RecGroup(), format.Timestamp(r.NextRecord()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s rules\n", format.Number(int64(len(rules))))
	return nil
}

func printJobs(w io.Writer, jobs []*models.Job) error {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs queued")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tHOST\tCHANNEL\tSTART\tCOMMENT")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID(), enumName(j.Type()), enumName(j.Status()), dash(j.Hostname()),
			j.ChannelID(), format.Timestamp(j.StartTime()), dash(format.Truncate(j.Comment(), 40)))
	}
	return tw.Flush()
}
