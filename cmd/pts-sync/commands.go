package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/services"
)

func newValidateCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Preview what a sync would do without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				v, err := rt.svc.Validate(ctx)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

type syncFlags struct {
	projects     []string
	buildings    []string
	noAutoCreate bool
	skipRawData  bool
	skipLogs     bool
	progress     bool
}

func (f *syncFlags) options() services.Options {
	opts := services.DefaultOptions()
	opts.AutoCreateBuildings = !f.noAutoCreate
	opts.SyncRawData = !f.skipRawData
	opts.SyncLogs = !f.skipLogs
	opts.SelectedProjects = f.projects
	opts.SelectedBuildings = f.buildings
	return opts
}

func newSyncCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	var f syncFlags
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import parts and production logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.skipRawData && f.skipLogs {
				return withCode(exitUsage, fmt.Errorf("--skip-raw-data and --skip-logs leave nothing to do"))
			}
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				var onProgress services.ProgressFunc
				if f.progress {
					stderr := cmd.ErrOrStderr()
					onProgress = func(p services.Progress) {
						fmt.Fprintf(stderr, "[%s] %d/%d %s\n", p.Phase, p.Current, p.Total, p.Message)
					}
				}
				result, err := rt.svc.FullSync(ctx, g.triggeredBy(), f.options(), onProgress)
				if result != nil {
					if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
						return werr
					}
				}
				if err != nil {
					return classify(err)
				}
				if !result.Success {
					return withCode(exitPartial, fmt.Errorf("sync finished with %d row errors", result.ErrorCount()))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&f.projects, "project", nil, "Only sync these project numbers")
	cmd.Flags().StringSliceVar(&f.buildings, "building", nil, "Only sync these buildings ({project}-{designation})")
	cmd.Flags().BoolVar(&f.noAutoCreate, "no-auto-create", false, "Skip rows whose building does not exist")
	cmd.Flags().BoolVar(&f.skipRawData, "skip-raw-data", false, "Do not import parts")
	cmd.Flags().BoolVar(&f.skipLogs, "skip-logs", false, "Do not import production logs")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "Print progress to stderr")
	return cmd
}

func newStatsCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	var projects []string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show synced and total counts per project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				stats, err := rt.svc.GetStats(ctx, projects...)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().StringSliceVar(&projects, "project", nil, "Project numbers (default all)")
	return cmd
}

type historyEntry struct {
	SyncBatchID  string         `json:"syncBatchId"`
	Status       syncrun.Status `json:"status"`
	PartsCreated int            `json:"partsCreated"`
	PartsUpdated int            `json:"partsUpdated"`
	LogsCreated  int            `json:"logsCreated"`
	LogsUpdated  int            `json:"logsUpdated"`
	SkippedCount int            `json:"skippedCount"`
	ErrorCount   int            `json:"errorCount"`
	FatalError   *string        `json:"fatalError,omitempty"`
	DurationMs   int64          `json:"duration"`
	StartedAt    string         `json:"startedAt"`
}

func newHistoryCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	var limit int
	var status string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := &syncrun.FindParams{Limit: limit}
			switch s := syncrun.Status(status); s {
			case "":
			case syncrun.StatusSuccess, syncrun.StatusPartial, syncrun.StatusFailed:
				params.Status = &s
			default:
				return withCode(exitUsage, fmt.Errorf("invalid --status %q", status))
			}
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				runs, err := rt.runs.List(ctx, params)
				if err != nil {
					return classify(err)
				}
				out := make([]historyEntry, 0, len(runs))
				for _, r := range runs {
					out = append(out, historyEntry{
						SyncBatchID:  r.SyncBatchID,
						Status:       r.Status,
						PartsCreated: r.PartsCreated,
						PartsUpdated: r.PartsUpdated,
						LogsCreated:  r.LogsCreated,
						LogsUpdated:  r.LogsUpdated,
						SkippedCount: r.SkippedCount,
						ErrorCount:   r.ErrorCount,
						FatalError:   r.FatalError,
						DurationMs:   r.DurationMs,
						StartedAt:    r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
					})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success|partial|failed)")
	return cmd
}

func newMigrateCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				if err := rt.migrate(ctx); err != nil {
					return withCode(exitDB, err)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "migrated"})
			})
		},
	}
}
