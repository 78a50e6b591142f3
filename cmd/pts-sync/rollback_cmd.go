package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type rollbackSummary struct {
	Mode   string `json:"mode"`
	Result any    `json:"result"`
}

func newRollbackCmd(g *globalOptions, open runtimeFactory) *cobra.Command {
	var apply, yes bool
	cmd := &cobra.Command{
		Use:   "rollback <project-number>",
		Short: "Delete the records a project received from the spreadsheet (default is dry-run)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectNumber := strings.TrimSpace(args[0])
			if projectNumber == "" {
				return withCode(exitUsage, fmt.Errorf("project number is required"))
			}
			if apply && !yes {
				return withCode(exitSafetyNet, fmt.Errorf("refusing to rollback without --yes"))
			}
			return withRuntime(cmd, g, open, func(ctx context.Context, rt *runtime) error {
				if !apply {
					preview, err := rt.svc.PreviewRollback(ctx, projectNumber)
					if err != nil {
						return classify(err)
					}
					return writeJSON(cmd.OutOrStdout(), rollbackSummary{Mode: "dry_run", Result: preview})
				}
				result, err := rt.svc.RollbackProject(ctx, projectNumber)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd.OutOrStdout(), rollbackSummary{Mode: "applied", Result: result})
			})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the rollback")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm destructive rollback")
	return cmd
}
