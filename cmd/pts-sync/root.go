package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	workbook string
	userID   uint
}

func (g *globalOptions) triggeredBy() *uint {
	if g.userID == 0 {
		return nil
	}
	id := g.userID
	return &id
}

func newRootCmd(open runtimeFactory) *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "pts-sync",
		Short:         "Reconcile production data from the PTS spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.workbook, "workbook", "", "Read rows from this .xlsx file instead of Google Sheets")
	cmd.PersistentFlags().UintVar(&g.userID, "user", 0, "User id recorded as the trigger of the run")

	cmd.AddCommand(
		newValidateCmd(g, open),
		newSyncCmd(g, open),
		newRollbackCmd(g, open),
		newStatsCmd(g, open),
		newHistoryCmd(g, open),
		newMigrateCmd(g, open),
	)
	return cmd
}

// withRuntime opens the runtime for one command and closes it afterwards.
func withRuntime(cmd *cobra.Command, g *globalOptions, open runtimeFactory, fn func(context.Context, *runtime) error) error {
	ctx, rt, err := open(cmd.Context(), g)
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(ctx, rt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return withCode(exitFailure, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

func Execute() {
	cmd := newRootCmd(openRuntime)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}
