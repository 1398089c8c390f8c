package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func queryRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List saved table reads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryRuns(cmd)
		},
	}
}

func runQueryRuns(cmd *cobra.Command) error {
	ctx := context.Background()

	db, err := openQueryStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs found.")
		return nil
	}

	for _, run := range runs {
		status := "finished"
		if run.FinishedAt.IsZero() {
			status = "unfinished"
		}
		fmt.Fprintf(os.Stdout, "%s  %q  %d scenes  [%s]  %s  %s\n",
			run.ID, run.Title, run.SceneCount, joinValues(run.Reviewers),
			run.StartedAt.Format("2006-01-02 15:04"), status)
	}
	return nil
}
