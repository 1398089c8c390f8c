package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tableread/internal/review"
)

func queryReportCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the review report for a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryReport(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw report JSON")
	return cmd
}

func runQueryReport(cmd *cobra.Command, asJSON bool) error {
	ctx := context.Background()

	db, err := openQueryStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runID, err := resolveRun(ctx, db, cmd)
	if err != nil {
		return err
	}
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(run.ReportJSON) == 0 {
		return fmt.Errorf("run %s has not finished", runID)
	}

	if asJSON {
		fmt.Fprintln(os.Stdout, string(run.ReportJSON))
		return nil
	}

	var report review.Report
	if err := json.Unmarshal(run.ReportJSON, &report); err != nil {
		return fmt.Errorf("decoding report: %w", err)
	}
	fmt.Fprint(os.Stdout, report.Render())
	return nil
}
