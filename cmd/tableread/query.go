package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"tableread/internal/config"
	"tableread/internal/store"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect saved table reads",
	}
	cmd.PersistentFlags().String("config", "tableread.yaml", "Project config file")
	cmd.PersistentFlags().String("run", "", "Run ID (defaults to the latest run)")
	cmd.AddCommand(queryRunsCmd())
	cmd.AddCommand(queryReportCmd())
	cmd.AddCommand(queryEntityCmd())
	cmd.AddCommand(queryQuestionsCmd())
	cmd.AddCommand(queryDigestCmd())
	cmd.AddCommand(queryEmotionsCmd())
	return cmd
}

func openQueryStore(ctx context.Context, cmd *cobra.Command) (store.Store, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	return openDB(ctx, cfg)
}

// resolveRun maps an empty --run flag to the most recent run in the store.
func resolveRun(ctx context.Context, db store.Store, cmd *cobra.Command) (string, error) {
	runID, _ := cmd.Flags().GetString("run")
	if strings.TrimSpace(runID) != "" {
		return runID, nil
	}
	run, err := db.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func joinValues(values []string) string {
	return strings.Join(values, ", ")
}
