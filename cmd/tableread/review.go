package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tableread/internal/config"
	"tableread/internal/memory"
	"tableread/internal/review"
	"tableread/internal/screenplay"
	"tableread/internal/store"
)

func reviewCmd() *cobra.Command {
	var configPath string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "review <script.fountain>",
		Short: "Run the reviewer panel over a screenplay, scene by scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(args[0], configPath, verbose)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "tableread.yaml", "Project config file")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log every scene and ingestion warning")
	return cmd
}

func runReview(scriptPath, configPath string, verbose bool) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}

	log, err := buildLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	script, err := screenplay.ParseFile(scriptPath)
	if err != nil {
		return err
	}

	roster, err := review.SelectRoster(cfg)
	if err != nil {
		return err
	}

	apiKey := os.Getenv(cfg.Provider.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("%s is not set", cfg.Provider.APIKeyEnv)
	}
	caller := review.NewOpenAICaller(apiKey, cfg.Provider.Model,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second, cfg.Provider.MaxRetries)

	engine := memory.NewEngine(memory.Options{
		BufferSize:            cfg.Memory.RecentScenes,
		MaxDigests:            cfg.Memory.MaxDigests,
		MinQuestionImportance: cfg.Memory.MinQuestionImportance,
		JourneyWindow:         cfg.Memory.JourneyWindow,
	}, len(script.Scenes), log)

	runner := review.NewRunner(engine, caller, roster, log)

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	report, err := runner.Run(ctx, script)
	if err != nil {
		return err
	}

	if err := db.CreateRun(ctx, store.RunRecord{
		ID:         report.RunID,
		Title:      report.Title,
		Reviewers:  report.Reviewers,
		SceneCount: len(script.Scenes),
		StartedAt:  report.StartedAt,
	}); err != nil {
		return err
	}
	if err := store.Snapshot(ctx, db, engine, report); err != nil {
		return err
	}

	fmt.Fprint(os.Stdout, report.Render())
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
