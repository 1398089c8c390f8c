package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new tableread project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(projectName string) error {
	configPath := "tableread.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	contents := fmt.Sprintf(`project: %s
version: 1

provider:
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  timeout_seconds: 120
  max_retries: 3

memory:
  recent_scenes: 4
  max_digests: 10 # -1 for no cap
  min_question_importance: 0.4
  journey_window: 10

store:
  backend: sqlite
  dsn: tableread.db

# Leave empty to seat the full built-in panel, or pick reviewers by ID:
# reviewers:
#   - horror_fan
#   - script_reader
# roster_file: reviewers.yaml
`, projectName)

	if err := os.WriteFile(configPath, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	return nil
}
