package main

import (
	"context"

	"github.com/spf13/cobra"

	"tableread/internal/config"
	"tableread/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "tableread.yaml", "Project config file")
	return cmd
}

func runServe(configPath string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	server := mcp.NewServer(db, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
