package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/audit"
	"github.com/fentz26/allot/internal/controlplane"
	"github.com/fentz26/allot/internal/mcp"
	"github.com/fentz26/allot/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the allocation tools over MCP (stdio)",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
allocate_resources, list_runs and get_run tools. Runs are recorded in the
same database the daemon uses.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := allocator.NewEngine(&cfg.Engine, logger.Named("engine"))
	service := controlplane.NewService(engine, s, audit.NewPDRWriter(s), logger.Named("service"))

	logger.Info("serving MCP over stdio", zap.String("db", cfg.DBPath))
	return mcp.NewServer(service, version).Run(cmd.Context())
}
