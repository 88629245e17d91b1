package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	analystmcp "github.com/PabloGalante/analyst-agent/internal/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the analyst MCP (Model Context Protocol) server on stdio.

The server exposes the interview as tools an AI assistant can call:
start_session, send_message, get_session, reset_session, get_report.
Logs go to stderr so stdout carries only the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		svcs, err := buildServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.close()

		srv := analystmcp.NewServer(svcs.conversation, svcs.reports, version)
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
