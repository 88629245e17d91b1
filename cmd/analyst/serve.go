package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/analyst-agent/internal/adapters/http"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svcs, err := buildServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.close()

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           httpadapter.NewServer(svcs.conversation, svcs.reports),
			ReadHeaderTimeout: 10 * time.Second,
		}

		log := observability.Logger()
		errCh := make(chan error, 1)
		go func() {
			log.Info("analyst api listening", "port", cfg.Port, "mode", cfg.Mode, "llm", cfg.LLM.Provider)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
