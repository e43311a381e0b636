package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/efund/unitperf/internal/ops"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ops HTTP server",
	Long: `Starts the operational HTTP server without the scheduler.

Endpoints:
  GET  /health           - database and cache health
  GET  /jobs             - scheduler job statistics (404 in this mode)
  POST /jobs/{name}/run  - trigger a job run (404 in this mode)

Example:
  go run ./cmd/unitperf serve
  go run ./cmd/unitperf serve --port 8089`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default: PORT env)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if servePort != "" {
		rt.cfg.Port = servePort
	}

	handler := ops.NewHandler(rt.db, rt.cache, nil, rt.logger)
	server := ops.New(rt.cfg, rt.logger, ops.NewRouter(handler, rt.logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
