package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blograg/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the query, streaming, related and status endpoints over HTTP.
With auto-indexing enabled the server reindexes changed posts shortly
after startup, so a fresh deployment answers from current content.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.engine, a.indexer, a.related, a.queryOptions(), logger)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	if a.cfg.Server.AutoIndex {
		go autoIndex(ctx, a)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// autoIndex runs one reindex pass after the configured delay. The delay
// lets the content database settle on deployments that restore it on boot.
func autoIndex(ctx context.Context, a *app) {
	wait := a.cfg.Server.AutoIndexWait
	if wait <= 0 {
		wait = time.Second
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(wait):
	}

	logger.Info("auto-index starting")
	summary, err := a.indexer.ReindexAll(ctx, false, nil)
	if err != nil {
		logger.Error("auto-index failed", "error", err)
		return
	}
	logger.Info("auto-index finished",
		"indexed", summary.Indexed, "skipped", summary.Skipped, "failed", summary.Failed)
}
