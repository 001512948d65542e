package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kickoff/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// Ready, if set, receives the bound address once the listener is up
	// (for testing with ":0").
	Ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and admin HTTP server",
		Long: `Run the HTTP server that receives form webhooks and serves the
admin endpoints.

On start, decided submissions older than the retention window are
removed (disable with cleanup_on_start: false). The server stops
gracefully on SIGINT or SIGTERM, waiting for in-flight notifications.

Example:
  kickoff serve --listen :8000
  kickoff serve --config kickoff.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd.Context()))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	if cfg.CleanupOnStart {
		n, err := a.engine.Cleanup(ctx, cfg.Retention)
		if err != nil {
			// Startup cleanup is housekeeping; serving matters more.
			slog.Error("startup cleanup failed", "error", err)
		} else {
			slog.Info("startup cleanup finished", "deleted", n, "retention", cfg.Retention)
		}
	}

	apiOpts := httpapi.Options{
		Logger:         a.logger,
		Version:        Version,
		AdminToken:     cfg.AdminToken,
		Retention:      cfg.Retention,
		BulkRejectAge:  cfg.BulkRejectAge,
		AdminUserID:    cfg.AdminUserID(),
		WebhookSecret:  cfg.Telegram.WebhookSecret,
		AllowedOrigins: cfg.CORSOrigins,
	}
	if a.telegram != nil {
		apiOpts.Chat = a.telegram
	}
	if cfg.AdminToken == "" {
		slog.Warn("admin routes are unauthenticated; set admin_token to protect them")
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           httpapi.New(a.engine, apiOpts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	slog.Info("server started", "addr", addr, "db", cfg.Database, "journal", cfg.JournalDir,
		"telegram", a.telegram != nil)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-serveErr:
		return WrapExitError(ExitFailure, "server error", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
