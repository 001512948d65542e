package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/kickoff/internal/config"
	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/notify"
	"github.com/roach88/kickoff/internal/store"
)

// setupLogging installs the process-wide logger. Debug level with
// --verbose.
func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the config file and environment, then applies the
// global path flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.JournalDir != "" {
		cfg.JournalDir = opts.JournalDir
	}
	return cfg, nil
}

// app is the wired engine with its resources.
type app struct {
	cfg      *config.Config
	store    *store.Store
	journal  *journal.Journal
	engine   *engine.Engine
	telegram *notify.Telegram // nil unless configured
	logger   *slog.Logger
}

// openApp opens the store and journal and builds the engine with the
// configured notifiers. Callers must Close the app.
func openApp(opts *RootOptions, engineOpts ...engine.Option) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	jr, err := journal.Open(cfg.JournalDir)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}

	a := &app{cfg: cfg, store: st, journal: jr, logger: logger}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:       cfg.Telegram.Token,
			AdminChatID: cfg.Telegram.AdminID,
			ChannelID:   cfg.Telegram.ChannelID,
			APIURL:      cfg.Telegram.APIURL,
			Timeout:     cfg.NotifyTimeout,
		})
		if err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to configure telegram", err)
		}
		a.telegram = tg
		notifiers = append(notifiers, tg)
	}

	base := []engine.Option{
		engine.WithNotifier(notifiers),
		engine.WithLogger(logger),
		engine.WithBulkDelay(cfg.BulkDelay),
		engine.WithNotifyTimeout(cfg.NotifyTimeout),
	}
	a.engine = engine.New(st, jr, append(base, engineOpts...)...)
	return a, nil
}

// Close waits for in-flight notifications, then closes the database.
func (a *app) Close() {
	a.engine.Wait()
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests).
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
