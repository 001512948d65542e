// Package config loads kickoff settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables, command-line flags (applied by the cli package).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// JournalDir holds one backup file per submission.
	JournalDir string `yaml:"journal_dir"`

	// Listen is the HTTP listen address of "serve".
	Listen string `yaml:"listen"`

	// Retention is how long decided submissions are kept.
	Retention time.Duration `yaml:"retention"`

	// CleanupOnStart runs retention cleanup when "serve" starts.
	CleanupOnStart bool `yaml:"cleanup_on_start"`

	// BulkDelay spaces bulk approvals.
	BulkDelay time.Duration `yaml:"bulk_delay"`

	// BulkRejectAge is the default age for bulk rejection.
	BulkRejectAge time.Duration `yaml:"bulk_reject_age"`

	// NotifyTimeout bounds each chat notification.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`

	// AdminToken, when set, is required as a bearer token on every HTTP
	// route except the webhook, health and bot update endpoints.
	AdminToken string `yaml:"admin_token"`

	// CORSOrigins lists browser origins allowed to call the admin API.
	CORSOrigins []string `yaml:"cors_origins"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Telegram Telegram `yaml:"telegram"`
}

// Telegram holds chat credentials. All three ids empty disables Telegram.
type Telegram struct {
	Token     string `yaml:"token"`
	AdminID   string `yaml:"admin_id"`
	ChannelID string `yaml:"channel_id"`

	// APIURL overrides the Bot API endpoint.
	APIURL string `yaml:"api_url"`

	// WebhookSecret, when set, must match the secret header on
	// incoming bot updates.
	WebhookSecret string `yaml:"webhook_secret"`
}

// Enabled reports whether any Telegram credential is set.
func (t Telegram) Enabled() bool {
	return t.Token != "" || t.AdminID != "" || t.ChannelID != ""
}

// Environment variables read by ApplyEnv.
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvAdminID       = "ADMIN_ID"
	EnvChannelID     = "CHANNEL_ID"
	EnvWebhookSecret = "TELEGRAM_WEBHOOK_SECRET"
	EnvDatabase      = "KICKOFF_DB"
	EnvJournal       = "KICKOFF_JOURNAL"
	EnvListen        = "KICKOFF_LISTEN"
	EnvRetention     = "KICKOFF_RETENTION"
	EnvAdminToken    = "KICKOFF_ADMIN_TOKEN"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:        "applications.db",
		JournalDir:      "backups",
		Listen:          ":8000",
		Retention:       30 * 24 * time.Hour,
		CleanupOnStart:  true,
		BulkDelay:       500 * time.Millisecond,
		BulkRejectAge:   7 * 24 * time.Hour,
		NotifyTimeout:   30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are errors so typos do not
// silently fall back to defaults.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvBotToken, &c.Telegram.Token)
	str(EnvAdminID, &c.Telegram.AdminID)
	str(EnvChannelID, &c.Telegram.ChannelID)
	str(EnvWebhookSecret, &c.Telegram.WebhookSecret)
	str(EnvDatabase, &c.Database)
	str(EnvJournal, &c.JournalDir)
	str(EnvListen, &c.Listen)
	str(EnvAdminToken, &c.AdminToken)

	if v, ok := lookup(EnvRetention); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetention, err)
		}
		c.Retention = d
	}
	return nil
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.JournalDir == "" {
		errs = append(errs, errors.New("journal_dir is required"))
	}
	if c.Retention <= 0 {
		errs = append(errs, fmt.Errorf("retention must be positive, got %s", c.Retention))
	}
	if c.BulkDelay < 0 {
		errs = append(errs, fmt.Errorf("bulk_delay must not be negative, got %s", c.BulkDelay))
	}
	if c.BulkRejectAge <= 0 {
		errs = append(errs, fmt.Errorf("bulk_reject_age must be positive, got %s", c.BulkRejectAge))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("notify_timeout must be positive, got %s", c.NotifyTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout))
	}

	if t := c.Telegram; t.Enabled() {
		if t.Token == "" || t.AdminID == "" || t.ChannelID == "" {
			errs = append(errs, errors.New("telegram: token, admin_id and channel_id must be set together"))
		}
		if t.AdminID != "" {
			if _, err := strconv.ParseInt(t.AdminID, 10, 64); err != nil {
				errs = append(errs, fmt.Errorf("telegram: admin_id must be numeric, got %q", t.AdminID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// AdminUserID returns the numeric moderator id, or 0 when Telegram is off.
func (c *Config) AdminUserID() int64 {
	id, _ := strconv.ParseInt(c.Telegram.AdminID, 10, 64)
	return id
}
