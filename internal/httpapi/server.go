package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/submission"
)

// MaxWebhookBytes caps an incoming webhook body.
const MaxWebhookBytes = 1 << 20

// ChatClient is the moderator chat used to answer inline buttons.
// Implemented by *notify.Telegram.
type ChatClient interface {
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	MarkDecided(ctx context.Context, chatID string, messageID int64, text string) error
	SendDetails(ctx context.Context, sub submission.Submission) error
	Reply(ctx context.Context, chatID, text string) error
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger

	// Version is reported by GET /.
	Version string

	// AdminToken guards admin routes. Empty disables the check.
	AdminToken string

	// Retention is the default window of POST /maintenance/cleanup.
	Retention time.Duration

	// BulkRejectAge is the default age of POST /bulk/reject.
	BulkRejectAge time.Duration

	// Chat enables POST /telegram. AdminUserID is the only user whose
	// button presses and commands are honored; WebhookSecret, when set, must match the
	// secret token header.
	Chat          ChatClient
	AdminUserID   int64
	WebhookSecret string

	// AllowedOrigins enables CORS for browser admin clients. Empty means
	// no CORS headers.
	AllowedOrigins []string

	// Now overrides the wall clock for response timestamps.
	Now func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	engine  *engine.Engine
	logger  *slog.Logger
	opts    Options
	now     func() time.Time
	started time.Time
}

// New creates a Server over e.
func New(e *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retention <= 0 {
		opts.Retention = engine.DefaultRetention
	}
	if opts.BulkRejectAge <= 0 {
		opts.BulkRejectAge = 7 * 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		engine:  e,
		logger:  opts.Logger,
		opts:    opts,
		now:     now,
		started: now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Post("/webhook", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	if s.opts.Chat != nil {
		r.Post("/telegram", s.handleTelegram)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireToken(s.opts.AdminToken))

		r.Get("/", s.handleRoot)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleGet)
			r.Post("/{id}/approve", s.handleDecide(submission.DecisionApprove))
			r.Post("/{id}/reject", s.handleDecide(submission.DecisionReject))
		})

		r.Post("/bulk/approve", s.handleBulkApprove)
		r.Post("/bulk/reject", s.handleBulkReject)
		r.Post("/maintenance/cleanup", s.handleCleanup)
		r.Post("/maintenance/restore", s.handleRestore)
		r.Get("/export", s.handleExport)
	})

	return r
}
