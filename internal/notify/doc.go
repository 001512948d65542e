// Package notify implements engine.Notifier.
//
//   - Log: writes the rendered messages to a slog.Logger
//   - Telegram: sends them through the Telegram Bot API
//   - Multi: fans out to several notifiers
//
// Text comes from package render; nothing here decides wording.
package notify
