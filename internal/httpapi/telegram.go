package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"html"
	"net/http"
	"strconv"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/notify"
	"github.com/roach88/kickoff/internal/render"
	"github.com/roach88/kickoff/internal/submission"
)

// SecretTokenHeader carries the secret configured with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleTelegram processes inline button presses on moderator prompts and
// the /approve and /reject chat commands.
//
// Telegram retries any non-2xx answer, so every well-formed update is
// acknowledged with 200 and the outcome is reported to the moderator
// through the callback answer instead.
func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	if secret := s.opts.WebhookSecret; secret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretTokenHeader)), []byte(secret)) != 1 {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "bad secret token", "")
		return
	}

	var upd notify.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxWebhookBytes)).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "malformed update", "")
		return
	}

	switch {
	case upd.CallbackQuery != nil:
		s.handleCallback(r.Context(), upd.CallbackQuery)
	case upd.Message != nil:
		s.handleCommand(r.Context(), upd.Message)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCallback(ctx context.Context, cq *notify.CallbackQuery) {
	chat := s.opts.Chat

	if cq.From.ID != s.opts.AdminUserID {
		s.logger.Warn("callback from non-moderator", "user", cq.From.ID)
		s.answer(ctx, cq.ID, "❌ You are not allowed to do this.", true)
		return
	}

	action, id, ok := notify.ParseCallback(cq.Data)
	if !ok {
		s.answer(ctx, cq.ID, "❌ Unknown action.", true)
		return
	}

	if action == notify.ActionDetails {
		sub, err := s.engine.Get(ctx, id)
		if err != nil {
			s.answer(ctx, cq.ID, "❌ Submission #"+id+" not found.", true)
			return
		}
		if err := chat.SendDetails(ctx, sub); err != nil {
			s.logger.Error("details not sent", "submission", id, "error", err)
		}
		s.answer(ctx, cq.ID, "", false)
		return
	}

	decision := submission.DecisionApprove
	if action == notify.ActionReject {
		decision = submission.DecisionReject
	}

	out, err := s.engine.Decide(ctx, id, decision)
	if err != nil {
		if engine.IsBenign(err) {
			s.answer(ctx, cq.ID, "❌ Submission #"+id+" is already decided or does not exist.", true)
		} else {
			s.logger.Error("callback decision failed", "submission", id, "error", err)
			s.answer(ctx, cq.ID, "❌ "+err.Error(), true)
		}
		return
	}

	if m := cq.Message; m != nil {
		text := html.EscapeString(m.Text) + render.DecisionStamp(out.Submission.Status, *out.Submission.DecidedAt)
		if err := chat.MarkDecided(ctx, strconv.FormatInt(m.Chat.ID, 10), m.MessageID, text); err != nil {
			s.logger.Warn("prompt not updated", "submission", id, "error", err)
		}
	}

	if decision == submission.DecisionApprove {
		s.answer(ctx, cq.ID, "✅ Approved and published.", false)
	} else {
		s.answer(ctx, cq.ID, "❌ Rejected.", false)
	}
}

func (s *Server) handleCommand(ctx context.Context, m *notify.Message) {
	action, id, ok := notify.ParseCommand(m.Text)
	if !ok {
		return
	}
	chatID := strconv.FormatInt(m.Chat.ID, 10)

	if m.From == nil || m.From.ID != s.opts.AdminUserID {
		s.reply(ctx, chatID, "❌ You are not allowed to run this command.")
		return
	}
	if id == "" {
		s.reply(ctx, chatID, "❌ Give the submission id. Example: /"+action+" abc123")
		return
	}

	decision := submission.DecisionApprove
	if action == notify.ActionReject {
		decision = submission.DecisionReject
	}

	safeID := html.EscapeString(id)
	if _, err := s.engine.Decide(ctx, id, decision); err != nil {
		if engine.IsBenign(err) {
			s.reply(ctx, chatID, "❌ Submission #"+safeID+" is not pending.")
		} else {
			s.logger.Error("command decision failed", "submission", id, "error", err)
			s.reply(ctx, chatID, "❌ "+html.EscapeString(err.Error()))
		}
		return
	}

	if decision == submission.DecisionApprove {
		s.reply(ctx, chatID, "✅ Submission #"+safeID+" approved and published.")
	} else {
		s.reply(ctx, chatID, "❌ Submission #"+safeID+" rejected.")
	}
}

func (s *Server) reply(ctx context.Context, chatID, text string) {
	if err := s.opts.Chat.Reply(ctx, chatID, text); err != nil {
		s.logger.Warn("reply not sent", "chat", chatID, "error", err)
	}
}

func (s *Server) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := s.opts.Chat.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		s.logger.Warn("callback not answered", "callback", callbackID, "error", err)
	}
}
