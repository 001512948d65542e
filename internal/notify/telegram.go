package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/kickoff/internal/render"
	"github.com/roach88/kickoff/internal/submission"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Callback actions carried by the moderator prompt buttons.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDetails = "details"
)

// CallbackData encodes a button payload as "<action>_<id>".
func CallbackData(action, id string) string {
	return action + "_" + id
}

// ParseCallback splits button data produced by CallbackData.
func ParseCallback(data string) (action, id string, ok bool) {
	action, id, ok = strings.Cut(data, "_")
	if !ok || id == "" {
		return "", "", false
	}
	switch action {
	case ActionApprove, ActionReject, ActionDetails:
		return action, id, true
	}
	return "", "", false
}

// ParseCommand splits a chat command such as "/approve abc123" or
// "/reject@kickoff_bot abc123". id is empty when the argument is missing;
// ok is false for text that is not an approve or reject command.
func ParseCommand(text string) (action, id string, ok bool) {
	parts := strings.Fields(text)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return "", "", false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(parts[0], "/"), "@")
	switch name {
	case ActionApprove, ActionReject:
	default:
		return "", "", false
	}
	if len(parts) > 1 {
		id = parts[1]
	}
	return name, id, true
}

// TelegramConfig configures a Telegram notifier.
type TelegramConfig struct {
	Token string

	// AdminChatID receives moderator prompts.
	AdminChatID string

	// ChannelID receives approved submissions. Numeric id or @name.
	ChannelID string

	// APIURL overrides DefaultAPIURL (tests point it at httptest).
	APIURL string

	// Timeout bounds each API call when Client is nil. Default 30s.
	Timeout time.Duration

	Client *http.Client
}

// Telegram talks to the Bot API over HTTPS.
//
// Thread-safety: safe for concurrent use; http.Client is.
type Telegram struct {
	token   string
	admin   string
	channel string
	baseURL string
	http    *http.Client
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if cfg.AdminChatID == "" {
		return nil, errors.New("telegram: admin chat id is required")
	}
	if cfg.ChannelID == "" {
		return nil, errors.New("telegram: channel id is required")
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := cfg.APIURL
	if base == "" {
		base = DefaultAPIURL
	}

	return &Telegram{
		token:   cfg.Token,
		admin:   cfg.AdminChatID,
		channel: cfg.ChannelID,
		baseURL: strings.TrimRight(base, "/"),
		http:    client,
	}, nil
}

// InlineButton is one button of an inline keyboard.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard is the reply_markup of a message with buttons.
type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// ModerationKeyboard returns the approve, reject and details buttons for id.
func ModerationKeyboard(id string) *InlineKeyboard {
	return &InlineKeyboard{InlineKeyboard: [][]InlineButton{
		{
			{Text: "✅ Approve", CallbackData: CallbackData(ActionApprove, id)},
			{Text: "❌ Reject", CallbackData: CallbackData(ActionReject, id)},
		},
		{
			{Text: "📊 Details", CallbackData: CallbackData(ActionDetails, id)},
		},
	}}
}

type sendMessageRequest struct {
	ChatID                string          `json:"chat_id"`
	Text                  string          `json:"text"`
	ParseMode             string          `json:"parse_mode"`
	DisableWebPagePreview bool            `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboard `json:"reply_markup,omitempty"`
}

type editMessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

// NotifyModerators sends the review prompt with moderation buttons.
func (t *Telegram) NotifyModerators(ctx context.Context, sub submission.Submission) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      t.admin,
		Text:        render.ModeratorPrompt(sub),
		ParseMode:   "HTML",
		ReplyMarkup: ModerationKeyboard(sub.ID),
	})
}

// PublishDecision posts an approved submission to the channel.
func (t *Telegram) PublishDecision(ctx context.Context, pub submission.Publication) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                t.channel,
		Text:                  render.PublicMessage(pub),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
}

// SendDetails sends the full record of sub to the moderator chat.
func (t *Telegram) SendDetails(ctx context.Context, sub submission.Submission) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:    t.admin,
		Text:      render.Details(sub),
		ParseMode: "HTML",
	})
}

// MarkDecided replaces a moderator prompt with its decided version,
// which also removes its buttons.
func (t *Telegram) MarkDecided(ctx context.Context, chatID string, messageID int64, text string) error {
	return t.call(ctx, "editMessageText", editMessageRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: "HTML",
	})
}

// Reply sends a plain HTML message to chatID.
func (t *Telegram) Reply(ctx context.Context, chatID, text string) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
}

// AnswerCallback acknowledges a button press.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return t.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.StatusCode, e.Description)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// call POSTs body as JSON to the given Bot API method.
func (t *Telegram) call(ctx context.Context, method string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	endpoint := t.baseURL + "/bot" + t.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram %s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode != http.StatusOK || !ar.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: ar.Description}
	}
	return nil
}

// Update is the subset of a Bot API update kickoff handles.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// CallbackQuery is a moderator pressing an inline button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
}

// User identifies who pressed a button.
type User struct {
	ID int64 `json:"id"`
}

// Message is a chat message: a moderator command, or the prompt a
// button belongs to.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Chat identifies a chat.
type Chat struct {
	ID int64 `json:"id"`
}
