package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpjson"
	"NewsDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxMessageLen  = 4096
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	http     *httpjson.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig, client *http.Client) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		http:     httpjson.NewClient(client, 5*time.Second),
	}
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts the subject and the plain-text digest, truncated to Telegram's limit.
// The returned id is the Telegram message id.
func (n *Notifier) Send(ctx context.Context, msg domain.Message) (string, error) {
	if n.botToken == "" || n.chatID == "" {
		return "", fmt.Errorf("telegram notifier misconfigured")
	}

	text := msg.Subject + "\n\n" + msg.Text
	if runes := []rune(text); len(runes) > maxMessageLen {
		text = string(runes[:maxMessageLen-1]) + "…"
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := map[string]string{
		"chat_id":                  n.chatID,
		"text":                     text,
		"disable_web_page_preview": "true",
	}

	var body sendMessageResponse
	if err := n.http.PostForm(ctx, endpoint, form, &body); err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) {
			_ = json.Unmarshal(statusErr.Body, &body)
			if body.Description != "" {
				return "", fmt.Errorf("telegram error: %s: %s", statusErr.Status, body.Description)
			}
			return "", fmt.Errorf("telegram error: %s", statusErr.Status)
		}
		return "", fmt.Errorf("telegram request: %w", err)
	}
	if !body.OK {
		return "", fmt.Errorf("telegram error: %s", body.Description)
	}

	return strconv.FormatInt(body.Result.MessageID, 10), nil
}
