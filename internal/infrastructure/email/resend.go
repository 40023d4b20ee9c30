package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpjson"
	"NewsDigest/internal/ports"
)

// ResendNotifier delivers digests through the Resend email API.
type ResendNotifier struct {
	endpoint string
	from     string
	to       []string
	apiKey   string
	http     *httpjson.Client
}

var _ ports.Notifier = (*ResendNotifier)(nil)

// NewResendNotifier builds a notifier from configuration; httpClient may be nil.
func NewResendNotifier(cfg config.EmailConfig, httpClient *http.Client) *ResendNotifier {
	return &ResendNotifier{
		endpoint: cfg.Endpoint,
		from:     cfg.From,
		to:       cfg.To,
		apiKey:   cfg.APIKey,
		http: httpjson.NewClient(httpClient, 15*time.Second).
			WithHeader("Authorization", "Bearer "+cfg.APIKey),
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts the message to every configured recipient and returns the Resend message id.
func (n *ResendNotifier) Send(ctx context.Context, msg domain.Message) (string, error) {
	if n.apiKey == "" || n.from == "" || n.endpoint == "" {
		return "", fmt.Errorf("resend notifier misconfigured")
	}
	if len(n.to) == 0 {
		return "", fmt.Errorf("resend notifier has no recipients")
	}

	var resp sendResponse
	err := n.http.Post(ctx, n.endpoint, sendRequest{
		From:    n.from,
		To:      n.to,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}, &resp)
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("resend error %s: %s", statusErr.Status, strings.TrimSpace(string(statusErr.Body)))
		}
		return "", fmt.Errorf("send email: %w", err)
	}

	return resp.ID, nil
}
