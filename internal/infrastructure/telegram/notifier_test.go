package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

func TestSendPostsText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("chat_id") != "42" {
			t.Errorf("unexpected chat id %q", r.PostForm.Get("chat_id"))
		}
		if text := r.PostForm.Get("text"); !strings.HasPrefix(text, "Subject\n\nbody") {
			t.Errorf("unexpected text %q", text)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":17}}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "token", ChatID: "42"}, server.Client())
	n.apiBase = server.URL

	id, err := n.Send(context.Background(), domain.Message{Subject: "Subject", Text: "body"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if id != "17" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestSendReportsAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "token", ChatID: "1"}, server.Client())
	n.apiBase = server.URL

	_, err := n.Send(context.Background(), domain.Message{Subject: "s"})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected chat not found error, got %v", err)
	}
}

func TestSendMisconfigured(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier(config.TelegramConfig{}, nil).Send(context.Background(), domain.Message{}); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

func TestSendRejectsNotOKBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "token", ChatID: "1"}, server.Client())
	n.apiBase = server.URL

	_, err := n.Send(context.Background(), domain.Message{Subject: "s"})
	if err == nil || !strings.Contains(err.Error(), "bot was blocked") {
		t.Fatalf("expected blocked error, got %v", err)
	}
}
