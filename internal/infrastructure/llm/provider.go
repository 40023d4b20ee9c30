package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

// NewCompleter picks the back end named by cfg.Provider. The returned closer
// releases provider resources and is never nil.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (ports.Completer, io.Closer, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI, "":
		return NewChatGPTClient(cfg, nil), nopCloser{}, nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nopCloser{}, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
