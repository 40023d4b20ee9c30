package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, logLevelEnv, databaseDriverEnv, databaseDSNEnv, llmProviderEnv, llmModelEnv,
		openAIAPIKeyEnv, anthropicAPIKeyEnv, geminiAPIKeyEnv, newsAPIKeyEnv, resendAPIKeyEnv,
		emailFromEnv, emailToEnv, telegramTokenEnv, telegramChatIDEnv, monitoringAddrEnv,
		cronExpressionEnv, scheduleTZEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestParseRecipients(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a@x.io", "b@x.io"}, ParseRecipients(" a@x.io , ,b@x.io,, "))
	assert.Empty(t, ParseRecipients(" , ,"))
	assert.Empty(t, ParseRecipients(""))
}

func TestLoadDefaultsWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(newsAPIKeyEnv, "news-key")
	t.Setenv(databaseDSNEnv, "postgres://localhost/news")
	t.Setenv(resendAPIKeyEnv, "re_key")
	t.Setenv(emailFromEnv, "digest@example.com")
	t.Setenv(emailToEnv, "one@example.com, two@example.com,")

	cfg := Load("")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, []string{"one@example.com", "two@example.com"}, cfg.Notifier.Email.To)
	assert.Equal(t, "0 8 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, SourceNewsAPI, cfg.Sources[0].Kind)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(anthropicAPIKeyEnv, "ant-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logging:
  level: debug
database:
  driver: memory
scheduler:
  cronExpression: "30 7 * * 1-5"
  timezone: Europe/Berlin
  shutdownTimeout: 5s
llm:
  provider: anthropic
notifier:
  kind: telegram
  telegram:
    botToken: token
    chatId: "42"
sources:
  - name: hn
    kind: hackernews
    options:
      limit: "30"
  - name: blogs
    kind: rss
    feeds:
      - name: example
        url: https://example.com/feed.xml
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg := Load(path)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "30 7 * * 1-5", cfg.Scheduler.CronExpression)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 5*time.Second, cfg.Scheduler.ShutdownTimeout)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.LLM.Model)
	assert.Equal(t, "ant-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://hacker-news.firebaseio.com/v0", cfg.Providers.HackerNews.BaseURL)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "30", cfg.Sources[0].Options["limit"])
	assert.Equal(t, "https://example.com/feed.xml", cfg.Sources[1].Feeds[0].URL)
	assert.False(t, cfg.HasSource(SourceNewsAPI))
}

func TestValidateListsEveryMissingItem(t *testing.T) {
	clearEnv(t)

	cfg := Load("")
	err := cfg.Validate()

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{
		openAIAPIKeyEnv,
		newsAPIKeyEnv,
		databaseDSNEnv,
		resendAPIKeyEnv,
		emailFromEnv,
		emailToEnv,
	}, missing.Keys)
}

func TestValidateRejectsEmptyRecipientList(t *testing.T) {
	clearEnv(t)
	t.Setenv(openAIAPIKeyEnv, "sk")
	t.Setenv(newsAPIKeyEnv, "n")
	t.Setenv(databaseDSNEnv, "dsn")
	t.Setenv(resendAPIKeyEnv, "r")
	t.Setenv(emailFromEnv, "from@example.com")
	t.Setenv(emailToEnv, " , ")

	err := Load("").Validate()

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{emailToEnv}, missing.Keys)
}
