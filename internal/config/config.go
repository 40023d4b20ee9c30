package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWS_DIGEST_CONFIG"

	logLevelEnv        = "LOG_LEVEL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	llmProviderEnv     = "LLM_PROVIDER"
	llmModelEnv        = "LLM_MODEL"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	resendAPIKeyEnv    = "RESEND_API_KEY"
	emailFromEnv       = "EMAIL_FROM"
	emailToEnv         = "EMAIL_TO"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	monitoringAddrEnv  = "MONITORING_ADDR"
	cronExpressionEnv  = "SCHEDULE_CRON"
	scheduleTZEnv      = "SCHEDULE_TIMEZONE"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Notifier back ends.
const (
	NotifierResend   = "resend"
	NotifierTelegram = "telegram"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Source kinds.
const (
	SourceNewsAPI    = "newsapi"
	SourceHackerNews = "hackernews"
	SourceRSS        = "rss"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Providers  ProviderConfig   `yaml:"providers"`
	LLM        LLMConfig        `yaml:"llm"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes where processed articles live.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression  string         `yaml:"cronExpression"`
	Timezone        string         `yaml:"timezone"`
	ShutdownTimeout time.Duration  `yaml:"shutdownTimeout"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ProviderConfig groups credentials and endpoints of the news APIs.
type ProviderConfig struct {
	NewsAPI    NewsAPIConfig    `yaml:"newsapi"`
	HackerNews HackerNewsConfig `yaml:"hackernews"`
}

// NewsAPIConfig wires the newsapi.org client.
type NewsAPIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

// HackerNewsConfig wires the Hacker News Firebase client.
type HackerNewsConfig struct {
	BaseURL string `yaml:"baseUrl"`
}

// LLMConfig defines how to contact the language model used for filtering and summarizing.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"` // empty means the provider default
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"apiKey"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// NotifierConfig selects and configures the digest delivery channel.
type NotifierConfig struct {
	Kind     string         `yaml:"kind"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// EmailConfig wires the Resend email API.
type EmailConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"apiKey"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MonitoringConfig enables the /metrics and /health endpoints when Addr is set.
type MonitoringConfig struct {
	Addr string `yaml:"addr"`
}

// SourceConfig describes a single upstream and the fetcher kind that reads it.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Feeds   []FeedConfig      `yaml:"feeds"`
	Options map[string]string `yaml:"options"`
}

// FeedConfig holds a concrete feed endpoint.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// MissingError lists every required setting that is absent.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
// An empty path falls back to NEWS_DIGEST_CONFIG.
func Load(path string) Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyProviderDefaults()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// Validate reports every required setting that is missing.
func (c Config) Validate() error {
	var missing []string

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			missing = append(missing, openAIAPIKeyEnv)
		}
	case ProviderAnthropic:
		if c.LLM.APIKey == "" {
			missing = append(missing, anthropicAPIKeyEnv)
		}
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			missing = append(missing, geminiAPIKeyEnv)
		}
	default:
		missing = append(missing, fmt.Sprintf("%s (unknown provider %q)", llmProviderEnv, c.LLM.Provider))
	}

	if c.HasSource(SourceNewsAPI) && c.Providers.NewsAPI.APIKey == "" {
		missing = append(missing, newsAPIKeyEnv)
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			missing = append(missing, databaseDSNEnv)
		}
	default:
		missing = append(missing, fmt.Sprintf("%s (unknown driver %q)", databaseDriverEnv, c.Database.Driver))
	}

	switch c.Notifier.Kind {
	case NotifierResend:
		if c.Notifier.Email.APIKey == "" {
			missing = append(missing, resendAPIKeyEnv)
		}
		if c.Notifier.Email.From == "" {
			missing = append(missing, emailFromEnv)
		}
		if len(c.Notifier.Email.To) == 0 {
			missing = append(missing, emailToEnv)
		}
	case NotifierTelegram:
		if c.Notifier.Telegram.BotToken == "" {
			missing = append(missing, telegramTokenEnv)
		}
		if c.Notifier.Telegram.ChatID == "" {
			missing = append(missing, telegramChatIDEnv)
		}
	default:
		missing = append(missing, fmt.Sprintf("notifier.kind (unknown notifier %q)", c.Notifier.Kind))
	}

	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// HasSource reports whether any configured source uses the given kind.
func (c Config) HasSource(kind string) bool {
	for _, src := range c.Sources {
		if src.Kind == kind {
			return true
		}
	}
	return false
}

// ParseRecipients splits a comma-separated list, trims entries and drops empty ones.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(cronExpressionEnv); v != "" {
		c.Scheduler.CronExpression = v
	}
	if v := os.Getenv(scheduleTZEnv); v != "" {
		c.Scheduler.Timezone = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	keyEnv := map[string]string{
		ProviderOpenAI:    openAIAPIKeyEnv,
		ProviderAnthropic: anthropicAPIKeyEnv,
		ProviderGemini:    geminiAPIKeyEnv,
	}[c.LLM.Provider]
	if v := os.Getenv(keyEnv); keyEnv != "" && v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.Providers.NewsAPI.APIKey = v
	}

	if v := os.Getenv(resendAPIKeyEnv); v != "" {
		c.Notifier.Email.APIKey = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Notifier.Email.From = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		c.Notifier.Email.To = ParseRecipients(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifier.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifier.Telegram.ChatID = v
	}

	if v := os.Getenv(monitoringAddrEnv); v != "" {
		c.Monitoring.Addr = v
	}
}

func (c *Config) applyProviderDefaults() {
	if c.LLM.Model != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderAnthropic:
		c.LLM.Model = "claude-3-5-haiku-latest"
	case ProviderGemini:
		c.LLM.Model = "gemini-1.5-flash"
	default:
		c.LLM.Model = "gpt-4o-mini"
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: DriverPostgres},
		Scheduler: SchedulerConfig{
			CronExpression:  "0 8 * * *",
			Timezone:        defaultTimezone,
			ShutdownTimeout: 30 * time.Second,
			location:        tz,
		},
		Providers: ProviderConfig{
			NewsAPI:    NewsAPIConfig{BaseURL: "https://newsapi.org/v2"},
			HackerNews: HackerNewsConfig{BaseURL: "https://hacker-news.firebaseio.com/v0"},
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			RequestTimeout: 60 * time.Second,
		},
		Notifier: NotifierConfig{
			Kind:  NotifierResend,
			Email: EmailConfig{Endpoint: "https://api.resend.com/emails"},
		},
		Sources: []SourceConfig{
			{
				Name:    "newsapi",
				Kind:    SourceNewsAPI,
				Options: map[string]string{"pageSize": "10"},
			},
		},
	}
}
