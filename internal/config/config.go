package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/webqa/internal/domain"
)

var (
	ErrMissingHuggingFaceKey   = errors.New("HUGGINGFACE_API_KEY is required")
	ErrMissingSerperKey        = errors.New("SERPER_API_KEY is required for the serper provider")
	ErrMissingTavilyKey        = errors.New("TAVILY_API_KEY is required for the tavily provider")
	ErrMissingSearXNGURL       = errors.New("SEARXNG_URL is required for the searxng provider")
	ErrMissingOpenRouterKey    = errors.New("OPENROUTER_API_KEY is required for the openrouter rephraser")
	ErrMissingGigaChatKey      = errors.New("GIGACHAT_AUTH_KEY or GIGACHAT_CLIENT_ID/GIGACHAT_CLIENT_SECRET is required for the gigachat rephraser")
	ErrMissingToken            = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidProvider         = errors.New("invalid search provider")
	ErrInvalidRephraseProvider = errors.New("invalid rephrase provider")
	ErrInvalidModelIndex       = errors.New("model index out of range")
	ErrNoQAModels              = errors.New("at least one QA model is required")
)

const (
	RephraseHuggingFace = "huggingface"
	RephraseOpenRouter  = "openrouter"
	RephraseGigaChat    = "gigachat"
)

var DefaultQAModels = []string{
	"deepset/roberta-base-squad2",
	"twmkn9/distilbert-base-uncased-squad2",
}

type Config struct {
	Inference  InferenceConfig
	OpenRouter OpenRouterConfig
	GigaChat   GigaChatConfig
	Search     SearchConfig
	Ask        AskConfig
	Log        LogConfig
	Database   DatabaseConfig
	Telegram   TelegramConfig
	RateLimit  RateLimitConfig
	Metrics    MetricsConfig
}

type InferenceConfig struct {
	APIKey            string
	BaseURL           string
	QAModels          []string
	RephraseModel     string
	RephraseProvider  string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GigaChatConfig struct {
	AuthKey      string
	ClientID     string
	ClientSecret string
	Scope        string
	Model        string
	InsecureTLS  bool
}

type SearchConfig struct {
	Provider string
	Timeout  time.Duration
	Serper   SerperConfig
	Tavily   TavilyConfig
	SearXNG  SearXNGConfig
}

type SerperConfig struct {
	APIKey  string
	BaseURL string
}

type TavilyConfig struct {
	APIKey  string
	BaseURL string
}

type SearXNGConfig struct {
	URL string
}

// AskConfig - значения по умолчанию для опций вопроса
type AskConfig struct {
	NumResults     int
	ArticleTimeout time.Duration
	FetchWorkers   int
	ParseArticles  bool
	ModelIndex     int
	ForceAI        bool
	FilterArticles bool
}

type LogConfig struct {
	Level string
	// Format: json или console; пусто - console для debug, json для остальных уровней
	Format string
}

type DatabaseConfig struct {
	URL string
}

type TelegramConfig struct {
	Token string
	Debug bool
	// DetailsTTL - сколько помнить последний ответ чата для /details
	DetailsTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type MetricsConfig struct {
	Addr string
}

// Load читает окружение и сразу валидирует.
func Load() (*Config, error) {
	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv читает окружение без валидации: CLI накладывает флаги и валидирует сам.
func FromEnv() *Config {
	return &Config{
		Inference: InferenceConfig{
			APIKey:            os.Getenv("HUGGINGFACE_API_KEY"),
			BaseURL:           getEnvOrDefault("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co/models"),
			QAModels:          getEnvListOrDefault("QA_MODELS", DefaultQAModels),
			RephraseModel:     getEnvOrDefault("REPHRASE_MODEL", "google/flan-t5-xxl"),
			RephraseProvider:  getEnvOrDefault("REPHRASE_PROVIDER", RephraseHuggingFace),
			Timeout:           time.Duration(getEnvIntOrDefault("INFERENCE_TIMEOUT_SEC", 60)) * time.Second,
			MaxRetries:        getEnvIntOrDefault("INFERENCE_MAX_RETRIES", 10),
			RequestsPerMinute: getEnvIntOrDefault("INFERENCE_REQUESTS_PER_MINUTE", 30),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  os.Getenv("OPENROUTER_API_KEY"),
			Model:   getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
			BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		},
		GigaChat: GigaChatConfig{
			AuthKey:      os.Getenv("GIGACHAT_AUTH_KEY"),
			ClientID:     os.Getenv("GIGACHAT_CLIENT_ID"),
			ClientSecret: os.Getenv("GIGACHAT_CLIENT_SECRET"),
			Scope:        getEnvOrDefault("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:        getEnvOrDefault("GIGACHAT_MODEL", "GigaChat"),
			InsecureTLS:  getEnvBoolOrDefault("GIGACHAT_INSECURE_TLS", true),
		},
		Search: SearchConfig{
			Provider: getEnvOrDefault("SEARCH_PROVIDER", string(domain.ProviderSerper)),
			Timeout:  time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_SEC", 30)) * time.Second,
			Serper: SerperConfig{
				APIKey:  os.Getenv("SERPER_API_KEY"),
				BaseURL: getEnvOrDefault("SERPER_BASE_URL", "https://google.serper.dev"),
			},
			Tavily: TavilyConfig{
				APIKey:  os.Getenv("TAVILY_API_KEY"),
				BaseURL: getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
			},
			SearXNG: SearXNGConfig{
				URL: os.Getenv("SEARXNG_URL"),
			},
		},
		Ask: AskConfig{
			NumResults:     getEnvIntOrDefault("NUM_RESULTS", 5),
			ArticleTimeout: time.Duration(getEnvIntOrDefault("ARTICLE_TIMEOUT_SEC", 10)) * time.Second,
			FetchWorkers:   getEnvIntOrDefault("FETCH_WORKERS", 4),
			ParseArticles:  getEnvBoolOrDefault("PARSE_ARTICLES", true),
			ModelIndex:     getEnvIntOrDefault("MODEL_INDEX", 0),
			ForceAI:        getEnvBoolOrDefault("FORCE_AI", false),
			FilterArticles: getEnvBoolOrDefault("FILTER_ARTICLES", false),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Telegram: TelegramConfig{
			Token:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug:      getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
			DetailsTTL: time.Duration(getEnvIntOrDefault("TELEGRAM_DETAILS_TTL_SEC", 1800)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
	}
}

// Validate проверяет ключи до любого сетевого вызова.
func (c *Config) Validate() error {
	if c.Inference.APIKey == "" {
		return ErrMissingHuggingFaceKey
	}
	if len(c.Inference.QAModels) == 0 {
		return ErrNoQAModels
	}

	switch c.Inference.RephraseProvider {
	case RephraseHuggingFace:
	case RephraseOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return ErrMissingOpenRouterKey
		}
	case RephraseGigaChat:
		if c.GigaChat.AuthKey == "" && (c.GigaChat.ClientID == "" || c.GigaChat.ClientSecret == "") {
			return ErrMissingGigaChatKey
		}
	default:
		return ErrInvalidRephraseProvider
	}

	switch domain.Provider(c.Search.Provider) {
	case domain.ProviderSerper:
		if c.Search.Serper.APIKey == "" {
			return ErrMissingSerperKey
		}
	case domain.ProviderTavily:
		if c.Search.Tavily.APIKey == "" {
			return ErrMissingTavilyKey
		}
	case domain.ProviderSearXNG:
		if c.Search.SearXNG.URL == "" {
			return ErrMissingSearXNGURL
		}
	default:
		return ErrInvalidProvider
	}

	if c.Ask.ModelIndex < 0 || c.Ask.ModelIndex >= len(c.Inference.QAModels) {
		return ErrInvalidModelIndex
	}

	return c.Options().Validate()
}

// ValidateBot - дополнительные проверки для режима телеграм-бота.
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

func (c *Config) Options() domain.Options {
	return domain.Options{
		Provider:       domain.Provider(c.Search.Provider),
		NumResults:     c.Ask.NumResults,
		Timeout:        c.Ask.ArticleTimeout,
		ParseArticles:  c.Ask.ParseArticles,
		ModelIndex:     c.Ask.ModelIndex,
		ForceAI:        c.Ask.ForceAI,
		FilterArticles: c.Ask.FilterArticles,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
