package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/article"
	"github.com/kitbuilder587/webqa/internal/config"
	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
	"github.com/kitbuilder587/webqa/internal/inference/gigachat"
	"github.com/kitbuilder587/webqa/internal/inference/openrouter"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/ratelimit"
	"github.com/kitbuilder587/webqa/internal/repository/postgres"
	"github.com/kitbuilder587/webqa/internal/resolver"
	"github.com/kitbuilder587/webqa/internal/search"
	"github.com/kitbuilder587/webqa/internal/search/searxng"
	"github.com/kitbuilder587/webqa/internal/search/serper"
	"github.com/kitbuilder587/webqa/internal/search/tavily"
	"github.com/kitbuilder587/webqa/internal/service"
)

const userAgent = "Mozilla/5.0 (compatible; webqa/" + version + ")"

// app - собранные зависимости одного процесса.
type app struct {
	ask     service.AskService
	metrics *metrics.Metrics
	db      *postgres.DB
	limiter *ratelimit.Limiter[string]
	logger  *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	a := &app{metrics: m, logger: logger}

	a.limiter = ratelimit.New[string](ratelimit.Config{
		RequestsPerMinute: cfg.Inference.RequestsPerMinute,
	})

	hf := inference.New(inference.Config{
		InvokerConfig: inference.InvokerConfig{
			APIKey:     cfg.Inference.APIKey,
			Timeout:    cfg.Inference.Timeout,
			MaxRetries: cfg.Inference.MaxRetries,
			Limiter:    a.limiter,
		},
		BaseURL:       cfg.Inference.BaseURL,
		QAModels:      cfg.Inference.QAModels,
		RephraseModel: cfg.Inference.RephraseModel,
	}, logger.Named("huggingface"), m)

	rephraser := newRephraser(cfg, hf, logger)

	scraper := article.NewScraper(article.ScraperConfig{
		UserAgent: userAgent,
		Timeout:   cfg.Ask.ArticleTimeout,
	})
	parser := article.NewParser(scraper, article.Config{Workers: cfg.Ask.FetchWorkers}, logger.Named("article"), m)
	res := resolver.New(parser, hf, rephraser, resolver.Config{}, logger.Named("resolver"), m)

	deps := service.AskServiceDeps{
		Providers: newProviders(cfg, logger),
		Parser:    parser,
		Resolver:  res,
		Logger:    logger,
		Metrics:   m,
	}

	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		deps.History = postgres.NewHistoryRepo(db)
	} else {
		logger.Debug("DATABASE_URL is empty, history is disabled")
	}

	a.ask = service.NewAskService(deps)
	return a, nil
}

func newRephraser(cfg *config.Config, hf *inference.Client, logger *zap.Logger) inference.Rephraser {
	switch cfg.Inference.RephraseProvider {
	case config.RephraseOpenRouter:
		return openrouter.New(openrouter.Config{
			APIKey:  cfg.OpenRouter.APIKey,
			Model:   cfg.OpenRouter.Model,
			BaseURL: cfg.OpenRouter.BaseURL,
			Timeout: cfg.Inference.Timeout,
		}, logger.Named("openrouter"))
	case config.RephraseGigaChat:
		return gigachat.New(gigachat.Config{
			AuthKey:      cfg.GigaChat.AuthKey,
			ClientID:     cfg.GigaChat.ClientID,
			ClientSecret: cfg.GigaChat.ClientSecret,
			Scope:        cfg.GigaChat.Scope,
			Model:        cfg.GigaChat.Model,
			Timeout:      cfg.Inference.Timeout,
			InsecureTLS:  cfg.GigaChat.InsecureTLS,
		}, logger.Named("gigachat"))
	default:
		return hf
	}
}

// newProviders поднимает всех провайдеров, для которых есть ключи:
// --provider может выбрать любой из них.
func newProviders(cfg *config.Config, logger *zap.Logger) map[domain.Provider]search.Provider {
	providers := make(map[domain.Provider]search.Provider)

	if cfg.Search.Serper.APIKey != "" {
		providers[domain.ProviderSerper] = serper.New(serper.Config{
			APIKey:  cfg.Search.Serper.APIKey,
			BaseURL: cfg.Search.Serper.BaseURL,
			Timeout: cfg.Search.Timeout,
		}, logger.Named("serper"))
	}
	if cfg.Search.Tavily.APIKey != "" {
		providers[domain.ProviderTavily] = tavily.New(tavily.Config{
			APIKey:  cfg.Search.Tavily.APIKey,
			BaseURL: cfg.Search.Tavily.BaseURL,
			Timeout: cfg.Search.Timeout,
		}, logger.Named("tavily"))
	}
	if cfg.Search.SearXNG.URL != "" {
		providers[domain.ProviderSearXNG] = searxng.New(searxng.Config{
			URL:     cfg.Search.SearXNG.URL,
			Timeout: cfg.Search.Timeout,
		}, logger.Named("searxng"))
	}

	return providers
}

func (a *app) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}
