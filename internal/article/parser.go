package article

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
)

const (
	defaultWorkers = 4
	defaultTimeout = 10 * time.Second
)

type Config struct {
	Workers int
}

// Parser превращает выдачу в тела статей.
type Parser struct {
	fetcher Fetcher
	workers int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewParser(fetcher Fetcher, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Parser {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Parser{
		fetcher: fetcher,
		workers: cfg.Workers,
		logger:  logger,
		metrics: m,
	}
}

type ParseRequest struct {
	Results []domain.SearchResult
	// Fetch=false - не ходим по ссылкам, тело = заголовок + описание
	Fetch bool
	// Timeout на загрузку одной статьи
	Timeout time.Duration
}

// Parse загружает статьи параллельно. Порядок выдачи сохраняется; статья,
// которую не удалось скачать из-за сетевой ошибки, выпадает, остальные не страдают.
// Ошибку возвращает только отмена ctx.
func (p *Parser) Parse(ctx context.Context, req ParseRequest) ([]domain.ParsedArticle, error) {
	if !req.Fetch {
		articles := make([]domain.ParsedArticle, len(req.Results))
		for i, r := range req.Results {
			articles[i] = domain.ParsedArticle{Result: r, Body: r.Fallback()}
			p.metrics.RecordArticleFetch("skipped")
		}
		return articles, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	slots := make([]*domain.ParsedArticle, len(req.Results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, r := range req.Results {
		i, r := i, r
		g.Go(func() error {
			if body, ok := p.fetchOne(gctx, r, timeout); ok {
				slots[i] = &domain.ParsedArticle{Result: r, Body: body}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	articles := make([]domain.ParsedArticle, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			articles = append(articles, *a)
		}
	}

	p.logger.Debug("articles parsed",
		zap.Int("requested", len(req.Results)),
		zap.Int("parsed", len(articles)),
	)

	return articles, nil
}

func (p *Parser) fetchOne(ctx context.Context, r domain.SearchResult, timeout time.Duration) (string, bool) {
	if err := r.ValidateURL(); err != nil {
		p.metrics.RecordArticleFetch("fallback")
		return r.Fallback(), true
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := p.fetcher.Fetch(fctx, r.URL)
	switch {
	case err == nil:
		p.metrics.RecordArticleFetch("ok")
		return body, true
	case errors.Is(err, ErrNoContent):
		p.logger.Debug("article extraction failed, using description",
			zap.String("url", r.URL),
			zap.Error(err),
		)
		p.metrics.RecordArticleFetch("fallback")
		return r.Fallback(), true
	default:
		p.logger.Debug("article fetch failed, dropping",
			zap.String("url", r.URL),
			zap.Error(err),
		)
		p.metrics.RecordArticleFetch("dropped")
		return "", false
	}
}
