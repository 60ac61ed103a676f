// Package resolver собирает ответ: статьи, комбинированный контекст,
// extractive QA и перефразирование, плюс развилка по прямому ответу провайдера.
package resolver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/article"
	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/passage"
)

type ArticleParser interface {
	Parse(ctx context.Context, req article.ParseRequest) ([]domain.ParsedArticle, error)
}

type Config struct {
	Combine passage.CombineOptions
}

type Resolver struct {
	parser    ArticleParser
	extractor inference.Extractor
	rephraser inference.Rephraser
	combine   passage.CombineOptions
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func New(
	parser ArticleParser,
	extractor inference.Extractor,
	rephraser inference.Rephraser,
	cfg Config,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Resolver {
	if cfg.Combine.MinLength == 0 && cfg.Combine.MaxLength == 0 {
		cfg.Combine = passage.DefaultCombineOptions()
	}
	return &Resolver{
		parser:    parser,
		extractor: extractor,
		rephraser: rephraser,
		combine:   cfg.Combine,
		logger:    logger,
		metrics:   m,
	}
}

type Request struct {
	Question string
	// Results уже обрезаны до NumResults
	Results []domain.SearchResult
	// Articles - уже разобранные статьи, nil означает "разобрать здесь"
	Articles     []domain.ParsedArticle
	DirectAnswer *domain.DirectAnswer
	Options      domain.Options
}

// Trace - промежуточные артефакты одного разрешения вопроса.
type Trace struct {
	Branch     Branch
	Fetched    bool
	Results    []domain.SearchResult
	Articles   []domain.ParsedArticle
	Context    string
	Extraction *domain.Extraction
	Generation *domain.Generation
	Failure    *domain.Failure
	Duration   time.Duration
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (domain.Answer, *Trace) {
	start := time.Now()

	hasDirect := req.DirectAnswer != nil
	branch := SelectBranch(hasDirect, req.Options.ForceAI, req.Options.Fast())

	trace := &Trace{
		Branch:  branch,
		Fetched: FetchContent(hasDirect, req.Options),
		Results: req.Results,
	}

	r.logger.Debug("resolving question",
		zap.String("branch", branch.String()),
		zap.Int("results", len(req.Results)),
		zap.Bool("fetch", trace.Fetched),
	)
	r.metrics.RecordBranch(branch.String())

	var answer domain.Answer
	switch branch {
	case BranchDirectRephrase:
		answer = r.rephrase(ctx, req.Question, req.DirectAnswer.Answer, trace)
	case BranchSeededFast, BranchSeededFull:
		answer = r.pipeline(ctx, req, trace, req.DirectAnswer.Seed(), 0)
	default:
		answer = r.pipeline(ctx, req, trace, "", req.Options.ModelIndex)
	}

	trace.Failure = answer.Failure
	trace.Duration = time.Since(start)
	return answer, trace
}

func (r *Resolver) pipeline(ctx context.Context, req Request, trace *Trace, seed string, modelIndex int) domain.Answer {
	articles := req.Articles
	if articles == nil {
		parsed, err := r.parser.Parse(ctx, article.ParseRequest{
			Results: req.Results,
			Fetch:   trace.Fetched,
			Timeout: req.Options.Timeout,
		})
		if err != nil {
			return domain.Fail[string](domain.NewFailure(domain.FailureTransport, nil, err))
		}
		articles = parsed
	}
	trace.Articles = articles

	bodies, results := domain.SplitArticles(articles)

	var combined string
	if trace.Fetched {
		opts := r.combine
		opts.Filter = req.Options.FilterArticles
		combined = passage.Combine(bodies, results, opts)
	} else {
		combined = strings.Join(bodies, "\n\n")
	}

	if seed != "" {
		combined = seed + "\n\n" + combined
	}
	trace.Context = combined

	r.logger.Debug("context combined",
		zap.Int("articles", len(articles)),
		zap.Int("context_len", len(combined)),
	)

	extraction := r.extractor.Extract(ctx, req.Question, combined, modelIndex)
	if !extraction.Success {
		return domain.Propagate[string](extraction)
	}
	trace.Extraction = &extraction.Value

	return r.rephrase(ctx, req.Question, extraction.Value.Answer, trace)
}

func (r *Resolver) rephrase(ctx context.Context, question, answer string, trace *Trace) domain.Answer {
	generation := r.rephraser.Rephrase(ctx, question, answer)
	if !generation.Success {
		return domain.Propagate[string](generation)
	}
	trace.Generation = &generation.Value

	return domain.Ok(generation.Value.GeneratedText)
}
