// Package session - состояние одного вопроса: поиск, разбор статей, ответ.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/article"
	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/resolver"
	"github.com/kitbuilder587/webqa/internal/search"
)

var (
	ErrPrecondition   = errors.New("session precondition violated")
	ErrInvalidOptions = errors.New("invalid session options")
)

type State int

const (
	StateIdle State = iota
	StateSearched
	StateArticlesParsed
	StateAnswered
)

func (s State) String() string {
	switch s {
	case StateSearched:
		return "searched"
	case StateArticlesParsed:
		return "articles_parsed"
	case StateAnswered:
		return "answered"
	default:
		return "idle"
	}
}

type Deps struct {
	Provider search.Provider
	Parser   resolver.ArticleParser
	Resolver *resolver.Resolver
}

// Session не рассчитана на параллельные вопросы; мьютекс только защищает
// геттеры от гонок с выполняющейся стадией.
type Session struct {
	id       string
	opts     domain.Options
	provider search.Provider
	parser   resolver.ArticleParser
	resolver *resolver.Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu           sync.Mutex
	state        State
	question     string
	results      []domain.SearchResult
	directAnswer *domain.DirectAnswer
	articles     []domain.ParsedArticle
	answer       *domain.Answer
	trace        *resolver.Trace
}

func New(deps Deps, opts domain.Options, logger *zap.Logger, m *metrics.Metrics) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	id := uuid.NewString()
	return &Session{
		id:       id,
		opts:     opts,
		provider: deps.Provider,
		parser:   deps.Parser,
		resolver: deps.Resolver,
		logger:   logger.With(zap.String("session_id", id)),
		metrics:  m,
	}, nil
}

// Search ищет вопрос и сбрасывает последующие стадии. Допустим из любого состояния.
func (s *Session) Search(ctx context.Context, question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search(ctx, question)
}

// ParseArticles из Idle сначала выполняет поиск, если передан вопрос.
// Непустой вопрос, отличный от текущего, запускает новый поиск.
func (s *Session) ParseArticles(ctx context.Context, question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSearched(ctx, question, "parse articles"); err != nil {
		return err
	}
	return s.parseArticles(ctx)
}

// Resolve догоняет недостающие стадии и строит ответ. Без вопроса нужен хотя бы Search.
// Повторный вызов пересчитывает ответ по текущему состоянию.
func (s *Session) Resolve(ctx context.Context, question string) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question = strings.TrimSpace(question)
	if question != "" && question != s.question {
		if err := s.search(ctx, question); err != nil {
			return domain.Answer{}, err
		}
	}

	if s.state == StateIdle {
		return domain.Answer{}, fmt.Errorf("%w: resolve called in state %s without a question", ErrPrecondition, s.state)
	}
	if s.state < StateArticlesParsed {
		if err := s.parseArticles(ctx); err != nil {
			return domain.Answer{}, err
		}
	}

	answer, trace := s.resolver.Resolve(ctx, resolver.Request{
		Question:     s.question,
		Results:      s.results,
		Articles:     s.articles,
		DirectAnswer: s.directAnswer,
		Options:      s.opts,
	})

	s.answer = &answer
	s.trace = trace
	s.state = StateAnswered

	s.logger.Info("question resolved",
		zap.String("branch", trace.Branch.String()),
		zap.Bool("success", answer.Success),
		zap.Duration("duration", trace.Duration),
	)

	return answer, nil
}

func (s *Session) ensureSearched(ctx context.Context, question, stage string) error {
	question = strings.TrimSpace(question)

	switch {
	case s.state == StateIdle && question == "":
		return fmt.Errorf("%w: %s called before search without a question", ErrPrecondition, stage)
	case question != "" && (s.state == StateIdle || question != s.question):
		return s.search(ctx, question)
	}
	return nil
}

// вызывать под mu
func (s *Session) search(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("%w: search needs a question", ErrPrecondition)
	}

	start := time.Now()
	resp, err := s.provider.Search(ctx, search.Request{Query: question, MaxResults: s.opts.NumResults})
	if err != nil {
		s.metrics.RecordSearchRequest(s.opts.Provider.String(), "error", time.Since(start))
		s.logger.Warn("search failed", zap.String("provider", s.opts.Provider.String()), zap.Error(err))
		return fmt.Errorf("search: %w", err)
	}
	s.metrics.RecordSearchRequest(s.opts.Provider.String(), "success", time.Since(start))

	// единственное место, где выдача обрезается до NumResults
	resp.Truncate(s.opts.NumResults)

	s.question = question
	s.results = resp.Results
	s.directAnswer = resp.DirectAnswer
	s.articles = nil
	s.answer = nil
	s.trace = nil
	s.state = StateSearched

	s.logger.Debug("search done",
		zap.Int("results", len(s.results)),
		zap.Bool("direct_answer", s.directAnswer != nil),
	)
	return nil
}

// вызывать под mu
func (s *Session) parseArticles(ctx context.Context) error {
	fetch := resolver.FetchContent(s.directAnswer != nil, s.opts)

	articles, err := s.parser.Parse(ctx, article.ParseRequest{
		Results: s.results,
		Fetch:   fetch,
		Timeout: s.opts.Timeout,
	})
	if err != nil {
		return fmt.Errorf("parse articles: %w", err)
	}
	if articles == nil {
		articles = []domain.ParsedArticle{}
	}

	s.articles = articles
	s.answer = nil
	s.trace = nil
	s.state = StateArticlesParsed
	return nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Options() domain.Options { return s.opts }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Question() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

func (s *Session) Results() []domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *Session) DirectAnswer() *domain.DirectAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directAnswer
}

func (s *Session) Articles() []domain.ParsedArticle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.articles
}

// Answer - последний ответ, false если Resolve ещё не вызывался после поиска.
func (s *Session) Answer() (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer == nil {
		return domain.Answer{}, false
	}
	return *s.answer, true
}

// Trace - артефакты последнего Resolve.
func (s *Session) Trace() *resolver.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}
