package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/repository"
	"github.com/kitbuilder587/webqa/internal/resolver"
	"github.com/kitbuilder587/webqa/internal/search"
	"github.com/kitbuilder587/webqa/internal/session"
)

type AskService interface {
	Ask(ctx context.Context, req *domain.AskRequest) (*domain.AskResponse, error)
	// History - последние ответы чата; chatID=0 - все чаты
	History(ctx context.Context, chatID int64, limit int) ([]domain.HistoryRecord, error)
}

var ErrHistoryDisabled = errors.New("history storage is not configured")

const maxHistoryLimit = 50

type AskConfig struct {
	// QuestionTimeout - потолок на весь вопрос, 0 - без ограничения
	QuestionTimeout time.Duration
	HistoryTimeout  time.Duration
}

type AskServiceDeps struct {
	Providers map[domain.Provider]search.Provider
	Parser    resolver.ArticleParser
	Resolver  *resolver.Resolver
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Config    AskConfig

	// опционально, без него история не пишется
	History repository.HistoryRepository
}

type askService struct {
	providers map[domain.Provider]search.Provider
	parser    resolver.ArticleParser
	resolver  *resolver.Resolver
	history   repository.HistoryRepository
	logger    *zap.Logger
	metrics   *metrics.Metrics
	config    AskConfig
}

func NewAskService(deps AskServiceDeps) AskService {
	if deps.Config.HistoryTimeout == 0 {
		deps.Config.HistoryTimeout = 5 * time.Second
	}

	return &askService{
		providers: deps.Providers,
		parser:    deps.Parser,
		resolver:  deps.Resolver,
		history:   deps.History,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		config:    deps.Config,
	}
}

// Ask отвечает на вопрос в отдельной сессии. Ошибка возвращается для
// невалидного запроса и сбоев поиска; неуспех модели приходит в Answer.
func (s *askService) Ask(ctx context.Context, req *domain.AskRequest) (*domain.AskResponse, error) {
	startTime := time.Now()

	s.metrics.IncRequestsInFlight()
	defer s.metrics.DecRequestsInFlight()

	if err := req.Validate(); err != nil {
		s.metrics.RecordRequest("ask", "validation_error", time.Since(startTime))
		return nil, err
	}
	req.Sanitize()

	provider, ok := s.providers[req.Options.Provider]
	if !ok || provider == nil {
		s.metrics.RecordRequest("ask", "validation_error", time.Since(startTime))
		return nil, fmt.Errorf("%w: %s is not configured", domain.ErrInvalidProvider, req.Options.Provider)
	}

	if s.config.QuestionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QuestionTimeout)
		defer cancel()
	}

	sess, err := session.New(session.Deps{
		Provider: provider,
		Parser:   s.parser,
		Resolver: s.resolver,
	}, req.Options, s.logger, s.metrics)
	if err != nil {
		s.metrics.RecordRequest("ask", "validation_error", time.Since(startTime))
		return nil, err
	}

	s.logger.Info("processing question",
		zap.String("session_id", sess.ID()),
		zap.Int64("chat_id", req.ChatID),
		zap.Int("question_length", len(req.Question)),
		zap.String("provider", req.Options.Provider.String()),
		zap.Int("num_results", req.Options.NumResults),
		zap.Bool("parse_articles", req.Options.ParseArticles),
		zap.Bool("force_ai", req.Options.ForceAI),
	)

	answer, err := sess.Resolve(ctx, req.Question)
	if err != nil {
		s.metrics.RecordRequest("ask", "error", time.Since(startTime))
		if errors.Is(err, search.ErrEmptyResults) {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoSearchResults, err)
		}
		return nil, err
	}

	trace := sess.Trace()
	resp := &domain.AskResponse{
		SessionID:    sess.ID(),
		Question:     req.Question,
		Answer:       answer,
		Branch:       trace.Branch.String(),
		DirectAnswer: sess.DirectAnswer(),
		Sources:      sources(sess),
		Duration:     time.Since(startTime),
	}

	status := "success"
	if !answer.Success {
		status = "model_failure"
	}
	s.metrics.RecordRequest("ask", status, resp.Duration)

	s.logger.Info("question processed",
		zap.String("session_id", resp.SessionID),
		zap.String("branch", resp.Branch),
		zap.Bool("success", answer.Success),
		zap.Int("sources", len(resp.Sources)),
		zap.Duration("duration", resp.Duration),
	)

	s.saveHistory(req, resp)

	return resp, nil
}

// источники - статьи, которые реально попали в контекст, иначе выдача
func sources(sess *session.Session) []domain.SearchResult {
	if articles := sess.Articles(); len(articles) > 0 {
		_, results := domain.SplitArticles(articles)
		return results
	}
	return sess.Results()
}

func (s *askService) saveHistory(req *domain.AskRequest, resp *domain.AskResponse) {
	if s.history == nil {
		return
	}

	rec := &domain.HistoryRecord{
		ChatID:     req.ChatID,
		Question:   resp.Question,
		Provider:   req.Options.Provider,
		Branch:     resp.Branch,
		Success:    resp.Answer.Success,
		Answer:     AnswerText(resp.Answer),
		DurationMs: resp.Duration.Milliseconds(),
	}
	for _, src := range resp.Sources {
		rec.SourceURLs = append(rec.SourceURLs, src.URL)
	}

	// отдельный контекст: вопрос мог упереться в свой дедлайн
	ctx, cancel := context.WithTimeout(context.Background(), s.config.HistoryTimeout)
	defer cancel()

	if err := s.history.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to save history",
			zap.String("session_id", resp.SessionID),
			zap.Error(err),
		)
	}
}

func (s *askService) History(ctx context.Context, chatID int64, limit int) ([]domain.HistoryRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if chatID == 0 {
		return s.history.ListRecent(ctx, limit)
	}
	return s.history.ListByChat(ctx, chatID, limit)
}

// AnswerText - текст ответа или сырой payload ошибки.
func AnswerText(a domain.Answer) string {
	if a.Success {
		return a.Value
	}
	if a.Failure != nil {
		return string(a.Failure.Payload)
	}
	return ""
}
