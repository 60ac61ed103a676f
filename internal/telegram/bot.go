package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/cache/memory"
	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
	"github.com/kitbuilder587/webqa/internal/ratelimit"
	"github.com/kitbuilder587/webqa/internal/service"
)

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
	// DetailsTTL - сколько помнить последний ответ чата, 0 - 30 минут
	DetailsTTL time.Duration
	// Options - настройки вопроса по умолчанию, команды меняют их точечно
	Options domain.Options
}

// Sender - часть tgbotapi.BotAPI, которой пользуется бот.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	askService  service.AskService
	defaults    domain.Options
	logger      *zap.Logger
	metrics     *metrics.Metrics
	handler     *Handler
	rateLimiter *ratelimit.Limiter[int64]
	recent      *memory.Cache[*domain.AskResponse]
	detailsTTL  time.Duration
	wg          sync.WaitGroup
}

const defaultDetailsTTL = 30 * time.Minute

func New(cfg BotConfig, askSvc service.AskService, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(api, cfg, askSvc, logger, m)
	bot.api = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(sender Sender, cfg BotConfig, askSvc service.AskService, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if cfg.Options == (domain.Options{}) {
		cfg.Options = domain.DefaultOptions()
	}
	if cfg.DetailsTTL <= 0 {
		cfg.DetailsTTL = defaultDetailsTTL
	}

	bot := &Bot{
		sender:     sender,
		askService: askSvc,
		defaults:   cfg.Options,
		logger:     logger,
		metrics:    m,
		rateLimiter: ratelimit.New[int64](ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		recent:     memory.New[*domain.AskResponse](memory.Config{}),
		detailsTTL: cfg.DetailsTTL,
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.rateLimiter.Stop()
	defer b.recent.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			b.metrics.RecordRequest("message", "panic", time.Since(startTime))
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)

	reqType := "command"
	if update.Message != nil && !update.Message.IsCommand() {
		reqType = "question"
	}
	b.metrics.RecordRequest(reqType, "processed", time.Since(startTime))
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sender == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) SendTyping(chatID int64) {
	if b.sender == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.sender.Send(action)
}

func (b *Bot) RecordRateLimitHit(userID int64) {
	b.logger.Debug("rate limit hit", zap.Int64("user_id", userID))
	b.metrics.RecordRateLimitHit("telegram")
}

func (b *Bot) rememberAnswer(chatID int64, resp *domain.AskResponse) {
	b.recent.Set(strconv.FormatInt(chatID, 10), resp, b.detailsTTL)
}

func (b *Bot) lastAnswer(chatID int64) (*domain.AskResponse, bool) {
	return b.recent.Get(strconv.FormatInt(chatID, 10))
}
