package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/search"
	"github.com/kitbuilder587/webqa/internal/service"
)

const historyLimit = 10

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() && !IsQuestionCommand(msg.Command()) {
		h.handleCommand(ctx, msg)
		return
	}
	h.handleQuestion(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "history":
		h.handleHistory(ctx, msg)
	case "details":
		h.handleDetails(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.Send(msg.Chat.ID, "Привет! Задайте вопрос, и я найду ответ в свежей поисковой выдаче.\n\nИспользуйте /help для просмотра доступных команд.")
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := fmt.Sprintf(`<b>Доступные команды:</b>

/start - Приветствие
/help - Показать эту справку
/history - Последние %d вопросов этого чата
/details - Подробности последнего ответа: ветка, источники с описаниями

<b>Режимы ответа:</b>
/ask вопрос - Обычный ответ (статьи загружаются целиком)
/fast вопрос - Быстрый ответ по описаниям из выдачи
/force вопрос - Игнорировать готовый ответ поисковика и спросить модель

<b>Как использовать:</b>
Просто отправьте вопрос. Я поищу в интернете, соберу контекст из найденных страниц и сформулирую ответ.

<b>Примеры:</b>
• Кто сейчас генеральный секретарь ООН?
• /fast курс биткоина сегодня
• /force кто играл Железного человека`, historyLimit)

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	records, err := h.bot.askService.History(ctx, msg.Chat.ID, historyLimit)
	if err != nil {
		if !errors.Is(err, service.ErrHistoryDisabled) {
			h.bot.logger.Error("failed to list history", zap.Error(err))
		}
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.Send(msg.Chat.ID, FormatHistory(records))
}

func (h *Handler) handleDetails(ctx context.Context, msg *tgbotapi.Message) {
	resp, ok := h.bot.lastAnswer(msg.Chat.ID)
	if !ok {
		h.bot.Send(msg.Chat.ID, "Пока нечего показать. Сначала задайте вопрос.")
		return
	}

	for _, m := range SplitMessage(FormatDetails(resp), maxMessageLength) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) handleQuestion(ctx context.Context, msg *tgbotapi.Message) {
	question, opts := ParseQuestionCommand(msg.Text, h.bot.defaults)

	if !h.bot.rateLimiter.Allow(msg.From.ID) {
		resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", resetTime),
		)
		h.bot.RecordRateLimitHit(msg.From.ID)
		h.bot.Send(msg.Chat.ID, "Слишком много запросов. Пожалуйста, подождите минуту.")
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	req := &domain.AskRequest{
		ChatID:   msg.Chat.ID,
		Question: question,
		Options:  opts,
	}

	resp, err := h.bot.askService.Ask(ctx, req)
	if err != nil {
		h.bot.logger.Error("question processing failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.rememberAnswer(msg.Chat.ID, resp)

	formatted := FormatAnswer(resp)
	if opts.Fast() {
		formatted = "<i>Быстрый режим</i>\n\n" + formatted
	}

	for _, m := range SplitMessage(formatted, maxMessageLength) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return "Пустой вопрос. Напишите, что вы хотите узнать."
	case errors.Is(err, domain.ErrQuestionTooLong):
		return fmt.Sprintf("Вопрос слишком длинный. Максимум %d символов.", domain.MaxQuestionLength)
	case errors.Is(err, domain.ErrNoSearchResults):
		return "Не найдено результатов по вашему вопросу."
	case errors.Is(err, search.ErrRateLimit):
		return "Поисковик временно ограничил запросы. Попробуйте через минуту."
	case errors.Is(err, search.ErrUnauthorized), errors.Is(err, search.ErrMissingAPIKey):
		return "Поиск не настроен. Обратитесь к администратору бота."
	case errors.Is(err, domain.ErrInvalidProvider):
		return "Выбранный поисковик не настроен."
	case errors.Is(err, service.ErrHistoryDisabled):
		return "История не сохраняется: база данных не подключена."
	case errors.Is(err, context.DeadlineExceeded):
		return "Не успел найти ответ. Попробуйте /fast."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
