// Package telegram runs exam sessions through a Telegram bot.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Handler struct {
	bot             Bot
	logger          *zap.Logger
	sessionService  SessionService
	progressService ProgressService
	messages        MessageTracker
}

func NewHandler(
	bot Bot,
	logger *zap.Logger,
	sessionService SessionService,
	progressService ProgressService,
	messages MessageTracker,
) *Handler {
	return &Handler{
		bot:             bot,
		logger:          logger,
		sessionService:  sessionService,
		progressService: progressService,
		messages:        messages,
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("text", update.Message.Text),
	)

	chatID := update.Message.Chat.ID
	userID := userKey(update.Message.From.ID)

	if !update.Message.IsCommand() {
		_ = h.send(newPlainMessage(chatID, msgUnknownCommand))
		return
	}

	args := update.Message.CommandArguments()
	switch update.Message.Command() {
	case "start":
		_ = h.withErrorHandling(h.handleStart())(ctx, chatID)
	case "help":
		_ = h.send(newMessage(chatID, helpMessage()))
	case "quiz":
		_ = h.withErrorHandling(h.handleQuiz(userID, args))(ctx, chatID)
	case "finish":
		_ = h.withErrorHandling(h.handleFinish(userID))(ctx, chatID)
	case "abandon":
		_ = h.withErrorHandling(h.handleAbandon(userID))(ctx, chatID)
	case "progress":
		_ = h.withErrorHandling(h.handleProgress(userID, args))(ctx, chatID)
	default:
		_ = h.send(newPlainMessage(chatID, msgUnknownCommand))
	}
}

// userKey maps a Telegram user to the session owner id.
func userKey(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func (h *Handler) send(c tgbotapi.Chattable) error {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message", zap.Error(err))
		return err
	}
	return nil
}
