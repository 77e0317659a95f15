package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// handleStart greets the user and offers the mode picker.
func (h *Handler) handleStart() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		msg := newMessage(chatID, welcomeMessage())
		msg.ReplyMarkup = buildModeKeyboard()
		return h.send(msg)
	}
}

// handleQuiz resumes the active session, or starts one when a mode is given.
func (h *Handler) handleQuiz(userID, args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		active, err := h.sessionService.GetActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			if err := h.send(newMessage(chatID, md("📝 Resuming your session..."))); err != nil {
				return err
			}
			return h.sendQuestion(ctx, chatID, userID, active.ID)
		}

		fields := strings.Fields(args)
		if len(fields) == 0 {
			msg := newMessage(chatID, md("Choose a mode:"))
			msg.ReplyMarkup = buildModeKeyboard()
			return h.send(msg)
		}

		var filters entities.Filters
		if len(fields) > 1 {
			filters.Topic = fields[1]
		}
		return h.startSession(ctx, chatID, userID, entities.Mode(fields[0]), filters)
	}
}

func (h *Handler) startSession(ctx context.Context, chatID int64, userID string, mode entities.Mode, filters entities.Filters) error {
	session, err := h.sessionService.StartSession(ctx, userID, mode, filters)
	if err != nil {
		return err
	}

	h.logger.Debug("session started from telegram",
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
	)

	if err := h.send(newMessage(chatID, formatSessionStart(session))); err != nil {
		return err
	}
	return h.sendQuestion(ctx, chatID, userID, session.ID)
}

// sendQuestion sends the session's current question with an answer
// keyboard and strips the keyboard from the previous one.
func (h *Handler) sendQuestion(ctx context.Context, chatID int64, userID, sessionID string) error {
	q, err := h.sessionService.CurrentQuestion(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	msg := newMessage(chatID, formatQuestion(q))
	msg.ReplyMarkup = buildAnswerKeyboard(q, sessionID)

	sent, err := h.bot.Send(msg)
	if err != nil {
		return err
	}

	if prev, ok := h.messages.UpsertAndGetPrev(userID, chatID, sent.MessageID); ok && prev.MessageID != sent.MessageID {
		h.clearKeyboard(prev.ChatID, prev.MessageID)
	}
	return nil
}

// clearKeyboard removes an inline keyboard. Failures are ignored: the
// message may be too old to edit.
func (h *Handler) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = h.bot.Request(edit)
}

// handleFinish completes the active session early.
func (h *Handler) handleFinish(userID string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		active, err := h.activeSession(ctx, userID)
		if err != nil {
			return err
		}
		return h.finish(ctx, chatID, userID, active.ID)
	}
}

func (h *Handler) finish(ctx context.Context, chatID int64, userID, sessionID string) error {
	summary, err := h.sessionService.CompleteSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if prev, ok := h.messages.Get(userID); ok {
		h.clearKeyboard(prev.ChatID, prev.MessageID)
		h.messages.Delete(userID)
	}
	return h.sendSummary(chatID, summary, "")
}

func (h *Handler) sendSummary(chatID int64, summary *entities.SessionSummary, topic string) error {
	msg := newMessage(chatID, formatSummary(summary))
	msg.ReplyMarkup = buildResultKeyboard(topic)
	return h.send(msg)
}

// handleAbandon drops the active session.
func (h *Handler) handleAbandon(userID string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		active, err := h.activeSession(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := h.sessionService.AbandonSession(ctx, userID, active.ID); err != nil {
			return err
		}
		if prev, ok := h.messages.Get(userID); ok {
			h.clearKeyboard(prev.ChatID, prev.MessageID)
			h.messages.Delete(userID)
		}
		return h.send(newMessage(chatID, md("Session abandoned. Start a new one with /quiz.")))
	}
}

// handleProgress displays the user's progress in a topic or set.
func (h *Handler) handleProgress(userID, args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		fields := strings.Fields(args)

		var (
			summary *entities.ProgressSummary
			err     error
		)
		switch {
		case len(fields) == 1:
			summary, err = h.progressService.SummarizeByTopic(ctx, userID, fields[0])
		case len(fields) == 2 && fields[0] == "set":
			summary, err = h.progressService.SummarizeBySet(ctx, userID, fields[1])
		default:
			return h.send(newPlainMessage(chatID, msgUseProgress))
		}
		if err != nil {
			return err
		}
		return h.send(newMessage(chatID, formatProgress(summary)))
	}
}

func (h *Handler) activeSession(ctx context.Context, userID string) (*entities.Session, error) {
	active, err := h.sessionService.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, entities.NewError(entities.ErrSessionNotActive, "", "")
	}
	return active, nil
}

// timeSpent estimates how long the user looked at a question message.
func (h *Handler) timeSpent(userID string, messageID int, now time.Time) int {
	tracked, ok := h.messages.Get(userID)
	if !ok || tracked.MessageID != messageID {
		return 0
	}
	return int(now.Sub(tracked.SentAt).Seconds())
}
