package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/service"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Remove the user's "clock".
	defer func() {
		if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			h.logger.Debug("callback answer error", zap.Error(err))
		}
	}()

	if cb.Message == nil {
		return
	}

	chatID := cb.Message.Chat.ID
	userID := userKey(cb.From.ID)
	cd := decodeCallback(cb.Data)

	var fn HandlerFunc
	switch cd.Action {
	case actionAnswer:
		a, ok := parseAnswerCallback(cd)
		if !ok {
			h.logger.Warn("invalid answer callback", zap.String("data", cb.Data))
			return
		}
		fn = h.handleAnswer(userID, cb.Message.MessageID, a)
	case actionQuiz:
		if len(cd.Params) != 1 {
			return
		}
		fn = h.handleQuiz(userID, cd.Params[0])
	case actionFinish:
		if len(cd.Params) != 1 {
			return
		}
		sessionID := cd.Params[0]
		fn = func(ctx context.Context, chatID int64) error {
			return h.finish(ctx, chatID, userID, sessionID)
		}
	case actionProgress:
		if len(cd.Params) != 1 {
			return
		}
		fn = h.handleProgress(userID, cd.Params[0])
	default:
		h.logger.Debug("unknown callback", zap.String("data", cb.Data))
		return
	}

	_ = h.withErrorHandling(fn)(ctx, chatID)
}

// handleAnswer submits the option pressed under the question at a.Position.
func (h *Handler) handleAnswer(userID string, messageID int, a answerCallback) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		q, err := h.sessionService.CurrentQuestion(ctx, userID, a.SessionID)
		if err != nil {
			return err
		}
		switch {
		case a.Position < q.Position:
			return entities.NewError(entities.ErrDuplicateAnswer, a.SessionID, "")
		case a.Position > q.Position:
			return entities.NewError(entities.ErrQuestionNotInSession, a.SessionID, "")
		}

		res, err := h.sessionService.SubmitAnswer(ctx, service.SubmitAnswerInput{
			UserID:              userID,
			SessionID:           a.SessionID,
			QuestionID:          q.ID,
			SelectedOptionIndex: a.Option,
			TimeSpentSeconds:    h.timeSpent(userID, messageID, time.Now()),
		})
		if err != nil {
			return err
		}

		if err := h.send(newEdit(chatID, messageID, formatAnswered(q, a.Option, res.Answer.IsCorrect))); err != nil {
			return err
		}

		if res.Summary != nil {
			h.messages.Delete(userID)
			return h.sendSummary(chatID, res.Summary, q.Topic)
		}
		return h.sendQuestion(ctx, chatID, userID, a.SessionID)
	}
}
