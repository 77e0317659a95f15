package telegram

import (
	"context"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

type HandlerFunc func(ctx context.Context, chatID int64) error

// withErrorHandling reports failures to the chat. Domain errors get a
// specific message; anything else is logged as internal.
func (h *Handler) withErrorHandling(fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		err := fn(ctx, chatID)
		if err == nil {
			return nil
		}

		text, known := errorMessage(err)
		if known {
			h.logger.Debug("request rejected", zap.Int64("chat_id", chatID), zap.Error(err))
		} else {
			h.logger.Error("handle error", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return h.send(newPlainMessage(chatID, text))
	}
}

// errorMessage maps an error to a user-facing message.
func errorMessage(err error) (string, bool) {
	switch entities.Kind(err) {
	case entities.ErrInvalidMode:
		return msgInvalidMode, true
	case entities.ErrInvalidRequest:
		return msgInvalidRequest, true
	case entities.ErrEmptyQuestionPool:
		return msgNoQuestions, true
	case entities.ErrSessionNotFound, entities.ErrSessionNotActive, entities.ErrSessionAlreadyCompleted:
		return msgNoActiveSession, true
	case entities.ErrQuestionNotInSession:
		return msgStaleQuestion, true
	case entities.ErrDuplicateAnswer:
		return msgAlreadyAnswered, true
	case entities.ErrStorageUnavailable:
		return msgTryLater, true
	default:
		return msgInternalError, false
	}
}
