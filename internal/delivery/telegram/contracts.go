package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/service"
	"github.com/aliskhannn/exam-simulation/internal/storage"
)

type SessionService interface {
	StartSession(ctx context.Context, userID string, mode entities.Mode, filters entities.Filters) (*entities.Session, error)
	GetActiveSession(ctx context.Context, userID string) (*entities.Session, error)
	CurrentQuestion(ctx context.Context, userID, sessionID string) (*entities.PublicQuestion, error)
	SubmitAnswer(ctx context.Context, in service.SubmitAnswerInput) (*service.SubmitResult, error)
	AbandonSession(ctx context.Context, userID, sessionID string) (*entities.Session, error)
	CompleteSession(ctx context.Context, userID, sessionID string) (*entities.SessionSummary, error)
}

type ProgressService interface {
	SummarizeByTopic(ctx context.Context, userID, topic string) (*entities.ProgressSummary, error)
	SummarizeBySet(ctx context.Context, userID, setID string) (*entities.ProgressSummary, error)
}

// Bot is the part of *tgbotapi.BotAPI the handler uses.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type MessageTracker interface {
	Get(userID string) (storage.TrackedMessage, bool)
	UpsertAndGetPrev(userID string, chatID int64, messageID int) (prev storage.TrackedMessage, hadPrev bool)
	Delete(userID string)
}
