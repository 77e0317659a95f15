package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// buildModeKeyboard builds the mode picker shown on /start and /quiz.
func buildModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(entities.Modes); i += 2 {
		var row []tgbotapi.InlineKeyboardButton
		for _, m := range entities.Modes[i:min(i+2, len(entities.Modes))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(m), buildQuizStartCallback(string(m))))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildAnswerKeyboard builds keyboard for a question.
func buildAnswerKeyboard(q *entities.PublicQuestion, sessionID string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := range q.Options {
		data := buildAnswerCallback(sessionID, q.Position, i)
		button := tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%c", 'A'+i), data)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏁 Finish now", buildFinishCallback(sessionID)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildResultKeyboard builds keyboard for the results screen.
func buildResultKeyboard(topic string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 New quick session", buildQuizStartCallback(string(entities.ModeQuick))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧐 Review mistakes", buildQuizStartCallback(string(entities.ModeReviewMistakes))),
		),
	}
	if topic != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Progress in "+topic, buildProgressCallback(topic)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
