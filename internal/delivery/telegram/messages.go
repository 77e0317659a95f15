// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// Error messages.
const (
	msgInvalidMode     = "Unknown mode. Available modes: quick, full, custom, practice, review_mistakes, unseen_only."
	msgInvalidRequest  = "That request is not valid."
	msgNoQuestions     = "There are no questions for this mode right now. Try another mode or topic."
	msgNoActiveSession = "You have no active exam session. Start one with /quiz."
	msgStaleQuestion   = "This question is no longer current. Use /quiz to see where you are."
	msgAlreadyAnswered = "You have already answered this question."
	msgTryLater        = "The service is busy. Please try again in a moment."
	msgInternalError   = "Something went wrong. Please try again later."
	msgUseProgress     = "Usage: /progress <topic> or /progress set <set id>.\nExample: /progress grammar"
	msgUnknownCommand  = "Unknown command. Send /help to see what I can do."
)

// md escapes plain text for MarkdownV2.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func bold(s string) string {
	return "*" + md(s) + "*"
}

// newMessage creates a message with MarkdownV2 parse mode.
func newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return msg
}

// newPlainMessage creates a plain message without MarkdownV2 parse mode.
func newPlainMessage(chatID int64, text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, text)
}

// newEdit creates an edit with MarkdownV2 parse mode.
func newEdit(chatID int64, msgID int, text string) tgbotapi.EditMessageTextConfig {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	return edit
}

func welcomeMessage() string {
	var sb strings.Builder

	sb.WriteString(bold("Exam Simulator"))
	sb.WriteString("\n\n")
	sb.WriteString(md("Practice for your English exam with timed multiple-choice sessions. " +
		"Every answer is recorded, so you can review mistakes and track progress by topic."))
	sb.WriteString("\n\n")
	sb.WriteString(md("Pick a mode below to begin, or send /help for all commands."))

	return sb.String()
}

func helpMessage() string {
	lines := []string{
		"/quiz [mode] [topic] - start a session or resume the active one",
		"/finish - finish the active session and see your score",
		"/abandon - drop the active session",
		"/progress <topic> - your progress in a topic",
		"/progress set <set id> - your progress in a question set",
		"",
		"Modes:",
	}
	for _, m := range entities.Modes {
		lines = append(lines, fmt.Sprintf("  %s - %s", m, formatMode(m)))
	}
	return md(strings.Join(lines, "\n"))
}

// formatMode describes a mode for display.
func formatMode(mode entities.Mode) string {
	switch mode {
	case entities.ModeQuick:
		return "10 random questions"
	case entities.ModeFull:
		return "a full-length exam"
	case entities.ModeCustom:
		return "your own filters"
	case entities.ModePractice:
		return "relaxed practice"
	case entities.ModeReviewMistakes:
		return "questions you got wrong"
	case entities.ModeUnseenOnly:
		return "questions you have never seen"
	default:
		return string(mode)
	}
}

func formatSessionStart(s *entities.Session) string {
	return fmt.Sprintf(
		"%s\n\n%s %s\n%s %s",
		bold("Session started"),
		md("Mode:"),
		bold(string(s.Mode)),
		md("Questions:"),
		bold(fmt.Sprintf("%d", s.Total())),
	)
}

// formatQuestion formats a question (MarkdownV2 safe).
func formatQuestion(q *entities.PublicQuestion) string {
	var sb strings.Builder

	sb.WriteString(md(fmt.Sprintf("Question %d of %d · %s · %s", q.Position+1, q.Total, q.Topic, q.Difficulty)))
	sb.WriteString("\n\n")
	sb.WriteString(bold(q.Text))
	sb.WriteString("\n")
	for i, opt := range q.Options {
		sb.WriteString("\n")
		sb.WriteString(md(fmt.Sprintf("%c) %s", 'A'+i, opt)))
	}
	return sb.String()
}

// formatAnswered replaces a question's text once it is answered.
func formatAnswered(q *entities.PublicQuestion, selected int, correct bool) string {
	verdict := "❌ Incorrect"
	if correct {
		verdict = "✅ Correct"
	}

	choice := ""
	if selected >= 0 && selected < len(q.Options) {
		choice = q.Options[selected]
	}

	return fmt.Sprintf(
		"%s\n\n%s\n\n%s %s\n%s",
		md(fmt.Sprintf("Question %d of %d", q.Position+1, q.Total)),
		bold(q.Text),
		md("Your answer:"),
		bold(fmt.Sprintf("%c) %s", 'A'+selected, choice)),
		md(verdict),
	)
}

// formatSummary formats session results (MarkdownV2 safe).
func formatSummary(s *entities.SessionSummary) string {
	emoji, message := "📚", "Keep practicing, you will get there."
	switch {
	case s.ScorePercentage >= 90:
		emoji, message = "🌟", "Excellent result!"
	case s.ScorePercentage >= 70:
		emoji, message = "👍", "Good result!"
	case s.ScorePercentage >= 50:
		emoji, message = "💪", "Not bad, keep going!"
	}

	return fmt.Sprintf(
		"%s %s\n\n%s %s\n%s\n%s\n\n%s",
		md(emoji),
		md("Session finished!"),
		md("Score:"),
		bold(fmt.Sprintf("%d/%d (%.0f%%)", s.CorrectCount, s.AnsweredCount, s.ScorePercentage)),
		md(buildProgressBar(s.CorrectCount, s.TotalQuestions, 10)),
		md(fmt.Sprintf("Answered %d of %d questions in %ds.", s.AnsweredCount, s.TotalQuestions, s.TotalTimeSeconds)),
		md(message),
	)
}

// formatProgress formats a progress summary (MarkdownV2 safe).
func formatProgress(p *entities.ProgressSummary) string {
	lines := []string{
		bold(fmt.Sprintf("📊 Progress in %s %s", p.Scope.Kind, p.Scope.ID)),
		"",
		md(buildProgressBar(p.AnsweredCount, p.TotalQuestions, 20)),
		"",
		md(fmt.Sprintf("✅ Correct: %d / %d", p.CorrectCount, p.TotalQuestions)),
		md(fmt.Sprintf("📖 Answered: %d (%.1f%%)", p.AnsweredCount, p.CompletionPercentage)),
		md(fmt.Sprintf("🎯 Accuracy: %.1f%%", p.AccuracyPercentage)),
		md(fmt.Sprintf("🔁 Sessions: %d", p.AttemptCount)),
	}
	if p.LastScorePercentage != nil {
		lines = append(lines, md(fmt.Sprintf("🕑 Last score: %.0f%%", *p.LastScorePercentage)))
	}
	if p.BestScorePercentage != nil {
		lines = append(lines, md(fmt.Sprintf("🏆 Best score: %.0f%%", *p.BestScorePercentage)))
	}
	return strings.Join(lines, "\n")
}

// buildProgressBar creates ASCII progress bar.
func buildProgressBar(current, total, length int) string {
	if total == 0 {
		return fmt.Sprintf("[%s]", strings.Repeat("░", length))
	}

	filled := int(float64(current) / float64(total) * float64(length))
	if filled > length {
		filled = length
	}

	empty := length - filled
	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("[%s]", bar)
}
