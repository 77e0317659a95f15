// Package report renders printable session reports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/service"
)

const (
	pageWidth  = 190.0
	lineHeight = 6.0
)

// WritePDF renders r as an A4 PDF document into w.
func WritePDF(w io.Writer, r *service.SessionReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Exam session "+r.Session.ID, true)
	pdf.AddPage()

	writeHeader(pdf, tr, r.Summary)

	byQuestion := make(map[string]*entities.AnswerRecord, len(r.Answers))
	for _, a := range r.Answers {
		byQuestion[a.QuestionID] = a
	}

	for i, id := range r.Session.QuestionIDs {
		q, ok := r.Questions[id]
		if !ok {
			continue
		}
		writeQuestion(pdf, tr, i+1, q, byQuestion[id])
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeHeader(pdf *gofpdf.Fpdf, tr func(string) string, s *entities.SessionSummary) {
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Exam session report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Session", s.SessionID},
		{"Mode", string(s.Mode)},
		{"Status", string(s.Status)},
		{"Started", s.StartedAt.Format(time.RFC1123)},
		{"Answered", fmt.Sprintf("%d of %d", s.AnsweredCount, s.TotalQuestions)},
		{"Correct", fmt.Sprintf("%d", s.CorrectCount)},
		{"Score", fmt.Sprintf("%.1f%%", s.ScorePercentage)},
		{"Time spent", (time.Duration(s.TotalTimeSeconds) * time.Second).String()},
	}
	if s.CompletedAt != nil {
		rows = append(rows, [2]string{"Completed", s.CompletedAt.Format(time.RFC1123)})
	}
	for _, row := range rows {
		pdf.CellFormat(35, lineHeight, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, tr(row[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, lineHeight, fmt.Sprintf("%s your correct choice   %s your wrong choice   %s correct answer",
		markChosenRight, markChosenWrong, markAnswer))
	pdf.Ln(lineHeight)

	pdf.Ln(4)
	pdf.Line(10, pdf.GetY(), 10+pageWidth, pdf.GetY())
	pdf.Ln(4)
}

func writeQuestion(pdf *gofpdf.Fpdf, tr func(string) string, n int, q *entities.Question, a *entities.AnswerRecord) {
	pdf.SetFont("Arial", "B", 11)
	pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%d. %s", n, q.Text)), "", "L", false)

	pdf.SetFont("Arial", "", 10)
	for i, opt := range q.Options {
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%s %c) %s", optionMark(q, a, i), 'A'+i, opt)), "", "L", false)
	}

	switch {
	case a == nil:
		pdf.SetTextColor(120, 120, 120)
		pdf.Cell(0, lineHeight, "Not answered")
		pdf.Ln(lineHeight)
	case a.IsCorrect:
		pdf.SetTextColor(0, 128, 0)
		pdf.Cell(0, lineHeight, fmt.Sprintf("Correct (%ds)", a.TimeSpentSeconds))
		pdf.Ln(lineHeight)
	default:
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(0, lineHeight, fmt.Sprintf("Incorrect, answer is %c (%ds)", 'A'+q.CorrectAnswerIndex, a.TimeSpentSeconds))
		pdf.Ln(lineHeight)
	}
	pdf.SetTextColor(0, 0, 0)

	if q.Explanation != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, lineHeight-1, tr(q.Explanation), "", "L", false)
	}
	pdf.Ln(3)
}

// Option marks.
const (
	markChosenRight = "[+]"
	markChosenWrong = "[x]"
	markAnswer      = "[*]"
	markOther       = "[ ]"
)

// optionMark marks option i of an answered question: the user's choice and,
// after a wrong answer, the correct option.
func optionMark(q *entities.Question, a *entities.AnswerRecord, i int) string {
	switch {
	case a == nil:
		return markOther
	case i == a.SelectedOptionIndex && a.IsCorrect:
		return markChosenRight
	case i == a.SelectedOptionIndex:
		return markChosenWrong
	case i == q.CorrectAnswerIndex:
		return markAnswer
	}
	return markOther
}
