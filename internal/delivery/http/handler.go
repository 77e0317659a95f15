// Package http exposes the session service as a JSON API.
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/report"
	"github.com/aliskhannn/exam-simulation/internal/service"
)

// SessionService is the session state machine served by the API.
type SessionService interface {
	StartSession(ctx context.Context, userID string, mode entities.Mode, filters entities.Filters) (*entities.Session, error)
	GetActiveSession(ctx context.Context, userID string) (*entities.Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*entities.Session, error)
	CurrentQuestion(ctx context.Context, userID, sessionID string) (*entities.PublicQuestion, error)
	SubmitAnswer(ctx context.Context, in service.SubmitAnswerInput) (*service.SubmitResult, error)
	SessionAnswers(ctx context.Context, userID, sessionID string) ([]*entities.AnswerRecord, error)
	AbandonSession(ctx context.Context, userID, sessionID string) (*entities.Session, error)
	CompleteSession(ctx context.Context, userID, sessionID string) (*entities.SessionSummary, error)
	SessionSummary(ctx context.Context, userID, sessionID string) (*entities.SessionSummary, error)
	Report(ctx context.Context, userID, sessionID string) (*service.SessionReport, error)
}

// ProgressService computes progress summaries.
type ProgressService interface {
	SummarizeByTopic(ctx context.Context, userID, topic string) (*entities.ProgressSummary, error)
	SummarizeBySet(ctx context.Context, userID, setID string) (*entities.ProgressSummary, error)
}

// Handler serves the session and progress endpoints.
type Handler struct {
	sessions SessionService
	progress ProgressService
	logger   *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(sessions SessionService, progress ProgressService, logger *zap.Logger) *Handler {
	return &Handler{sessions: sessions, progress: progress, logger: logger}
}

type startSessionRequest struct {
	Mode string `json:"mode"`
	entities.Filters
}

// StartSession handles POST /sessions.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badBody(err))
		return
	}

	session, err := h.sessions.StartSession(c.Request.Context(), userID(c), entities.Mode(req.Mode), req.Filters)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetActiveSession handles GET /sessions/active.
func (h *Handler) GetActiveSession(c *gin.Context) {
	session, err := h.sessions.GetActiveSession(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// GetSession handles GET /sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CurrentQuestion handles GET /sessions/:id/question.
func (h *Handler) CurrentQuestion(c *gin.Context) {
	q, err := h.sessions.CurrentQuestion(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type submitAnswerRequest struct {
	QuestionID          string `json:"question_id" binding:"required"`
	SelectedOptionIndex *int   `json:"selected_option_index" binding:"required"`
	TimeSpentSeconds    int    `json:"time_spent_seconds"`
}

// SubmitAnswer handles POST /sessions/:id/answers.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badBody(err))
		return
	}

	res, err := h.sessions.SubmitAnswer(c.Request.Context(), service.SubmitAnswerInput{
		UserID:              userID(c),
		SessionID:           c.Param("id"),
		QuestionID:          req.QuestionID,
		SelectedOptionIndex: *req.SelectedOptionIndex,
		TimeSpentSeconds:    req.TimeSpentSeconds,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// SessionAnswers handles GET /sessions/:id/answers.
func (h *Handler) SessionAnswers(c *gin.Context) {
	answers, err := h.sessions.SessionAnswers(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if answers == nil {
		answers = []*entities.AnswerRecord{}
	}
	c.JSON(http.StatusOK, answers)
}

// AbandonSession handles POST /sessions/:id/abandon.
func (h *Handler) AbandonSession(c *gin.Context) {
	session, err := h.sessions.AbandonSession(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CompleteSession handles POST /sessions/:id/complete.
func (h *Handler) CompleteSession(c *gin.Context) {
	summary, err := h.sessions.CompleteSession(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SessionSummary handles GET /sessions/:id/summary.
func (h *Handler) SessionSummary(c *gin.Context) {
	summary, err := h.sessions.SessionSummary(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SessionReport handles GET /sessions/:id/report.pdf.
func (h *Handler) SessionReport(c *gin.Context) {
	r, err := h.sessions.Report(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, r); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="session-`+r.Session.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// TopicProgress handles GET /progress/topics/:topic.
func (h *Handler) TopicProgress(c *gin.Context) {
	summary, err := h.progress.SummarizeByTopic(c.Request.Context(), userID(c), c.Param("topic"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SetProgress handles GET /progress/sets/:set.
func (h *Handler) SetProgress(c *gin.Context) {
	summary, err := h.progress.SummarizeBySet(c.Request.Context(), userID(c), c.Param("set"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func badBody(err error) error {
	detail := err.Error()
	if errors.Is(err, io.EOF) {
		detail = "request body is required"
	}
	return entities.NewError(entities.ErrInvalidRequest, "", "").WithDetail("%s", detail)
}
