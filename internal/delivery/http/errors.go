package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// errorStatus maps an error kind to its HTTP status and wire code.
var errorStatus = map[error]struct {
	status int
	code   string
}{
	entities.ErrInvalidMode:             {http.StatusBadRequest, "invalid_mode"},
	entities.ErrInvalidRequest:          {http.StatusBadRequest, "invalid_request"},
	entities.ErrEmptyQuestionPool:       {http.StatusUnprocessableEntity, "empty_question_pool"},
	entities.ErrSessionNotFound:         {http.StatusNotFound, "session_not_found"},
	entities.ErrSessionNotActive:        {http.StatusConflict, "session_not_active"},
	entities.ErrQuestionNotInSession:    {http.StatusConflict, "question_not_in_session"},
	entities.ErrDuplicateAnswer:         {http.StatusConflict, "duplicate_answer"},
	entities.ErrSessionAlreadyCompleted: {http.StatusConflict, "session_already_completed"},
	entities.ErrStorageUnavailable:      {http.StatusServiceUnavailable, "storage_unavailable"},
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	SessionID  string `json:"session_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

// writeError renders err as a JSON error response and aborts the chain.
// Errors without a kind become 500 and their text is not exposed.
func (h *Handler) writeError(c *gin.Context, err error) {
	mapped, ok := errorStatus[entities.Kind(err)]
	if !ok {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWith(c, http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"})
		return
	}

	body := errorBody{Code: mapped.code, Message: err.Error()}
	var e *entities.Error
	if errors.As(err, &e) {
		body.SessionID = e.SessionID
		body.QuestionID = e.QuestionID
	}
	if mapped.status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	abortWith(c, mapped.status, body)
}

func abortWith(c *gin.Context, status int, body errorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
