package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

const defaultStorageTimeout = 5 * time.Second

// withTimeout bounds a storage round trip. The caller's deadline wins when
// it is earlier.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultStorageTimeout
	}
	return context.WithTimeout(ctx, d)
}

// classify maps a bare deadline error to ErrStorageUnavailable. Errors that
// already carry a kind pass through.
func classify(err error) error {
	if err == nil || entities.Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.NewError(entities.ErrStorageUnavailable, "", "").WithCause(err)
	}
	return err
}

func invalidRequest(format string, args ...any) error {
	return entities.NewError(entities.ErrInvalidRequest, "", "").WithDetail(format, args...)
}

// sessionFields returns the standard log fields for a session.
func sessionFields(s *entities.Session) []zap.Field {
	return []zap.Field{
		zap.String("session_id", s.ID),
		zap.String("user_id", s.UserID),
		zap.String("mode", string(s.Mode)),
		zap.String("status", string(s.Status)),
		zap.Int("current_index", s.CurrentIndex),
		zap.Int("total", s.Total()),
	}
}
