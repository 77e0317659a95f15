package entities

import "time"

// EventType is the routing key of a session lifecycle event.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventAnswerSubmitted  EventType = "answer.submitted"
	EventSessionCompleted EventType = "session.completed"
	EventSessionAbandoned EventType = "session.abandoned"
)

// Event is published after a session state change commits.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}
