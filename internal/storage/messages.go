package storage

import (
	"sync"
	"time"
)

// TrackedMessage identifies a chat message that carries an answer keyboard.
type TrackedMessage struct {
	ChatID    int64
	MessageID int
	SentAt    time.Time
}

// MessageTracker remembers the last question message sent to each user so
// its keyboard can be removed once it is answered or replaced.
type MessageTracker struct {
	mu       sync.RWMutex
	messages map[string]TrackedMessage
}

func NewMessageTracker() *MessageTracker {
	return &MessageTracker{
		messages: make(map[string]TrackedMessage),
	}
}

func (s *MessageTracker) Get(userID string) (TrackedMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[userID]
	return msg, ok
}

func (s *MessageTracker) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, userID)
}

// UpsertAndGetPrev stores the new message and returns the one it replaced.
func (s *MessageTracker) UpsertAndGetPrev(userID string, chatID int64, messageID int) (prev TrackedMessage, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev = s.messages[userID]

	s.messages[userID] = TrackedMessage{
		ChatID:    chatID,
		MessageID: messageID,
		SentAt:    time.Now(),
	}

	return prev, hadPrev
}
