package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PushMessage carries a push notification from the backend to clients.
// Body is shown verbatim as the notification text.
type PushMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Event     string    `json:"event"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPushMessage creates a message with a fresh id.
func NewPushMessage(userID int64, event, body string) *PushMessage {
	return &PushMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Event:     event,
		Body:      body,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PushMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PushMessageFromJSON decodes a message.
func PushMessageFromJSON(data []byte) (*PushMessage, error) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
