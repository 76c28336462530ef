package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
)

// EventType names an outbound event.
type EventType string

// Outbound event types.
const (
	EventInitProfile       EventType = "INIT_PROFILE"
	EventProfileUpdate     EventType = "PROFILE_UPDATE"
	EventAssistantQuestion EventType = "ASSISTANT_QUESTION"
	EventProfileComplete   EventType = "PROFILE_COMPLETE"
	EventError             EventType = "ERROR"
	EventPong              EventType = "pong"
)

// Inbound message types.
const (
	msgUserMessage = "user_message"
	msgUserAnswer  = "USER_ANSWER"
	msgPing        = "ping"
)

// User-facing messages.
const (
	ChatCompleteMessage   = "🎉 Congratulations! Your wellness profile is now complete! You're ready for personalized recommendations."
	UnknownFormatMessage  = "Unknown message format"
	InternalErrorMessage  = "An unexpected error occurred"
	RateLimitedMessage    = "Too many messages, slow down"
	defaultUpdateResponse = "Thank you for your response!"
)

var errUnknownMessage = errors.New("unknown message format")

// Event is the envelope of every outbound message.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp string    `json:"timestamp"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func errorEvent(message string) Event {
	return newEvent(EventError, messageData{Message: message})
}

type messageData struct {
	Message string `json:"message"`
}

// updateData is the PROFILE_UPDATE payload.
type updateData struct {
	Message         string             `json:"message"`
	Profile         *domain.Profile    `json:"profile"`
	ExtractedFields []domain.FieldName `json:"extracted_fields"`
}

// completeData is the PROFILE_COMPLETE payload.
type completeData struct {
	Message string          `json:"message"`
	Profile *domain.Profile `json:"profile"`
}

// questionData is the ASSISTANT_QUESTION payload.
type questionData struct {
	Question string                  `json:"question"`
	Field    domain.FieldName        `json:"field"`
	Context  *domain.QuestionContext `json:"context"`
}

// inbound is the union of accepted client messages.
type inbound struct {
	Type    string         `json:"type"`
	Message *string        `json:"message"`
	Data    *answerPayload `json:"data"`
}

type answerPayload struct {
	Answer  *string                 `json:"answer"`
	Context *domain.QuestionContext `json:"context"`
}

// parseInbound decodes a client frame. Anything that is not one of the
// accepted shapes yields errUnknownMessage.
func parseInbound(data []byte) (inbound, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return inbound{}, errUnknownMessage
	}
	switch msg.Type {
	case msgUserMessage:
		if msg.Message == nil {
			return inbound{}, errUnknownMessage
		}
	case msgUserAnswer:
		if msg.Data == nil || msg.Data.Answer == nil {
			return inbound{}, errUnknownMessage
		}
	case msgPing:
	default:
		return inbound{}, errUnknownMessage
	}
	return msg, nil
}
