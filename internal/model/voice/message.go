package voice

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
)

// Inbound frame types.
const (
	TypeConfig = "config"
	TypeText   = "text"
)

// Outbound frame types.
const (
	TypeTranscript = "transcript"
	TypeSpeaking   = "speaking"
	TypeListening  = "listening"
	TypeError      = "error"
)

// Fixed user-safe error messages.
const (
	MessageProcessingError = "Sorry, I had a little trouble there. Could you say that again?"
	MessageBusy            = "One moment please, I'm still thinking about what you said."
)

// Inbound is a decoded client frame: ConfigMessage or TextMessage.
type Inbound interface {
	inboundType() string
}

// ConfigMessage describes who the companion is talking to.
type ConfigMessage struct {
	SeniorName string `json:"seniorName"`
	GifterName string `json:"gifterName"`
	BioContext string `json:"bioContext"`
}

func (ConfigMessage) inboundType() string { return TypeConfig }

// Profile returns the full replacement profile carried by the frame.
func (m ConfigMessage) Profile() chat.Profile {
	return chat.NewProfile(m.SeniorName, m.GifterName, m.BioContext)
}

// TextMessage carries one finalized transcript from the client.
type TextMessage struct {
	Text string `json:"text"`
}

func (TextMessage) inboundType() string { return TypeText }

// DecodeError describes a malformed or unsupported client frame.
type DecodeError struct {
	Reason string
	Field  string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode frame: " + e.Reason
	}
	return fmt.Sprintf("decode frame: %s (%s)", e.Reason, e.Field)
}

func badFrame(reason, field string) *DecodeError {
	return &DecodeError{Reason: reason, Field: field}
}

// Decode parses a JSON control frame.
func Decode(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badFrame("invalid json frame", "")
	}

	switch strings.TrimSpace(envelope.Type) {
	case "":
		return nil, badFrame("missing type", "type")
	case TypeConfig:
		var msg ConfigMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid config frame", "")
		}
		return msg, nil
	case TypeText:
		var msg TextMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid text frame", "text")
		}
		return msg, nil
	default:
		return nil, badFrame("unsupported message type "+envelope.Type, "type")
	}
}

// Outbound is a server frame.
type Outbound struct {
	Type    string    `json:"type"`
	Role    chat.Role `json:"role,omitempty"`
	Text    string    `json:"text,omitempty"`
	Message string    `json:"message,omitempty"`
}

func Transcript(role chat.Role, text string) Outbound {
	return Outbound{Type: TypeTranscript, Role: role, Text: text}
}

func Speaking() Outbound {
	return Outbound{Type: TypeSpeaking}
}

func Listening() Outbound {
	return Outbound{Type: TypeListening}
}

func Error(message string) Outbound {
	return Outbound{Type: TypeError, Message: message}
}
