package chat

// Role identifies who spoke a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label returns the speaker prefix used when a turn is rendered into a prompt.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Turn is one utterance kept in a conversation window.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
