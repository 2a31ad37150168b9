package chat

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single entry of a conversation transcript. Messages are never edited after creation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the role-tagged projection of a Message sent to the model provider.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
