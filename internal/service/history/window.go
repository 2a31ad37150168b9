package history

import (
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// WindowSize bounds how many prior messages are resent with each exchange.
const WindowSize = 10

// Policy selects the prior turns sent as context for the next exchange.
type Policy interface {
	Window(transcript []chat.Message) []chat.Turn
}

// Trailing keeps the most recent Size messages of the transcript.
type Trailing struct {
	Size int
}

// Window returns the trailing slice of transcript as turns, earliest first.
func (t Trailing) Window(transcript []chat.Message) []chat.Turn {
	size := t.Size
	if size <= 0 {
		size = WindowSize
	}

	startIdx := 0
	if len(transcript) > size {
		startIdx = len(transcript) - size
	}

	turns := make([]chat.Turn, 0, len(transcript)-startIdx)
	for _, msg := range transcript[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			turns = append(turns, chat.Turn{Role: chat.RoleUser, Text: msg.Text})
		case chat.RoleModel:
			turns = append(turns, chat.Turn{Role: chat.RoleModel, Text: msg.Text})
		}
	}
	return turns
}

// Window applies the default trailing policy.
func Window(transcript []chat.Message) []chat.Turn {
	return Trailing{Size: WindowSize}.Window(transcript)
}

// ToSchema converts turns into eino messages for the prompt history placeholder.
func ToSchema(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case chat.RoleModel:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return messages
}
