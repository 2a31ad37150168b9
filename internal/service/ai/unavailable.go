package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Unavailable returns a chat model that fails every call with err. It stands in for a provider
// that could not be configured, typically because the credential is missing.
func Unavailable(err error) model.ChatModel {
	if err == nil {
		err = fmt.Errorf("model provider not configured")
	}
	return &unavailableModel{err: err}
}

type unavailableModel struct {
	err error
}

func (m *unavailableModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return nil, m.err
}

func (m *unavailableModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, m.err
}

func (m *unavailableModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}
