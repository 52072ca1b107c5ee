// Package einoprovider adapts eino chat models to llm.LLMProvider.
package einoprovider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"move-quote-be/pkg/llm"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type Provider struct {
	model model.BaseChatModel
	name  string
}

var _ llm.LLMProvider = (*Provider)(nil)

func New(name string, m model.BaseChatModel) *Provider {
	return &Provider{model: m, name: name}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	msgs, modelOpts := p.prepare(history, opts)
	out, err := p.model.Generate(ctx, msgs, modelOpts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", p.name, err)
	}
	return out.Content, nil
}

func (p *Provider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.TextStream, error) {
	msgs, modelOpts := p.prepare(history, opts)
	sr, err := p.model.Stream(ctx, msgs, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s stream: %w", p.name, err)
	}
	return &stream{sr: sr}, nil
}

func (p *Provider) prepare(history []llm.Message, opts []llm.Option) ([]*schema.Message, []model.Option) {
	o := llm.Apply(opts)

	msgs := make([]*schema.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(m.Content))
		case llm.RoleAssistant, "model":
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	if o.JSON {
		msgs = append(msgs, schema.SystemMessage("Respond with a single JSON object and nothing else."))
	}

	var modelOpts []model.Option
	if o.Temperature != nil {
		modelOpts = append(modelOpts, model.WithTemperature(float32(*o.Temperature)))
	}
	if o.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(o.MaxTokens))
	}
	if o.Model != "" {
		modelOpts = append(modelOpts, model.WithModel(o.Model))
	}
	return msgs, modelOpts
}

type stream struct {
	sr *schema.StreamReader[*schema.Message]
}

func (s *stream) Recv() (string, error) {
	for {
		msg, err := s.sr.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if msg.Content != "" {
			return msg.Content, nil
		}
	}
}

func (s *stream) Close() { s.sr.Close() }
