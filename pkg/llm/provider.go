package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float64
	MaxTokens   int
	Model       string // Override default model
	JSON        bool   // Ask the model for a single JSON object
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithJSON asks for a JSON object reply.
func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

func Apply(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TextStream yields reply text chunk by chunk. Recv returns io.EOF at the end.
type TextStream interface {
	Recv() (string, error)
	Close()
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream is Chat with the reply delivered incrementally
	ChatStream(ctx context.Context, history []Message, options ...Option) (TextStream, error)
}
