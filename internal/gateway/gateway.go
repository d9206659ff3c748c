// Package gateway defines the interface for calling the remote language model.
//
// A gateway sends the assembled prompt plus generation parameters in a single
// non-streaming request and hands back the raw reply. Shouldi ships with two
// backends: Ollama (native /api/chat) and any OpenAI-compatible endpoint.
package gateway

import (
	"context"

	"github.com/nadzzz/shouldi/internal/message"
)

// Gateway is the interface for a single-attempt model call.
type Gateway interface {
	// Name returns the backend identifier (e.g., "ollama", "openai").
	Name() string

	// Call sends the prompt and returns the unmodified reply. Any failure to
	// obtain a 2xx reply is returned as an *errors.Error of KindTransport.
	// Calls are never retried.
	Call(ctx context.Context, prompt message.Prompt, params message.GenerationParams) (*message.ModelReply, error)

	// Close releases any resources held by the gateway.
	Close() error
}

// Pinger is implemented by gateways that can cheaply check endpoint reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
