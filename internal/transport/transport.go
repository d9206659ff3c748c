// Package transport defines the interface for pluggable presentation surfaces.
//
// Each transport (HTTP, gRPC) implements this interface and hands incoming
// requests to the analyzer. The analyzer doesn't care how requests arrive;
// it only works with the Handler contract.
package transport

import (
	"context"

	"github.com/nadzzz/shouldi/internal/message"
)

// Handler processes one analysis request and returns its result. It never
// fails: fatal pipeline errors come back as the sentinel result.
// pipeline.Analyzer.Analyze provides this handler to each transport.
type Handler func(ctx context.Context, req *message.Request) message.Result

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
