// Package grpc implements the gRPC transport for shouldi.
//
// The Analyzer service is declared by hand and carried with a JSON codec
// (content-subtype "json"), so clients exchange the same request and result
// documents as the HTTP transport without generated stubs.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/transport"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "shouldi.v1.Analyzer"

	// AnalyzeMethod is the full method path of the unary Analyze call.
	AnalyzeMethod = "/" + ServiceName + "/Analyze"

	// CodecName is the content-subtype clients must select.
	CodecName = "json"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// analyzerServer is the server API for the Analyzer service.
type analyzerServer interface {
	Analyze(ctx context.Context, req *message.Request) (*message.Result, error)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(analyzerServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(analyzerServer).Analyze(ctx, req.(*message.Request))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*analyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shouldi/v1/analyzer",
}

// service adapts a transport.Handler to analyzerServer.
type service struct {
	handler transport.Handler
}

func (s *service) Analyze(ctx context.Context, req *message.Request) (*message.Result, error) {
	res := s.handler(ctx, req)
	return &res, nil
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port int

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, handler)
}

// Serve runs the Analyzer service on lis until the context is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	srv := grpc.NewServer()
	srv.RegisterService(&serviceDesc, &service{handler: handler})
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()
	if srv != nil {
		srv.GracefulStop()
	}
	return nil
}

// Analyze calls the Analyzer service over conn.
func Analyze(ctx context.Context, conn grpc.ClientConnInterface, req *message.Request) (*message.Result, error) {
	out := new(message.Result)
	if err := conn.Invoke(ctx, AnalyzeMethod, req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}
