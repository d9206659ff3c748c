package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
)

func dial(t *testing.T, handler func(context.Context, *message.Request) message.Result) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	tr := New(0)
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx, lis, handler) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("grpc server did not stop")
		}
	})
	return conn
}

func TestAnalyzeRoundTrip(t *testing.T) {
	var got *message.Request
	conn := dial(t, func(_ context.Context, req *message.Request) message.Result {
		got = req
		return message.NewResult(message.Int(75), "strong growth signal", nil, nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Analyze(ctx, conn, &message.Request{Question: "Should I buy?", Image: []byte("img"), Language: "en"})
	require.NoError(t, err)

	require.NotNil(t, res.Probability)
	assert.Equal(t, 75, *res.Probability)
	assert.Equal(t, message.VerdictYes, res.Verdict)
	assert.Equal(t, "strong growth signal", res.Reason)
	assert.Nil(t, res.Audio)

	require.NotNil(t, got)
	assert.Equal(t, "Should I buy?", got.Question)
	assert.Equal(t, []byte("img"), got.Image)
}

func TestAnalyzeSentinelIsNotAnRPCError(t *testing.T) {
	conn := dial(t, func(context.Context, *message.Request) message.Result {
		return message.Failed(apperrors.KindTransport, nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Analyze(ctx, conn, &message.Request{Question: "q"})
	require.NoError(t, err)

	assert.Nil(t, res.Probability)
	assert.Equal(t, apperrors.KindTransport, res.Failure)
	assert.Equal(t, apperrors.UserMessage(apperrors.KindTransport), res.Reason)
}

func TestCloseWhileServing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New(0)
	lis := bufconn.Listen(1 << 20)
	done := make(chan error, 1)
	go func() {
		done <- tr.Serve(ctx, lis, func(context.Context, *message.Request) message.Result { return message.Result{} })
	}()

	assert.Eventually(t, func() bool {
		assert.NoError(t, tr.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
