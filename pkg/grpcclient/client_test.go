package grpcclient

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	scenariogrpc "github.com/wyfcoding/scenariosim/internal/scenario/interfaces/grpc"
	"github.com/wyfcoding/scenariosim/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNewClient_RequiresTarget(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(codes.Unavailable))
	assert.True(t, shouldRetry(codes.ResourceExhausted))
	assert.False(t, shouldRetry(codes.InvalidArgument))
	assert.False(t, shouldRetry(codes.NotFound))
}

func TestRetryInterceptor(t *testing.T) {
	ic := retryInterceptor(ClientConfig{MaxRetries: 2, RetryDelay: 1})

	var calls int
	flaky := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "down")
		}
		return nil
	}
	require.NoError(t, ic(context.Background(), "/svc/M", nil, nil, nil, flaky))
	assert.Equal(t, 3, calls)

	calls = 0
	invalid := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		return status.Error(codes.InvalidArgument, "bad")
	}
	err := ic(context.Background(), "/svc/M", nil, nil, nil, invalid)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, calls)

	calls = 0
	down := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		return status.Error(codes.Unavailable, "down")
	}
	err = ic(context.Background(), "/svc/M", nil, nil, nil, down)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, 3, calls)
}

type stubServer struct {
	runCalls  atomic.Int32
	requestID atomic.Value
}

func (s *stubServer) RunScenario(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runCalls.Add(1) == 1 {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-request-id"); len(vals) > 0 {
			s.requestID.Store(vals[0])
		}
	}
	return structpb.NewStruct(map[string]any{"topic_id": req.GetFields()["topic_id"].GetStringValue()})
}

func (s *stubServer) GetScenarioRun(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.NotFound, "scenario run not found")
}

func TestNewClient_RoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	stub := &stubServer{}
	scenariogrpc.RegisterScenarioServiceServer(srv, stub)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := NewClient(ClientConfig{Target: "passthrough:///bufnet", MaxRetries: 1, RetryDelay: 1},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := scenariogrpc.NewScenarioServiceClient(conn)
	ctx := logger.ContextWithIDs(context.Background(), "", "", "cli-req-1")

	in, err := structpb.NewStruct(map[string]any{"topic_id": "t1"})
	require.NoError(t, err)
	out, err := client.RunScenario(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "t1", out.GetFields()["topic_id"].GetStringValue())
	assert.Equal(t, int32(2), stub.runCalls.Load())
	assert.Equal(t, "cli-req-1", stub.requestID.Load())

	_, err = client.GetScenarioRun(ctx, &structpb.Struct{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
