package backend

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// handlerFunc serves one RPC on the fake backend. send may be called once
// for unary methods or many times for server streams.
type handlerFunc func(ctx context.Context, req map[string]interface{}, send func(any) error) error

type fakeBackend struct {
	conn   *Conn
	health *health.Server
	calls  atomic.Int32
}

func startBackend(t *testing.T, handlers map[string]handlerFunc) *fakeBackend {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	fb := &fakeBackend{health: health.NewServer()}

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		fb.calls.Add(1)
		method, _ := grpc.MethodFromServerStream(stream)
		h, ok := handlers[method]
		if !ok {
			return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
		}
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		return h(stream.Context(), req.AsMap(), func(v any) error {
			msg, err := toStruct(v)
			if err != nil {
				return err
			}
			return stream.SendMsg(msg)
		})
	}))
	healthpb.RegisterHealthServer(srv, fb.health)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial("test", "passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	fb.conn = conn
	return fb
}

func openGuard(name string) *Guard {
	return NewGuard(name, GuardConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 100}, nil, zap.NewNop())
}

func method(service, name string) string {
	return "/" + service + "/" + name
}

const healthStatusNotServing = healthpb.HealthCheckResponse_NOT_SERVING
