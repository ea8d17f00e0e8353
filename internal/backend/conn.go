package backend

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Conn owns the client connection to one backend service.
type Conn struct {
	name   string
	cc     *grpc.ClientConn
	health healthpb.HealthClient
}

// Dial creates a lazily connecting client for addr. Extra options are
// appended after the defaults.
func Dial(name, addr string, opts ...grpc.DialOption) (*Conn, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	cc, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s backend at %s: %w", name, addr, err)
	}
	return &Conn{name: name, cc: cc, health: healthpb.NewHealthClient(cc)}, nil
}

// Name returns the backend name.
func (c *Conn) Name() string {
	return c.name
}

// ClientConn exposes the underlying connection for typed clients.
func (c *Conn) ClientConn() grpc.ClientConnInterface {
	return c.cc
}

// Ping asks the backend's health service whether it is serving.
func (c *Conn) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%s health check: %w", c.name, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s backend reports %s", c.name, resp.GetStatus())
	}
	return nil
}

// Close tears down the connection.
func (c *Conn) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}
