package backend

import (
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/spec-kit/storefront-bff/internal/config"
	"github.com/spec-kit/storefront-bff/internal/observability"
)

// Backends bundles the connections and typed clients for all three services.
type Backends struct {
	Users    *GRPCUserClient
	Products *GRPCProductClient
	Orders   *GRPCOrderClient

	conns []*Conn
}

// Connect dials every backend and wraps each in its own guard.
func Connect(cfg config.BackendsConfig, metrics *observability.Metrics, logger *zap.Logger, opts ...grpc.DialOption) (*Backends, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	guardCfg := GuardConfigFrom(cfg)
	timeout := cfg.CallTimeout()

	b := &Backends{}
	dial := func(name, addr string) (*Conn, error) {
		conn, err := Dial(name, addr, opts...)
		if err != nil {
			return nil, err
		}
		b.conns = append(b.conns, conn)
		logger.Info("backend client ready", zap.String("service", name), zap.String("addr", addr))
		return conn, nil
	}

	userConn, err := dial("user", cfg.UserAddr)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	productConn, err := dial("product", cfg.ProductAddr)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	orderConn, err := dial("order", cfg.OrderAddr)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}

	b.Users = NewUserClient(userConn, NewGuard("user", guardCfg, metrics, logger), timeout)
	b.Products = NewProductClient(productConn, NewGuard("product", guardCfg, metrics, logger), timeout)
	b.Orders = NewOrderClient(orderConn, NewGuard("order", guardCfg, metrics, logger), timeout)
	return b, nil
}

// Conns returns the underlying connections, for readiness probes.
func (b *Backends) Conns() []*Conn {
	return b.conns
}

// Close releases every connection.
func (b *Backends) Close() error {
	var errs []error
	for _, conn := range b.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.conns = nil
	return errors.Join(errs...)
}
