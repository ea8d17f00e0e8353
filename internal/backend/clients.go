package backend

import (
	"context"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

// CreateUserInput is the registration payload forwarded to the user service.
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// UserClient talks to the user service.
type UserClient interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// ProductStream yields products one at a time. Next returns io.EOF once the
// stream is exhausted. Close must be called to release the stream.
type ProductStream interface {
	Next() (*domain.Product, error)
	Close()
}

// ProductClient talks to the product catalog service.
type ProductClient interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, page, pageSize int32) (ProductStream, error)
	SearchProducts(ctx context.Context, query string) (ProductStream, error)
}

// OrderClient talks to the order management service.
type OrderClient interface {
	CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	CancelOrder(ctx context.Context, id int64) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

var (
	_ UserClient    = (*GRPCUserClient)(nil)
	_ ProductClient = (*GRPCProductClient)(nil)
	_ OrderClient   = (*GRPCOrderClient)(nil)
)
