package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/events"
)

type MockUserClient struct {
	mock.Mock
}

func (m *MockUserClient) CreateUser(ctx context.Context, in backend.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserClient) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserClient) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockOrderClient struct {
	mock.Mock
}

func (m *MockOrderClient) CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderClient) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderClient) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderClient) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderClient) CancelOrder(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderClient) DeleteOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockProductClient struct {
	mock.Mock
}

func (m *MockProductClient) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductClient) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductClient) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductClient) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductClient) ListProducts(ctx context.Context, page, pageSize int32) (backend.ProductStream, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(backend.ProductStream), args.Error(1)
}

func (m *MockProductClient) SearchProducts(ctx context.Context, query string) (backend.ProductStream, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(backend.ProductStream), args.Error(1)
}

type sliceStream struct {
	items  []domain.Product
	closed bool
}

func (s *sliceStream) Next() (*domain.Product, error) {
	if len(s.items) == 0 {
		return nil, io.EOF
	}
	p := s.items[0]
	s.items = s.items[1:]
	return &p, nil
}

func (s *sliceStream) Close() { s.closed = true }

type capturedEvents struct {
	events []events.Event
}

func (c *capturedEvents) Publish(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *capturedEvents) Subscribe(events.EventType, events.EventHandler) {}

func (c *capturedEvents) types() []events.EventType {
	out := make([]events.EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "service-test-secret",
		Issuer:   "storefront-bff",
		Audience: "storefront-clients",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return tokens
}

func accessFor(t *testing.T, subjectID int64, role auth.Role, req auth.Requirement) *auth.Access {
	t.Helper()
	tokens := newTokens(t)
	token, _, err := tokens.Issue(subjectID, "caller@example.com", role)
	require.NoError(t, err)
	identity, err := tokens.Validate(token)
	require.NoError(t, err)
	return auth.NewAccess(identity, req)
}
