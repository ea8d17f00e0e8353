package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/events"
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// PlaceOrderInput is the client side of an order; the owner always comes
// from the caller's identity.
type PlaceOrderInput struct {
	Items           []domain.OrderItem
	ShippingAddress string
}

// OrderService applies ownership rules around the order backend.
type OrderService struct {
	orders     backend.OrderClient
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewOrderService builds the service.
func NewOrderService(orders backend.OrderClient, dispatcher events.Dispatcher, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{orders: orders, dispatcher: dispatcher, logger: logger.Named("orders")}
}

// Create places an order owned by the caller.
func (s *OrderService) Create(ctx context.Context, access *auth.Access, in PlaceOrderInput) (*domain.Order, error) {
	order, err := s.orders.CreateOrder(ctx, domain.NewOrder{
		UserID:          access.SubjectID(),
		Items:           in.Items,
		ShippingAddress: in.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.EventOrderCreated, access, events.OrderPayload{
		OrderID: order.ID,
		OwnerID: order.UserID,
		Status:  string(order.Status),
	})
	return order, nil
}

// Get fetches an order and checks the caller may see it. A failed fetch is
// returned as is, so a backend outage surfaces as 503 and never as 403.
func (s *OrderService) Get(ctx context.Context, access *auth.Access, id int64) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMine returns the caller's orders.
func (s *OrderService) ListMine(ctx context.Context, access *auth.Access) ([]domain.Order, error) {
	return s.orders.ListUserOrders(ctx, access.SubjectID())
}

// Cancel cancels an order after the ownership check passes.
func (s *OrderService) Cancel(ctx context.Context, access *auth.Access, id int64) (*domain.Order, error) {
	if _, err := s.Get(ctx, access, id); err != nil {
		return nil, err
	}
	order, err := s.orders.CancelOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.EventOrderCancelled, access, events.OrderPayload{
		OrderID: order.ID,
		OwnerID: order.UserID,
		Status:  string(order.Status),
	})
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"status": "unknown order status"})
	}
	return s.orders.UpdateOrderStatus(ctx, id, status)
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	return s.orders.DeleteOrder(ctx, id)
}
