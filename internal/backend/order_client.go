package backend

import (
	"context"
	"time"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

const orderService = "storefront.order.v1.OrderService"

// GRPCOrderClient implements OrderClient over gRPC.
type GRPCOrderClient struct {
	caller
}

// NewOrderClient builds an order service client on conn.
func NewOrderClient(conn *Conn, guard *Guard, timeout time.Duration) *GRPCOrderClient {
	return &GRPCOrderClient{caller{conn: conn.ClientConn(), guard: guard, service: orderService, resource: "order", timeout: timeout}}
}

func (c *GRPCOrderClient) CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	items := make([]orderItemMessage, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, orderItemMessage{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	var resp orderMessage
	err := c.invoke(ctx, "CreateOrder", createOrderRequest{
		UserID:          in.UserID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCOrderClient) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var resp orderMessage
	if err := c.invoke(ctx, "GetOrder", idRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCOrderClient) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	var resp listUserOrdersResponse
	if err := c.invoke(ctx, "ListUserOrders", listUserOrdersRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(resp.Orders))
	for _, m := range resp.Orders {
		orders = append(orders, *m.toDomain())
	}
	return orders, nil
}

func (c *GRPCOrderClient) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	var resp orderMessage
	if err := c.invoke(ctx, "UpdateOrderStatus", updateOrderStatusRequest{ID: id, Status: string(status)}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCOrderClient) CancelOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var resp orderMessage
	if err := c.invoke(ctx, "CancelOrder", idRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCOrderClient) DeleteOrder(ctx context.Context, id int64) error {
	return c.invoke(ctx, "DeleteOrder", idRequest{ID: id}, nil)
}
