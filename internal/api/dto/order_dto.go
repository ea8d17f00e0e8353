package dto

import (
	"time"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

// OrderItemRequest is one requested line.
type OrderItemRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int32 `json:"quantity" validate:"gt=0,lte=1000"`
}

// CreateOrderRequest payload for placing an order. The owner is never read
// from the body.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingAddress string             `json:"shippingAddress" validate:"required,max=500"`
}

func (r CreateOrderRequest) ToItems() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items
}

// UpdateOrderStatusRequest payload for admin status changes.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED"`
}

type OrderItemResponse struct {
	ProductID int64   `json:"productId"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type OrderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"userId"`
	Items           []OrderItemResponse `json:"items"`
	TotalAmount     float64             `json:"totalAmount"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shippingAddress"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func NewOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func NewOrderListResponse(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}
