package domain

import "time"

// OrderStatus represents lifecycle states for an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is owned by exactly one user; UserID is the ownership key.
type Order struct {
	ID              int64
	UserID          int64
	Items           []OrderItem
	TotalAmount     float64
	Status          OrderStatus
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID int64
	Quantity  int32
	UnitPrice float64
}

// NewOrder is the input for placing an order.
type NewOrder struct {
	UserID          int64
	Items           []OrderItem
	ShippingAddress string
}
