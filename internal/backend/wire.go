package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

// Every RPC exchanges google.protobuf.Struct messages; the typed shapes
// below are their JSON projections. Struct numbers are float64, so int64 ids
// travel as decimal strings.

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, v any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type idRequest struct {
	ID int64 `json:"id,string"`
}

type userMessage struct {
	ID        int64     `json:"id,string"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m userMessage) toDomain() *domain.User {
	return &domain.User{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authenticateResponse may carry a token minted by the user service; the
// gateway discards it and issues its own.
type authenticateResponse struct {
	User  userMessage `json:"user"`
	Token string      `json:"token,omitempty"`
}

type productMessage struct {
	ID          int64     `json:"id,string"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int32     `json:"stock"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (m productMessage) toDomain() *domain.Product {
	return &domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type productInputMessage struct {
	ID          int64   `json:"id,string,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int32   `json:"stock"`
	Category    string  `json:"category"`
}

func newProductInput(id int64, in domain.ProductInput) productInputMessage {
	return productInputMessage{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
	}
}

type listProductsRequest struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"pageSize"`
}

type searchProductsRequest struct {
	Query string `json:"query"`
}

type orderItemMessage struct {
	ProductID int64   `json:"productId,string"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type orderMessage struct {
	ID              int64              `json:"id,string"`
	UserID          int64              `json:"userId,string"`
	Items           []orderItemMessage `json:"items"`
	TotalAmount     float64            `json:"totalAmount"`
	Status          string             `json:"status"`
	ShippingAddress string             `json:"shippingAddress"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func (m orderMessage) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return &domain.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		Items:           items,
		TotalAmount:     m.TotalAmount,
		Status:          domain.OrderStatus(m.Status),
		ShippingAddress: m.ShippingAddress,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type createOrderRequest struct {
	UserID          int64              `json:"userId,string"`
	Items           []orderItemMessage `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
}

type listUserOrdersRequest struct {
	UserID int64 `json:"userId,string"`
}

type listUserOrdersResponse struct {
	Orders []orderMessage `json:"orders"`
}

type updateOrderStatusRequest struct {
	ID     int64  `json:"id,string"`
	Status string `json:"status"`
}
