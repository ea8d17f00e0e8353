package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-bff/internal/api/dto"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/service"
)

// OrdersHandler exposes order endpoints. Ownership is enforced by the
// service after the order is fetched.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.orders.Create(c.UserContext(), a, service.PlaceOrderInput{
		Items:           req.ToItems(),
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// ListMine handles GET /api/orders.
func (h *OrdersHandler) ListMine(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListMine(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderListResponse(orders)})
}

// Get handles GET /api/orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Get(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Cancel handles POST /api/orders/:id/cancel.
func (h *OrdersHandler) Cancel(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Cancel(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// UpdateStatus handles PUT /api/orders/:id/status.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.orders.UpdateStatus(c.UserContext(), id, domain.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}

// Delete handles DELETE /api/orders/:id.
func (h *OrdersHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.orders.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
