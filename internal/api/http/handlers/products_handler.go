package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-bff/internal/api/dto"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/service"
)

// ProductsHandler exposes the catalog.
type ProductsHandler struct {
	catalog *service.CatalogService
}

// NewProductsHandler constructs handler.
func NewProductsHandler(catalog *service.CatalogService) *ProductsHandler {
	return &ProductsHandler{catalog: catalog}
}

// List handles GET /api/products?page=&pageSize=.
func (h *ProductsHandler) List(c *fiber.Ctx) error {
	stream, err := h.catalog.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("pageSize", 0))
	if err != nil {
		return err
	}
	return writeProducts(c, stream)
}

// Search handles GET /api/products/search?q=.
func (h *ProductsHandler) Search(c *fiber.Ctx) error {
	stream, err := h.catalog.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return writeProducts(c, stream)
}

// Get handles GET /api/products/:id.
func (h *ProductsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	var req dto.ProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.Create(c.UserContext(), a, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// Update handles PUT /api/products/:id.
func (h *ProductsHandler) Update(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.Update(c.UserContext(), a, id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// Delete handles DELETE /api/products/:id.
func (h *ProductsHandler) Delete(c *fiber.Ctx) error {
	a, err := access(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.Delete(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// writeProducts encodes stream items one by one as {"data":[...]}. If the
// stream fails part way the partial body is discarded and the error is
// returned for the error middleware to render.
func writeProducts(c *fiber.Ctx, stream backend.ProductStream) error {
	defer stream.Close()

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	w := c.Response().BodyWriter()
	if _, err := io.WriteString(w, `{"data":[`); err != nil {
		return err
	}

	for n := 0; ; n++ {
		product, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.Response().ResetBody()
			return err
		}
		if n > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		item, err := json.Marshal(dto.NewProductResponse(product))
		if err != nil {
			c.Response().ResetBody()
			return err
		}
		if _, err := w.Write(item); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "]}")
	return err
}
