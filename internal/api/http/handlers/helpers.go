package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-bff/internal/auth"
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// bind parses the JSON body into out and runs struct validation.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return apperrors.ValidateStruct(out)
}

// pathID reads a positive integer path parameter.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("validation failed", map[string]any{name: name + " must be a positive integer"})
	}
	return id, nil
}

// access returns the authorization context the gate stored for the request.
func access(c *fiber.Ctx) (*auth.Access, error) {
	a, ok := auth.AccessFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return a, nil
}
