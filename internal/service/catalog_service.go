package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/events"
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogService proxies product operations to the catalog backend.
type CatalogService struct {
	products   backend.ProductClient
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewCatalogService builds the service.
func NewCatalogService(products backend.ProductClient, dispatcher events.Dispatcher, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{products: products, dispatcher: dispatcher, logger: logger.Named("catalog")}
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// List opens a product stream for the requested page. Page numbers start
// at 1; sizes are clamped to maxPageSize.
func (s *CatalogService) List(ctx context.Context, page, pageSize int) (backend.ProductStream, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.products.ListProducts(ctx, int32(page), int32(pageSize))
}

func (s *CatalogService) Search(ctx context.Context, query string) (backend.ProductStream, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"q": "q is required"})
	}
	return s.products.SearchProducts(ctx, query)
}

func (s *CatalogService) Create(ctx context.Context, access *auth.Access, in domain.ProductInput) (*domain.Product, error) {
	product, err := s.products.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, access, product.ID, "created")
	return product, nil
}

func (s *CatalogService) Update(ctx context.Context, access *auth.Access, id int64, in domain.ProductInput) (*domain.Product, error) {
	product, err := s.products.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, access, id, "updated")
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, access *auth.Access, id int64) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, access, id, "deleted")
	return nil
}

func (s *CatalogService) audit(ctx context.Context, access *auth.Access, productID int64, action string) {
	publish(ctx, s.dispatcher, s.logger, events.EventProductModified, access, events.ProductModifiedPayload{
		ProductID: productID,
		Action:    action,
	})
}
