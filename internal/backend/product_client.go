package backend

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

const productService = "storefront.product.v1.ProductService"

// GRPCProductClient implements ProductClient over gRPC.
type GRPCProductClient struct {
	caller
}

// NewProductClient builds a product service client on conn.
func NewProductClient(conn *Conn, guard *Guard, timeout time.Duration) *GRPCProductClient {
	return &GRPCProductClient{caller{conn: conn.ClientConn(), guard: guard, service: productService, resource: "product", timeout: timeout}}
}

func (c *GRPCProductClient) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var resp productMessage
	if err := c.invoke(ctx, "GetProduct", idRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCProductClient) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var resp productMessage
	if err := c.invoke(ctx, "CreateProduct", newProductInput(0, in), &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCProductClient) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	var resp productMessage
	if err := c.invoke(ctx, "UpdateProduct", newProductInput(id, in), &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *GRPCProductClient) DeleteProduct(ctx context.Context, id int64) error {
	return c.invoke(ctx, "DeleteProduct", idRequest{ID: id}, nil)
}

func (c *GRPCProductClient) ListProducts(ctx context.Context, page, pageSize int32) (ProductStream, error) {
	return c.stream(ctx, "ListProducts", listProductsRequest{Page: page, PageSize: pageSize})
}

func (c *GRPCProductClient) SearchProducts(ctx context.Context, query string) (ProductStream, error) {
	return c.stream(ctx, "SearchProducts", searchProductsRequest{Query: query})
}

func (c *GRPCProductClient) stream(ctx context.Context, method string, req any) (ProductStream, error) {
	stream, cancel, err := c.openStream(ctx, method, req)
	if err != nil {
		return nil, err
	}
	return &productStream{stream: stream, cancel: cancel, resource: c.resource}, nil
}

type productStream struct {
	stream   grpc.ClientStream
	cancel   context.CancelFunc
	resource string
	once     sync.Once
}

func (s *productStream) Next() (*domain.Product, error) {
	msg := &structpb.Struct{}
	if err := s.stream.RecvMsg(msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, mapError(s.resource, err)
	}
	var p productMessage
	if err := fromStruct(msg, &p); err != nil {
		return nil, mapError(s.resource, err)
	}
	return p.toDomain(), nil
}

func (s *productStream) Close() {
	s.once.Do(s.cancel)
}
