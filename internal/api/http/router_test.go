package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/spec-kit/storefront-bff/internal/api/http/handlers"
	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/events"
	"github.com/spec-kit/storefront-bff/internal/observability"
	"github.com/spec-kit/storefront-bff/internal/service"
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) CreateUser(_ context.Context, in backend.CreateUserInput) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == in.Email {
			return nil, apperrors.NewUpstreamRejected("email already registered", nil)
		}
	}
	u := &domain.User{ID: int64(len(f.users) + 100), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: in.Role}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) AuthenticateUser(_ context.Context, email, password string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email && password == "correct-horse" {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NewUnauthorized("invalid credentials")
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperrors.NewNotFound("user", nil)
}

type fakeStream struct {
	items []domain.Product
	err   error
}

func (s *fakeStream) Next() (*domain.Product, error) {
	if len(s.items) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	p := s.items[0]
	s.items = s.items[1:]
	return &p, nil
}

func (s *fakeStream) Close() {}

type fakeProducts struct {
	products  []domain.Product
	streamErr error
}

func (f *fakeProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, apperrors.NewNotFound("product", nil)
}

func (f *fakeProducts) CreateProduct(_ context.Context, in domain.ProductInput) (*domain.Product, error) {
	return &domain.Product{ID: 77, Name: in.Name, Price: in.Price, Stock: in.Stock, Category: in.Category}, nil
}

func (f *fakeProducts) UpdateProduct(_ context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	return &domain.Product{ID: id, Name: in.Name}, nil
}

func (f *fakeProducts) DeleteProduct(context.Context, int64) error { return nil }

func (f *fakeProducts) ListProducts(context.Context, int32, int32) (backend.ProductStream, error) {
	return &fakeStream{items: append([]domain.Product(nil), f.products...), err: f.streamErr}, nil
}

func (f *fakeProducts) SearchProducts(_ context.Context, q string) (backend.ProductStream, error) {
	var hits []domain.Product
	for _, p := range f.products {
		if strings.Contains(p.Name, q) {
			hits = append(hits, p)
		}
	}
	return &fakeStream{items: hits}, nil
}

type fakeOrders struct {
	orders map[int64]*domain.Order
}

func (f *fakeOrders) CreateOrder(_ context.Context, in domain.NewOrder) (*domain.Order, error) {
	o := &domain.Order{ID: 500, UserID: in.UserID, Items: in.Items, ShippingAddress: in.ShippingAddress, Status: domain.OrderStatusPending}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	if o, ok := f.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, apperrors.NewNotFound("order", nil)
}

func (f *fakeOrders) ListUserOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NewNotFound("order", nil)
	}
	o.Status = status
	return o, nil
}

func (f *fakeOrders) CancelOrder(_ context.Context, id int64) (*domain.Order, error) {
	return f.UpdateOrderStatus(context.Background(), id, domain.OrderStatusCancelled)
}

func (f *fakeOrders) DeleteOrder(_ context.Context, id int64) error {
	delete(f.orders, id)
	return nil
}

type downPinger struct{}

func (downPinger) Name() string               { return "order" }
func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testApp struct {
	app      *fiber.App
	tokens   *auth.TokenService
	products *fakeProducts
	orders   *fakeOrders
}

func newTestApp(t *testing.T, requestTimeout time.Duration) *testApp {
	t.Helper()
	return newTestAppWithOrders(t, requestTimeout, nil)
}

// newTestAppWithOrders builds the app against orderClient when given, else
// against the in-memory fake.
func newTestAppWithOrders(t *testing.T, requestTimeout time.Duration, orderClient backend.OrderClient) *testApp {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "router-test-secret",
		Issuer:   "storefront-bff",
		Audience: "storefront-clients",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	users := &fakeUsers{users: map[int64]*domain.User{
		1:  {ID: 1, Email: "admin@shop.test", Role: "Admin"},
		42: {ID: 42, Email: "ada@shop.test", FirstName: "Ada", Role: "Customer"},
		7:  {ID: 7, Email: "bob@shop.test", Role: "Customer"},
	}}
	products := &fakeProducts{products: []domain.Product{
		{ID: 1, Name: "oak desk", Price: 120},
		{ID: 2, Name: "desk lamp", Price: 30},
		{ID: 3, Name: "chair", Price: 80},
	}}
	orders := &fakeOrders{orders: map[int64]*domain.Order{
		1: {ID: 1, UserID: 42, Status: domain.OrderStatusPending},
		2: {ID: 2, UserID: 7, Status: domain.OrderStatusPending},
	}}

	if orderClient == nil {
		orderClient = orders
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, requestTimeout)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("storefront-bff", "test", downPinger{}),
		Auth: handlers.NewAuthHandler(service.NewAuthService(service.AuthDependencies{
			Users:      users,
			Tokens:     tokens,
			Dispatcher: dispatcher,
		})),
		Products: handlers.NewProductsHandler(service.NewCatalogService(products, dispatcher, logger)),
		Orders:   handlers.NewOrdersHandler(service.NewOrderService(orderClient, dispatcher, logger)),
		Gate:     auth.NewGate(tokens, logger, metrics, dispatcher),
		Metrics:  metrics,
		Logger:   logger,
	})

	return &testApp{app: app, tokens: tokens, products: products, orders: orders}
}

func (a *testApp) bearer(t *testing.T, id int64, role auth.Role) string {
	t.Helper()
	token, _, err := a.tokens.Issue(id, "caller@shop.test", role)
	require.NoError(t, err)
	return "Bearer " + token
}

type result struct {
	status int
	body   map[string]any
	raw    string
}

func (a *testApp) do(t *testing.T, method, path, authorization string, body any) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := a.app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := result{status: resp.StatusCode, raw: string(raw)}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.body)
	}
	return out
}

func errorCode(r result) string {
	errBody, _ := r.body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t, 0)

	r := a.do(t, "POST", "/api/auth/register", "", map[string]any{
		"email": "new@shop.test", "firstName": "New", "lastName": "User", "password": "longpassword",
	})
	require.Equal(t, fiber.StatusCreated, r.status, r.raw)
	assert.Equal(t, true, r.body["success"])
	token, _ := r.body["token"].(string)
	identity, err := a.tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCustomer, identity.Role())
	user := r.body["user"].(map[string]any)
	assert.Equal(t, "new@shop.test", user["email"])

	r = a.do(t, "POST", "/api/auth/register", "", map[string]any{
		"email": "new@shop.test", "firstName": "New", "lastName": "User", "password": "longpassword",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, apperrors.CodeUpstreamRejected, errorCode(r))
	assert.Equal(t, false, r.body["success"])
	assert.Equal(t, "email already registered", r.body["message"])

	r = a.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "ada@shop.test", "password": "correct-horse"})
	require.Equal(t, fiber.StatusOK, r.status, r.raw)
	assert.NotEmpty(t, r.body["token"])
	assert.NotEmpty(t, r.body["expiresAt"])

	r = a.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "ada@shop.test", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(r))
	assert.Equal(t, false, r.body["success"])
	assert.Equal(t, "invalid credentials", r.body["message"])
	assert.NotContains(t, r.body, "token")
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t, 0)

	r := a.do(t, "POST", "/api/auth/register", "", map[string]any{"email": "not-an-email", "password": "short"})
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, apperrors.CodeValidationFailed, errorCode(r))
	details := r.body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "firstName")
	assert.Contains(t, details, "password")

	r = a.do(t, "POST", "/api/auth/register", "", map[string]any{
		"email": "x@shop.test", "firstName": "X", "lastName": "Y", "password": "longpassword", "role": "Admin",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, apperrors.CodeValidationFailed, errorCode(r))
}

func TestPublicProductRoutesIgnoreTokens(t *testing.T) {
	a := newTestApp(t, 0)

	for _, authorization := range []string{"", "Bearer garbage", "Basic abc"} {
		r := a.do(t, "GET", "/api/products", authorization, nil)
		require.Equal(t, fiber.StatusOK, r.status, r.raw)
		assert.Len(t, r.body["data"], 3)
	}

	r := a.do(t, "GET", "/api/products/search?q=desk", "", nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.Len(t, r.body["data"], 2)

	r = a.do(t, "GET", "/api/products/search?q=nothing-matches", "", nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.JSONEq(t, `{"data":[]}`, r.raw)

	r = a.do(t, "GET", "/api/products/search", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = a.do(t, "GET", "/api/products/2", "", nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "desk lamp", r.body["data"].(map[string]any)["name"])

	r = a.do(t, "GET", "/api/products/99", "", nil)
	assert.Equal(t, fiber.StatusNotFound, r.status)

	r = a.do(t, "GET", "/api/products/abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, r.status)
}

func TestProductStreamFailureDiscardsPartialBody(t *testing.T) {
	a := newTestApp(t, 0)
	a.products.streamErr = apperrors.NewUpstreamUnavailable(errors.New("stream reset"))

	r := a.do(t, "GET", "/api/products", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, r.status)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, errorCode(r))
	assert.NotContains(t, r.raw, "oak desk")
	assert.NotContains(t, r.raw, "stream reset")
}

func TestAdminProductRoutes(t *testing.T) {
	a := newTestApp(t, 0)
	payload := map[string]any{"name": "stool", "price": 25, "stock": 3, "category": "seating"}

	r := a.do(t, "POST", "/api/products", "", payload)
	assert.Equal(t, fiber.StatusUnauthorized, r.status)

	r = a.do(t, "POST", "/api/products", a.bearer(t, 42, auth.RoleCustomer), payload)
	assert.Equal(t, fiber.StatusForbidden, r.status)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(r))

	r = a.do(t, "POST", "/api/products", a.bearer(t, 1, auth.RoleAdmin), payload)
	require.Equal(t, fiber.StatusCreated, r.status, r.raw)
	assert.Equal(t, "stool", r.body["data"].(map[string]any)["name"])

	r = a.do(t, "PUT", "/api/products/2", a.bearer(t, 1, auth.RoleAdmin), payload)
	assert.Equal(t, fiber.StatusOK, r.status)

	r = a.do(t, "DELETE", "/api/products/2", a.bearer(t, 1, auth.RoleAdmin), nil)
	assert.Equal(t, fiber.StatusNoContent, r.status)
}

func TestOrderOwnership(t *testing.T) {
	a := newTestApp(t, 0)
	customer := a.bearer(t, 42, auth.RoleCustomer)
	admin := a.bearer(t, 1, auth.RoleAdmin)

	assert.Equal(t, fiber.StatusOK, a.do(t, "GET", "/api/orders/1", customer, nil).status)
	assert.Equal(t, fiber.StatusForbidden, a.do(t, "GET", "/api/orders/2", customer, nil).status)
	assert.Equal(t, fiber.StatusOK, a.do(t, "GET", "/api/orders/2", admin, nil).status)
	assert.Equal(t, fiber.StatusUnauthorized, a.do(t, "GET", "/api/orders/1", "", nil).status)
	assert.Equal(t, fiber.StatusNotFound, a.do(t, "GET", "/api/orders/404", customer, nil).status)

	assert.Equal(t, fiber.StatusForbidden, a.do(t, "POST", "/api/orders/2/cancel", customer, nil).status)
	assert.Equal(t, domain.OrderStatusPending, a.orders.orders[2].Status)

	r := a.do(t, "POST", "/api/orders/1/cancel", customer, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "CANCELLED", r.body["data"].(map[string]any)["status"])

	assert.Equal(t, fiber.StatusForbidden, a.do(t, "PUT", "/api/orders/1/status", customer, map[string]any{"status": "SHIPPED"}).status)
	assert.Equal(t, fiber.StatusOK, a.do(t, "PUT", "/api/orders/1/status", admin, map[string]any{"status": "SHIPPED"}).status)
	assert.Equal(t, fiber.StatusBadRequest, a.do(t, "PUT", "/api/orders/1/status", admin, map[string]any{"status": "LOST"}).status)
	assert.Equal(t, fiber.StatusForbidden, a.do(t, "DELETE", "/api/orders/1", customer, nil).status)
	assert.Equal(t, fiber.StatusNoContent, a.do(t, "DELETE", "/api/orders/1", admin, nil).status)
}

func TestCreateOrderOwnedByCaller(t *testing.T) {
	a := newTestApp(t, 0)
	customer := a.bearer(t, 42, auth.RoleCustomer)

	r := a.do(t, "POST", "/api/orders", customer, map[string]any{
		"userId":          7,
		"items":           []map[string]any{{"productId": 1, "quantity": 2}},
		"shippingAddress": "1 Main St",
	})
	require.Equal(t, fiber.StatusCreated, r.status, r.raw)
	assert.Equal(t, float64(42), r.body["data"].(map[string]any)["userId"])

	r = a.do(t, "POST", "/api/orders", customer, map[string]any{"items": []any{}, "shippingAddress": "x"})
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = a.do(t, "GET", "/api/orders", customer, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	for _, o := range r.body["data"].([]any) {
		assert.Equal(t, float64(42), o.(map[string]any)["userId"])
	}
}

// hangingOrderBackend serves every RPC by waiting for the caller to give up.
func hangingOrderBackend(t *testing.T) (*backend.GRPCOrderClient, *backend.Guard) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		<-stream.Context().Done()
		return status.FromContextError(stream.Context().Err()).Err()
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := backend.Dial("order", "passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	guard := backend.NewGuard("order", backend.GuardConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1}, nil, zap.NewNop())
	return backend.NewOrderClient(conn, guard, 5*time.Second), guard
}

func TestOwnershipCheckTimeoutIsUnavailable(t *testing.T) {
	client, guard := hangingOrderBackend(t)
	a := newTestAppWithOrders(t, 50*time.Millisecond, client)

	r := a.do(t, "GET", "/api/orders/2", a.bearer(t, 42, auth.RoleCustomer), nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, r.status)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, errorCode(r))
	assert.Equal(t, "closed", guard.State().String(), "request timeouts are not backend faults")
}

func TestUserRoutes(t *testing.T) {
	a := newTestApp(t, 0)
	customer := a.bearer(t, 42, auth.RoleCustomer)

	r := a.do(t, "GET", "/api/users/me", customer, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "ada@shop.test", r.body["data"].(map[string]any)["email"])

	assert.Equal(t, fiber.StatusUnauthorized, a.do(t, "GET", "/api/users/me", "", nil).status)
	assert.Equal(t, fiber.StatusOK, a.do(t, "GET", "/api/users/42", customer, nil).status)
	assert.Equal(t, fiber.StatusForbidden, a.do(t, "GET", "/api/users/7", customer, nil).status)
	assert.Equal(t, fiber.StatusOK, a.do(t, "GET", "/api/users/7", a.bearer(t, 1, auth.RoleAdmin), nil).status)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, 0)

	assert.Equal(t, fiber.StatusOK, a.do(t, "GET", "/health/live", "", nil).status)

	r := a.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, r.status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(r))
	assert.NotContains(t, r.raw, "connection refused")

	a.do(t, "GET", "/api/users/me", "", nil)
	r = a.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, r.status)
	assert.Contains(t, r.raw, "bff_auth_decisions_total")
	assert.Contains(t, r.raw, "bff_http_requests_total")
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	a := newTestApp(t, 0)

	r := a.do(t, "GET", "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, r.status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(r))
}
