package backend

import (
	"context"
	"time"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

const userService = "storefront.user.v1.UserService"

// GRPCUserClient implements UserClient over gRPC.
type GRPCUserClient struct {
	caller
}

// NewUserClient builds a user service client on conn.
func NewUserClient(conn *Conn, guard *Guard, timeout time.Duration) *GRPCUserClient {
	return &GRPCUserClient{caller{conn: conn.ClientConn(), guard: guard, service: userService, resource: "user", timeout: timeout}}
}

func (c *GRPCUserClient) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	var resp userMessage
	err := c.invoke(ctx, "CreateUser", createUserRequest{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
		Role:      in.Role,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// AuthenticateUser verifies credentials with the user service. Any token in
// the response is dropped.
func (c *GRPCUserClient) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	var resp authenticateResponse
	if err := c.invoke(ctx, "AuthenticateUser", authenticateRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.User.toDomain(), nil
}

func (c *GRPCUserClient) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var resp userMessage
	if err := c.invoke(ctx, "GetUser", idRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}
