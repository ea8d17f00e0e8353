package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/backend"
	"github.com/spec-kit/storefront-bff/internal/domain"
	"github.com/spec-kit/storefront-bff/internal/events"
	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// TokenIssuer mints gateway tokens.
type TokenIssuer interface {
	Issue(subjectID int64, email string, role auth.Role) (string, time.Time, error)
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows. The gateway is the
// only token source: tokens are always signed here.
type AuthService struct {
	users            backend.UserClient
	tokens           TokenIssuer
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	allowAdminSignup bool
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users            backend.UserClient
	Tokens           TokenIssuer
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	AllowAdminSignup bool
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:            deps.Users,
		tokens:           deps.Tokens,
		dispatcher:       deps.Dispatcher,
		logger:           logger.Named("auth"),
		allowAdminSignup: deps.AllowAdminSignup,
	}
}

// Register creates an account in the user service and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role, err := s.signupRole(in.Role)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, backend.CreateUserInput{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
		Role:      string(role),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user, role)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventUserRegistered, user, events.UserRegisteredPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	return result, nil
}

// Login verifies credentials with the user service. Any token the user
// service produces is discarded.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.AuthenticateUser(ctx, email, password)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == apperrors.CodeUnauthorized || de.Code == apperrors.CodeNotFound {
			s.publish(ctx, events.EventLoginFailed, nil, events.LoginPayload{Email: email})
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}

	result, err := s.issue(user, auth.RoleCustomer)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventLoginSucceeded, user, events.LoginPayload{Email: user.Email})
	return result, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, access *auth.Access) (*domain.User, error) {
	return s.users.GetUser(ctx, access.SubjectID())
}

// GetUser returns a profile visible to its owner or an elevated caller.
func (s *AuthService) GetUser(ctx context.Context, access *auth.Access, id int64) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) signupRole(requested string) (auth.Role, error) {
	if requested == "" {
		return auth.RoleCustomer, nil
	}
	role, ok := auth.ParseRole(requested)
	if !ok {
		return "", apperrors.NewValidationError("validation failed", map[string]any{
			"role": "role must be one of: Customer Admin",
		})
	}
	if role == auth.RoleAdmin && !s.allowAdminSignup {
		return "", apperrors.NewValidationError("validation failed", map[string]any{
			"role": "self registration as Admin is not allowed",
		})
	}
	return role, nil
}

// issue signs a token for user. The role recorded by the user service wins
// over fallback when it is a known role.
func (s *AuthService) issue(user *domain.User, fallback auth.Role) (*AuthResult, error) {
	role := fallback
	if r, ok := auth.ParseRole(user.Role); ok {
		role = r
	}
	user.Role = string(role)

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, role)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == apperrors.CodeValidationFailed {
			s.logger.Error("user service returned an unusable profile", zap.Int64("user_id", user.ID), zap.Error(err))
			return nil, apperrors.NewUpstreamUnavailable(err)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, user *domain.User, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{}
	if user != nil {
		id := user.ID
		actor.SubjectID = &id
		actor.Role = user.Role
	}
	if err := s.dispatcher.Publish(ctx, events.New(eventType, actor, payload)); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
