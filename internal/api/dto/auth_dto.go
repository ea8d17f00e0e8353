package dto

import (
	"time"

	"github.com/spec-kit/storefront-bff/internal/domain"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=Customer Admin"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public projection of a user profile.
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
