package http

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserDto is the public view of an account.
type UserDto struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLoginDate *time.Time `json:"lastLoginDate"`
}

// AuthResponse is the envelope returned by register, login and every error.
type AuthResponse struct {
	IsSuccess bool       `json:"isSuccess"`
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	User      *UserDto   `json:"user,omitempty"`
	Errors    []string   `json:"errors,omitempty"`
}

// MessageResponse is returned by logout.
type MessageResponse struct {
	Message string `json:"message"`
}

func toUserDto(p services.Profile) *UserDto {
	return &UserDto{
		ID:            p.ID,
		Email:         p.Email,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		CreatedAt:     p.CreatedAt,
		LastLoginDate: p.LastLoginDate,
	}
}

func toAuthResponse(message string, res *services.AuthResult) AuthResponse {
	expires := res.ExpiresAt
	return AuthResponse{
		IsSuccess: true,
		Message:   message,
		Token:     res.Token,
		ExpiresAt: &expires,
		User:      toUserDto(res.Profile),
	}
}
