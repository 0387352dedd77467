package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
}
