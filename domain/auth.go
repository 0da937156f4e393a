package domain

import "context"

// User is a storefront account
type User struct {
	ID        int    `json:"id" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// AuthResult is returned by login and register
type AuthResult struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token" validate:"required"`
	User        User   `json:"user"`
}

// AuthService is the external authentication backend
type AuthService interface {
	Login(ctx context.Context, username, password string) (AuthResult, error)
	Register(ctx context.Context, username, email, password string) (AuthResult, error)
	Profile(ctx context.Context) (User, error)
	Logout(ctx context.Context) error
}
