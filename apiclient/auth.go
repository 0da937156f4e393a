package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"shopassist/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	User domain.User `json:"user"`
}

// Login authenticates and, when a token store is configured, persists the
// access token and user for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	var res domain.AuthResult
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", nil, loginRequest{username, password}, &res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, c.rememberLogin(ctx, res)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, username, email, password string) (domain.AuthResult, error) {
	var res domain.AuthResult
	req := registerRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", nil, req, &res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, c.rememberLogin(ctx, res)
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var res profileResponse
	if err := c.do(ctx, "profile", http.MethodGet, "/api/auth/profile", nil, nil, &res); err != nil {
		return domain.User{}, err
	}
	return res.User, nil
}

// Logout forgets the stored credentials. The API keeps no server-side
// session for JWT logins, so nothing is sent.
func (c *Client) Logout(ctx context.Context) error {
	c.forgetLogin(ctx)
	return nil
}

func (c *Client) rememberLogin(ctx context.Context, res domain.AuthResult) error {
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.Set(ctx, domain.KeyAuthToken, res.AccessToken); err != nil {
		return err
	}
	b, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	return c.tokens.Set(ctx, domain.KeyUser, string(b))
}
