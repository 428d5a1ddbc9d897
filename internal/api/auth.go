package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "/auth/login",
		form:   url.Values{"username": {email}, "password": {password}},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return resp.AccessToken, nil
}

// Register creates an account; callers log in afterwards
func (c *Client) Register(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "/auth/register",
		json:   map[string]string{"email": email, "password": password},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account that owns token
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "/auth/me",
		token:  token,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
