package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

// Client resolves bearer tokens to principals.
type Client interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

// HTTPClient asks the identity provider who owns a token.
// Without a configured base URL every token is rejected.
type HTTPClient struct {
	rest   *resty.Client
	logger *slog.Logger
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewHTTPClient creates identity client for baseURL using apiKey as the project key.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	c := &HTTPClient{logger: logger}
	if baseURL == "" {
		return c, nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse identity url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("identity url must be absolute")
	}
	c.rest = resty.New().
		SetBaseURL(parsed.String()).
		SetTimeout(5*time.Second).
		SetHeader("apikey", apiKey)
	return c, nil
}

// Authenticate returns the principal for token or ErrUnauthenticated.
func (c *HTTPClient) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	if c.rest == nil || token == "" {
		return nil, domainErrors.ErrUnauthenticated
	}
	var out userResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return nil, domainErrors.ErrUnauthenticated
	case resp.IsError():
		c.logger.Error("identity request failed", slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("identity lookup: %s", resp.Status())
	}
	if out.ID == "" {
		return nil, domainErrors.ErrUnauthenticated
	}
	return &model.Principal{UserID: out.ID, Email: out.Email, Role: out.Role}, nil
}
