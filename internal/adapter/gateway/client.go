package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// ErrPaymentNotFound indicates the gateway does not know the payment id.
var ErrPaymentNotFound = errors.New("payment not found")

// Client exposes the payment gateway operations used by the service.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*model.GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error)
	Refund(ctx context.Context, paymentID string, amount int64) (*model.Refund, error)
}

// HTTPClient implements Client over the gateway REST API.
type HTTPClient struct {
	rest   *resty.Client
	logger *slog.Logger
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewHTTPClient creates a gateway client authenticated with the key pair.
func NewHTTPClient(baseURL, keyID, keySecret string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	rest := resty.New().
		SetBaseURL(parsed.String()).
		SetTimeout(10*time.Second).
		SetBasicAuth(keyID, keySecret).
		SetHeader("Accept", "application/json")
	return &HTTPClient{rest: rest, logger: logger}, nil
}

// CreateOrder registers an order at the gateway for amount in minor units.
func (c *HTTPClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*model.GatewayOrder, error) {
	var out model.GatewayOrder
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt, Notes: notes}).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	if resp.IsError() {
		return nil, c.failure("create order", resp)
	}
	return &out, nil
}

// FetchPayment loads a payment by id.
func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	var out model.GatewayPayment
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetResult(&out).
		SetError(&errorResponse{}).
		Get("/payments/{id}")
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, ErrPaymentNotFound
	}
	if resp.IsError() {
		return nil, c.failure("fetch payment", resp)
	}
	return &out, nil
}

// Refund returns amount minor units of a captured payment to the payer.
func (c *HTTPClient) Refund(ctx context.Context, paymentID string, amount int64) (*model.Refund, error) {
	var out model.Refund
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetBody(refundRequest{Amount: amount}).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/payments/{id}/refund")
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	if resp.IsError() {
		return nil, c.failure("refund", resp)
	}
	return &out, nil
}

func (c *HTTPClient) failure(op string, resp *resty.Response) error {
	detail := resp.Status()
	if e, ok := resp.Error().(*errorResponse); ok && e.Error.Description != "" {
		detail = e.Error.Description
	}
	c.logger.Error("gateway request failed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode()),
		slog.String("detail", detail),
	)
	return fmt.Errorf("gateway %s: %s", op, detail)
}
