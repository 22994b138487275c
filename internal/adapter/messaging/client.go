package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// ErrNoMessageID is returned when the API accepted a message without assigning an id.
var ErrNoMessageID = errors.New("messaging api returned no message id")

const defaultLanguage = "en"

// Client sends outbound messages to vendors.
type Client interface {
	SendTemplate(ctx context.Context, msg model.TemplateMessage) (model.Delivery, error)
	SendText(ctx context.Context, msg model.TextMessage) (model.Delivery, error)
}

// HTTPClient implements Client over the cloud messaging API.
type HTTPClient struct {
	rest    *resty.Client
	phoneID string
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

type parameter struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []parameter `json:"parameters"`
}

type templateBody struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []component `json:"components"`
}

type sendRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         *templateBody `json:"template,omitempty"`
	Text             *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewHTTPClient creates a messaging client limited to rps requests per second.
func NewHTTPClient(baseURL, phoneID, token string, rps float64, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse messaging url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("messaging url must be absolute")
	}
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	rest := resty.New().
		SetBaseURL(parsed.String()).
		SetTimeout(10 * time.Second).
		SetAuthToken(token)
	return &HTTPClient{
		rest:    rest,
		phoneID: phoneID,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// SendTemplate sends a templated message with body parameters and an optional quick-reply payload.
func (c *HTTPClient) SendTemplate(ctx context.Context, msg model.TemplateMessage) (model.Delivery, error) {
	tpl := &templateBody{Name: msg.Template}
	tpl.Language.Code = msg.Language
	if tpl.Language.Code == "" {
		tpl.Language.Code = defaultLanguage
	}
	params := make([]parameter, 0, len(msg.Parameters))
	for _, p := range msg.Parameters {
		params = append(params, parameter{Type: "text", Text: p})
	}
	tpl.Components = []component{{Type: "body", Parameters: params}}
	if msg.ButtonPayload != "" {
		tpl.Components = append(tpl.Components, component{
			Type:       "button",
			SubType:    "quick_reply",
			Index:      "0",
			Parameters: []parameter{{Type: "payload", Payload: msg.ButtonPayload}},
		})
	}
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template:         tpl,
	})
}

// SendText sends a free-text message.
func (c *HTTPClient) SendText(ctx context.Context, msg model.TextMessage) (model.Delivery, error) {
	req := sendRequest{MessagingProduct: "whatsapp", To: msg.To, Type: "text"}
	req.Text = &struct {
		Body string `json:"body"`
	}{Body: msg.Body}
	return c.send(ctx, req)
}

func (c *HTTPClient) send(ctx context.Context, body sendRequest) (model.Delivery, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Delivery{}, fmt.Errorf("wait for send slot: %w", err)
	}
	var out sendResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("phone", c.phoneID).
		SetBody(body).
		SetResult(&out).
		SetError(&errorResponse{}).
		Post("/{phone}/messages")
	if err != nil {
		return model.Delivery{}, fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() {
		detail := resp.Status()
		if e, ok := resp.Error().(*errorResponse); ok && e.Error.Message != "" {
			detail = e.Error.Message
		}
		c.logger.Error("messaging request failed",
			slog.String("type", body.Type),
			slog.Int("status", resp.StatusCode()),
			slog.String("detail", detail),
		)
		return model.Delivery{}, fmt.Errorf("send message: %s", detail)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return model.Delivery{}, ErrNoMessageID
	}
	return model.Delivery{MessageID: out.Messages[0].ID, SentAt: c.now()}, nil
}
