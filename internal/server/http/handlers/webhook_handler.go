package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/server/http/dto"
)

const (
	// GatewaySignatureHeader carries the HMAC of the raw gateway webhook body.
	GatewaySignatureHeader = "X-Razorpay-Signature"
	// OrderWebhookTokenHeader carries the shared secret of the order-created webhook.
	OrderWebhookTokenHeader = "X-Webhook-Token"

	maxWebhookBody = 1 << 20
)

// WebhookHandler processes inbound webhooks.
type WebhookHandler struct {
	facade     WebhookFacade
	orderToken string
	logger     *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler. An empty orderToken disables the order-created token check.
func NewWebhookHandler(facade WebhookFacade, orderToken string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, orderToken: orderToken, logger: logger}
}

// Gateway handles POST /webhook/razorpay. The body is read raw so the signature covers the exact bytes.
func (h *WebhookHandler) Gateway(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.GatewayWebhookResponse{})
		return
	}

	result, err := h.facade.ReceiveGatewayEvent(c.Request.Context(), raw, c.GetHeader(GatewaySignatureHeader))
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("gateway webhook failed", slog.String("error", err.Error()))
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, dto.GatewayWebhookResponse{})
		return
	}

	resp := dto.GatewayWebhookResponse{Success: true}
	if result != nil {
		resp.Status = string(result.Status)
	}
	c.JSON(http.StatusOK, resp)
}

// MessagingVerify handles GET /webhook/whatsapp.
func (h *WebhookHandler) MessagingVerify(c *gin.Context) {
	challenge, err := h.facade.VerifyMessagingHandshake(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, challenge)
}

// MessagingReceive handles POST /webhook/whatsapp. Only the first message of the first change is processed.
func (h *WebhookHandler) MessagingReceive(c *gin.Context) {
	var payload dto.MessagingWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	raw, ok := payload.FirstMessage()
	if !ok {
		c.Status(http.StatusOK)
		return
	}
	msg, ok := toInboundMessage(raw)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	if err := h.facade.HandleInboundMessage(c.Request.Context(), msg); err != nil {
		if errors.Is(err, domainErrors.ErrVendorUnauthorized) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		h.logger.Error("inbound message failed", slog.String("from", msg.From), slog.String("error", err.Error()))
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	c.Status(http.StatusOK)
}

// OrderCreated handles POST /webhook/order-created.
func (h *WebhookHandler) OrderCreated(c *gin.Context) {
	if h.orderToken != "" {
		got := c.GetHeader(OrderWebhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.orderToken)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}
	var req dto.OrderCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OrderID) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "order_id is required"})
		return
	}

	sent, err := h.facade.NotifyPlaced(c.Request.Context(), strings.TrimSpace(req.OrderID), model.SourceWebhook)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderCreatedResponse{Sent: sent})
}

func toInboundMessage(raw dto.InboundMessage) (model.InboundMessage, bool) {
	msg := model.InboundMessage{From: raw.From}
	if sec, err := strconv.ParseInt(raw.Timestamp, 10, 64); err == nil {
		msg.Timestamp = time.Unix(sec, 0)
	}
	switch {
	case raw.Type == "button" && raw.Button != nil && raw.Button.Payload != "":
		msg.ButtonPayload = raw.Button.Payload
	case raw.Type == "text" && raw.Text != nil && raw.Text.Body != "":
		msg.Text = raw.Text.Body
	default:
		return model.InboundMessage{}, false
	}
	return msg, true
}
