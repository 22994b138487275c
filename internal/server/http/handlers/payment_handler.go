package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/server/http/dto"
)

// PaymentHandler manages checkout endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Initiate handles POST /api/payment/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req dto.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
		return
	}

	result, err := h.facade.Initiate(c.Request.Context(), model.InitiateRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Payload:     req.OrderPayload,
		PrincipalID: CurrentPrincipalID(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Finalize handles POST /api/payment/finalize. The response code is derived from the outcome tag.
func (h *PaymentHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
		return
	}

	result, err := h.facade.Finalize(c.Request.Context(), model.PaymentContext{
		Payload:        req.OrderPayload,
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		Token:          req.Token,
		PrincipalID:    CurrentPrincipalID(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(result.Status.HTTPStatus(), result)
}
