package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/server/http/dto"
	"github.com/polkiloo/orderhub/internal/server/http/middleware"
)

// CurrentPrincipalID extracts the authenticated user identifier from context.
func CurrentPrincipalID(c *gin.Context) string {
	return c.GetString(middleware.UserIDContextKey)
}

// StatusFor classifies err into a response code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrUnauthenticated),
		errors.Is(err, domainErrors.ErrInvalidPaymentToken):
		return http.StatusUnauthorized
	case errors.Is(err, domainErrors.ErrForbidden),
		errors.Is(err, domainErrors.ErrUserBlocked),
		errors.Is(err, domainErrors.ErrVendorUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrNotInExpectedState),
		errors.Is(err, domainErrors.ErrMessageExpired):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrInvalidPayload),
		errors.Is(err, domainErrors.ErrInvalidSignature),
		errors.Is(err, domainErrors.ErrPayloadTampered),
		errors.Is(err, domainErrors.ErrAmountMismatch),
		errors.Is(err, domainErrors.ErrPaymentNotCaptured),
		errors.Is(err, domainErrors.ErrPaymentOrderMismatch),
		errors.Is(err, domainErrors.ErrMinimumOrder),
		errors.Is(err, domainErrors.ErrWalletDebitFailed),
		errors.Is(err, domainErrors.ErrInvalidHandoverCode):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrLedgerTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the classified status. Server errors hide their detail.
func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: message})
}
