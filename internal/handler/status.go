package handler

import (
	"errors"
	"net/http"

	"opticinvoicer/internal/service"
	"opticinvoicer/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP codes. Unknown errors fall back to
// the caller's default (400 for mutations, 500 for reads).
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvoiceClosed),
		errors.Is(err, service.ErrPaymentAlreadyVoided),
		errors.Is(err, service.ErrImmutablePayment),
		errors.Is(err, service.ErrInvalidStatusChange),
		errors.Is(err, service.ErrBalanceExceeded):
		return http.StatusConflict
	}

	var insufficientStock *service.InsufficientStockError
	var overPayment *service.OverPaymentError
	var duplicateCustomer *service.DuplicateCustomerError
	var discountExceeded *service.DiscountExceededError
	var quantityExceeded *service.QuantityExceededError
	if errors.As(err, &insufficientStock) ||
		errors.As(err, &overPayment) ||
		errors.As(err, &duplicateCustomer) ||
		errors.As(err, &discountExceeded) ||
		errors.As(err, &quantityExceeded) {
		return http.StatusConflict
	}

	var subscriptionExpired *service.SubscriptionExpiredError
	if errors.As(err, &subscriptionExpired) {
		return http.StatusPaymentRequired
	}

	var grid *service.GridError
	if errors.As(err, &grid) {
		return http.StatusBadRequest
	}

	return fallback
}

// fail writes the mapped error response for a mutating endpoint.
func fail(c *gin.Context, err error) {
	status := statusFor(err, http.StatusBadRequest)
	c.JSON(status, response.Error(status, err.Error()))
}

// failRead writes the mapped error response for a read endpoint.
func failRead(c *gin.Context, err error) {
	status := statusFor(err, http.StatusInternalServerError)
	c.JSON(status, response.Error(status, err.Error()))
}
