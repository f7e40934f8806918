package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for state violations. Handlers map these to HTTP codes
// with errors.Is.
var (
	ErrInvoiceClosed        = errors.New("invoice no longer accepts this operation")
	ErrPaymentAlreadyVoided = errors.New("payment is already voided")
	ErrImmutablePayment     = errors.New("active payments cannot be modified, void and re-add instead")
	ErrInvalidStatusChange  = errors.New("invalid invoice status change")
	ErrBalanceExceeded      = errors.New("advance exceeds invoice total")
	ErrNotFound             = errors.New("record not found")
)

// InsufficientStockError reports a reservation that asked for more units
// than the item holds.
type InsufficientStockError struct {
	SKU       string
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): requested %d, available %d",
		e.ItemName, e.SKU, e.Requested, e.Available)
}

// OverPaymentError reports a payment that would push the balance below zero.
type OverPaymentError struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
}

func (e *OverPaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance %s on invoice %s",
		e.Amount.StringFixed(2), e.Balance.StringFixed(2), e.InvoiceNumber)
}

// SubscriptionExpiredError blocks invoice creation for organizations whose
// subscription window has lapsed.
type SubscriptionExpiredError struct {
	SubscriptionType string
}

func (e *SubscriptionExpiredError) Error() string {
	if e.SubscriptionType == "" {
		return "organization has no active subscription"
	}
	return fmt.Sprintf("%s subscription has expired", e.SubscriptionType)
}

// DuplicateCustomerError reports an active customer already holding the
// phone or email being claimed.
type DuplicateCustomerError struct {
	Field string
	Value string
}

func (e *DuplicateCustomerError) Error() string {
	return fmt.Sprintf("an active customer with %s %q already exists", e.Field, e.Value)
}

// GridError reports a prescription value off its permitted grid.
type GridError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *GridError) Error() string {
	return fmt.Sprintf("prescription %s value %v is invalid: %s", e.Field, e.Value, e.Reason)
}

// DiscountExceededError reports a wholesale line discount above the item's ceiling.
type DiscountExceededError struct {
	ItemCode string
	Given    decimal.Decimal
	Max      decimal.Decimal
}

func (e *DiscountExceededError) Error() string {
	return fmt.Sprintf("discount %s%% on item %s exceeds maximum %s%%",
		e.Given.StringFixed(2), e.ItemCode, e.Max.StringFixed(2))
}

// QuantityExceededError reports a wholesale line quantity above the item's
// reorder cap.
type QuantityExceededError struct {
	ItemCode string
	Given    int
	Max      int
}

func (e *QuantityExceededError) Error() string {
	return fmt.Sprintf("quantity %d on item %s exceeds maximum %d", e.Given, e.ItemCode, e.Max)
}
