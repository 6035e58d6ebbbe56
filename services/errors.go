package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount rejects a transaction_amount that is not a number
	// strictly greater than zero.
	ErrInvalidAmount = errors.New("Invalid amount.")

	// ErrMerchantNotConfigured means the restaurant has no marketplace
	// access token, found out before any call leaves the process.
	ErrMerchantNotConfigured = errors.New("Restaurant not configured for payments.")

	// ErrSettlementConflict means the charge was captured by the processor
	// but the bill could not be updated (already paid or a concurrent
	// writer won). The money has moved and the ledger has not; this must be
	// escalated, never silently retried.
	ErrSettlementConflict = errors.New("settlement conflict: charge captured but bill not updated")

	// ErrOverpaymentRejected means an approved charge exceeds the bill's
	// outstanding balance. No transition exists for it; an operator has to
	// sort out the captured amount.
	ErrOverpaymentRejected = errors.New("overpayment rejected: charge exceeds outstanding balance")
)

// MissingFieldError identifies the first required request field that was
// absent. The check order is fixed, so which field gets reported is part of
// the contract.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("No %s provided.", e.Field)
}

// DeclinedError carries a processor decline verbatim. A decline is a
// business outcome, not a system failure, and is always reported to the
// caller as-is.
type DeclinedError struct {
	Status string
	Detail string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment not approved: %s (%s)", e.Status, e.Detail)
}

// ProcessorError is a transport or HTTP failure talking to MercadoPago.
// The ledger is untouched, so the caller may retry.
type ProcessorError struct {
	StatusCode int
	Body       string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor request failed with status %d: %s", e.StatusCode, e.Body)
}
