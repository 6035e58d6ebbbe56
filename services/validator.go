package services

import (
	"strconv"

	"github.com/yeremiapane/restaurant-pay/utils"
)

// PaymentRequest is the raw payment submission from the checkout UI.
type PaymentRequest struct {
	Token             string       `json:"token"`
	IssuerID          string       `json:"issuer_id"`
	PaymentMethodID   string       `json:"payment_method_id"`
	TransactionAmount string       `json:"transaction_amount"`
	Installments      int          `json:"installments"`
	Payer             PaymentPayer `json:"payer"`
	BillID            uint         `json:"bill_id"`
	// ReferenceID is optional. When the caller supplies one it becomes the
	// processor idempotency key, so retrying the same submission cannot
	// create a second charge.
	ReferenceID string `json:"reference_id"`
}

type PaymentPayer struct {
	Email          string               `json:"email"`
	Identification PayerIdentification `json:"identification"`
}

type PayerIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// NormalizedPayment is a validated request, ready for the gateway.
type NormalizedPayment struct {
	Token           string
	IssuerID        int64
	PaymentMethodID string
	Amount          float64
	Installments    int
	Payer           PaymentPayer
	BillID          uint
	ReferenceID     string
}

// ValidatePaymentRequest checks required fields in a fixed order (token,
// issuer_id, payment_method_id, transaction_amount, installments, payer,
// bill_id) and short-circuits on the first failure. The order decides which
// error a malformed request gets, so it is part of the contract.
func ValidatePaymentRequest(req *PaymentRequest) (*NormalizedPayment, error) {
	if req.Token == "" {
		return nil, &MissingFieldError{Field: "token"}
	}
	if req.IssuerID == "" {
		return nil, &MissingFieldError{Field: "issuer_id"}
	}
	if req.PaymentMethodID == "" {
		return nil, &MissingFieldError{Field: "payment_method_id"}
	}
	if req.TransactionAmount == "" {
		return nil, &MissingFieldError{Field: "transaction_amount"}
	}
	if req.Installments == 0 {
		return nil, &MissingFieldError{Field: "installments"}
	}
	if req.Payer.Email == "" || req.Payer.Identification.Type == "" || req.Payer.Identification.Number == "" {
		return nil, &MissingFieldError{Field: "payer"}
	}
	if req.BillID == 0 {
		return nil, &MissingFieldError{Field: "bill_id"}
	}

	amount, err := utils.ParseAmount(req.TransactionAmount)
	if err != nil || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	issuerID, err := strconv.ParseInt(req.IssuerID, 10, 64)
	if err != nil {
		return nil, &MissingFieldError{Field: "issuer_id"}
	}

	return &NormalizedPayment{
		Token:           req.Token,
		IssuerID:        issuerID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          amount,
		Installments:    req.Installments,
		Payer:           req.Payer,
		BillID:          req.BillID,
		ReferenceID:     req.ReferenceID,
	}, nil
}
