package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// ApplicationFeeRate is the marketplace fee attached to every charge.
const ApplicationFeeRate = 0.005

// MercadoPagoConfig holds MercadoPago configuration. The merchant access
// token is NOT part of the config: it belongs to a restaurant and is passed
// explicitly on every call.
type MercadoPagoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MercadoPagoService handles MercadoPago API interactions.
type MercadoPagoService struct {
	config     *MercadoPagoConfig
	httpClient *http.Client
}

// NewMercadoPagoService creates a new instance of MercadoPagoService.
func NewMercadoPagoService(config *MercadoPagoConfig) *MercadoPagoService {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.mercadopago.com"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &MercadoPagoService{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewMercadoPagoServiceFromEnv builds a service from environment variables.
func NewMercadoPagoServiceFromEnv() *MercadoPagoService {
	return NewMercadoPagoService(&MercadoPagoConfig{
		BaseURL: os.Getenv("MP_BASE_URL"),
	})
}

// ChargeResult is the processor's answer to one charge attempt. It is
// produced here and consumed exactly once by the reconciler.
type ChargeResult struct {
	Approved           bool
	Status             string
	StatusDetail       string
	ProcessorPaymentID string
	NetAmount          float64
	DateApproved       *time.Time
}

type chargePayer struct {
	Email          string              `json:"email"`
	Identification PayerIdentification `json:"identification"`
}

type chargeRequest struct {
	TransactionAmount float64     `json:"transaction_amount"`
	Token             string      `json:"token"`
	Installments      int         `json:"installments"`
	PaymentMethodID   string      `json:"payment_method_id"`
	IssuerID          int64       `json:"issuer_id"`
	Payer             chargePayer `json:"payer"`
	ApplicationFee    float64     `json:"application_fee"`
}

type chargeResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	TransactionAmount  float64     `json:"transaction_amount"`
	DateApproved       string      `json:"date_approved"`
	TransactionDetails struct {
		NetReceivedAmount float64 `json:"net_received_amount"`
	} `json:"transaction_details"`
}

// ApplicationFee computes the 0.5% marketplace fee, rounded to two decimal
// places.
func ApplicationFee(amount float64) float64 {
	return utils.Round2(amount * ApplicationFeeRate)
}

// CreateCardPayment issues exactly one charge-creation call for a validated
// request. accessToken is the owning restaurant's marketplace credential;
// an empty one fails before any network I/O. Every call carries a
// single-use idempotency key (the caller's reference_id when supplied, a
// fresh uuid otherwise) so transport-level retries cannot double-charge.
func (ms *MercadoPagoService) CreateCardPayment(accessToken string, p *NormalizedPayment) (*ChargeResult, error) {
	if accessToken == "" {
		return nil, ErrMerchantNotConfigured
	}

	payload := chargeRequest{
		TransactionAmount: p.Amount,
		Token:             p.Token,
		Installments:      p.Installments,
		PaymentMethodID:   p.PaymentMethodID,
		IssuerID:          p.IssuerID,
		Payer: chargePayer{
			Email:          p.Payer.Email,
			Identification: p.Payer.Identification,
		},
		ApplicationFee: ApplicationFee(p.Amount),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling charge request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payments", ms.config.BaseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	idempotencyKey := p.ReferenceID
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	utils.InfoLogger.Printf("Creating charge for bill %d amount %s (idempotency key %s)",
		p.BillID, utils.FormatAmount(p.Amount), idempotencyKey)

	resp, err := ms.httpClient.Do(req)
	if err != nil {
		return nil, &ProcessorError{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProcessorError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.ErrorLogger.Printf("MercadoPago API error (status %d): %s", resp.StatusCode, string(body))
		return nil, &ProcessorError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chargeResp chargeResponse
	if err := json.Unmarshal(body, &chargeResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling charge response: %w", err)
	}

	result := &ChargeResult{
		Approved:           chargeResp.Status == "approved",
		Status:             chargeResp.Status,
		StatusDetail:       chargeResp.StatusDetail,
		ProcessorPaymentID: chargeResp.ID.String(),
		NetAmount:          chargeResp.TransactionDetails.NetReceivedAmount,
	}
	if result.NetAmount == 0 {
		result.NetAmount = chargeResp.TransactionAmount
	}
	if chargeResp.DateApproved != "" {
		if approved, err := time.Parse(time.RFC3339, chargeResp.DateApproved); err == nil {
			result.DateApproved = &approved
		}
	}

	utils.InfoLogger.Printf("Charge %s for bill %d finished with status %s",
		result.ProcessorPaymentID, p.BillID, result.Status)

	return result, nil
}
