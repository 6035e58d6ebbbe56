package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pay/utils"
)

func testNormalizedPayment() *NormalizedPayment {
	return &NormalizedPayment{
		Token:           "card-token-123",
		IssuerID:        310,
		PaymentMethodID: "visa",
		Amount:          100.00,
		Installments:    1,
		Payer: PaymentPayer{
			Email: "guest@example.com",
			Identification: PayerIdentification{
				Type:   "DNI",
				Number: "12345678",
			},
		},
		BillID: 1,
	}
}

func newTestGateway(baseURL string) *MercadoPagoService {
	utils.InitLogger()
	return NewMercadoPagoService(&MercadoPagoConfig{BaseURL: baseURL})
}

func TestApplicationFee(t *testing.T) {
	assert.Equal(t, 0.50, ApplicationFee(100.00))
	assert.Equal(t, 0.05, ApplicationFee(10.00))
	// 33.33 * 0.005 = 0.16665 -> 0.17 with standard rounding
	assert.Equal(t, 0.17, ApplicationFee(33.33))
}

func TestCreateCardPayment_Approved(t *testing.T) {
	var gotBody map[string]interface{}
	var gotIdempotencyKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer merchant-token", r.Header.Get("Authorization"))
		gotIdempotencyKey = r.Header.Get("X-Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": 123456789,
			"status": "approved",
			"status_detail": "accredited",
			"transaction_amount": 100.00,
			"date_approved": "2025-03-01T12:00:00Z",
			"transaction_details": {"net_received_amount": 99.50}
		}`))
	}))
	defer server.Close()

	ms := newTestGateway(server.URL)
	result, err := ms.CreateCardPayment("merchant-token", testNormalizedPayment())
	assert.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Equal(t, "approved", result.Status)
	assert.Equal(t, "123456789", result.ProcessorPaymentID)
	assert.Equal(t, 99.50, result.NetAmount)
	assert.NotNil(t, result.DateApproved)

	assert.NotEmpty(t, gotIdempotencyKey)
	assert.Equal(t, 100.00, gotBody["transaction_amount"])
	assert.Equal(t, 0.50, gotBody["application_fee"])
	assert.Equal(t, float64(310), gotBody["issuer_id"])
}

func TestCreateCardPayment_ReferenceIDAsIdempotencyKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"id": 1, "status": "approved", "transaction_amount": 10.0}`))
	}))
	defer server.Close()

	p := testNormalizedPayment()
	p.ReferenceID = "caller-supplied-ref-42"

	ms := newTestGateway(server.URL)
	_, err := ms.CreateCardPayment("merchant-token", p)
	assert.NoError(t, err)
	assert.Equal(t, "caller-supplied-ref-42", gotKey)
}

func TestCreateCardPayment_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 987,
			"status": "rejected",
			"status_detail": "cc_rejected_insufficient_amount",
			"transaction_amount": 100.00
		}`))
	}))
	defer server.Close()

	ms := newTestGateway(server.URL)
	result, err := ms.CreateCardPayment("merchant-token", testNormalizedPayment())
	assert.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, "rejected", result.Status)
	assert.Equal(t, "cc_rejected_insufficient_amount", result.StatusDetail)
}

func TestCreateCardPayment_ProcessorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "internal error"}`))
	}))
	defer server.Close()

	ms := newTestGateway(server.URL)
	_, err := ms.CreateCardPayment("merchant-token", testNormalizedPayment())

	var procErr *ProcessorError
	assert.True(t, errors.As(err, &procErr))
	assert.Equal(t, http.StatusInternalServerError, procErr.StatusCode)
}

func TestCreateCardPayment_MerchantNotConfigured(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	ms := newTestGateway(server.URL)
	_, err := ms.CreateCardPayment("", testNormalizedPayment())
	assert.ErrorIs(t, err, ErrMerchantNotConfigured)
	assert.False(t, called, "no network call may happen without a credential")
}

func TestCreateCardPayment_NetAmountFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 5, "status": "approved", "transaction_amount": 40.00}`))
	}))
	defer server.Close()

	ms := newTestGateway(server.URL)
	result, err := ms.CreateCardPayment("merchant-token", testNormalizedPayment())
	assert.NoError(t, err)
	assert.Equal(t, 40.00, result.NetAmount)
}
