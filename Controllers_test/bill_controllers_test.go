package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pay/models"
)

func TestGlobalRateLimiterKicksIn(t *testing.T) {
	db := setupTestDBForPayments(t)
	r := setupPaymentRouter(db, &stubGateway{})

	last := 0
	for i := 0; i < 60; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		r.ServeHTTP(w, req)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last, "the 51st request inside a second must be throttled")
}

func TestCreateAndGetBill(t *testing.T) {
	db := setupTestDBForPayments(t)
	restaurant := models.Restaurant{Name: "Test Resto", MarketplaceToken: "merchant-token"}
	assert.NoError(t, db.Create(&restaurant).Error)
	table := models.Table{RestaurantID: restaurant.ID, TableNumber: "T1"}
	assert.NoError(t, db.Create(&table).Error)

	r := setupPaymentRouter(db, &stubGateway{})

	payload, _ := json.Marshal(map[string]interface{}{
		"table_id":     table.ID,
		"total_amount": 250.00,
	})
	req, _ := http.NewRequest("POST", "/api/bills", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var bill models.Bill
	assert.NoError(t, db.Where("table_id = ?", table.ID).First(&bill).Error)
	assert.Equal(t, 250.00, bill.TotalAmount)
	assert.False(t, bill.IsPaid)

	// A second open bill for the same table is refused.
	req, _ = http.NewRequest("POST", "/api/bills", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Read it back with its (empty) payments and shares.
	req, _ = http.NewRequest("GET", fmt.Sprintf("/api/bills/%d", bill.ID), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, 250.00, data["total_amount"])
	assert.Equal(t, false, data["is_paid"])
}

func TestGetAlerts(t *testing.T) {
	db := setupTestDBForPayments(t)
	assert.NoError(t, db.Create(&models.ReconciliationAlert{
		BillID:             1,
		ProcessorPaymentID: "ch-9",
		Amount:             60.00,
		Reason:             models.AlertOverpayment,
		Detail:             "charge exceeds outstanding",
	}).Error)

	r := setupPaymentRouter(db, &stubGateway{})

	req, _ := http.NewRequest("GET", "/api/alerts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	alerts := resp["data"].([]interface{})
	assert.Len(t, alerts, 1)
	alert := alerts[0].(map[string]interface{})
	assert.Equal(t, "ch-9", alert["processor_payment_id"])
	assert.Equal(t, models.AlertOverpayment, alert["reason"])
}
