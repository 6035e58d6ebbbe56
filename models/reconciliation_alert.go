package models

import (
	"time"
)

// Alert reasons
const (
	AlertSettlementConflict = "settlement_conflict"
	AlertOverpayment        = "overpayment"
)

// ReconciliationAlert is written whenever a charge was captured by the
// processor but could not be applied to the ledger. These rows are the
// operator follow-up queue; the money has moved and the bill has not.
type ReconciliationAlert struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	BillID             uint      `gorm:"not null;index" json:"bill_id"`
	ProcessorPaymentID string    `gorm:"type:varchar(64);not null" json:"processor_payment_id"`
	Amount             float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reason             string    `gorm:"type:varchar(30);not null" json:"reason"`
	Detail             string    `gorm:"type:varchar(255)" json:"detail"`
	Resolved           bool      `gorm:"not null;default:false;index" json:"resolved"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}
