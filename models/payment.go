package models

import (
	"time"
)

// Payment records a single full-settlement charge for a bill. Rows are
// immutable once created; ProcessorPaymentID carries the MercadoPago charge
// id and is unique so a replayed charge can never settle twice.
type Payment struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	BillID             uint       `gorm:"not null;index" json:"bill_id"`
	Bill               Bill       `gorm:"foreignKey:BillID" json:"-"`
	PaidAmount         float64    `gorm:"type:decimal(10,2);not null" json:"paid_amount"`
	ProcessorPaymentID string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"processor_payment_id"`
	DateApproved       *time.Time `json:"date_approved"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
}
