package models

import (
	"time"
)

// BillShare is one guest's partial contribution to a bill. Shares are
// append-only; the sum of a bill's shares plus any full Payment equals the
// bill's PaidAmount.
type BillShare struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	BillID             uint      `gorm:"not null;index" json:"bill_id"`
	Bill               Bill      `gorm:"foreignKey:BillID" json:"-"`
	GuestEmail         string    `gorm:"type:varchar(100);not null" json:"guest_email"`
	AmountPaid         float64   `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	Paid               bool      `gorm:"not null;default:false" json:"paid"`
	ProcessorPaymentID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"processor_payment_id"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}
