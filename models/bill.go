package models

import (
	"time"
)

// Bill is one table's open tab. PaidAmount only ever grows and never
// exceeds TotalAmount; IsPaid is terminal. Both are mutated exclusively by
// the reconciler through conditional updates, never by plain saves.
type Bill struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	TableID     uint        `gorm:"not null;index" json:"table_id"`
	Table       Table       `gorm:"foreignKey:TableID" json:"-"`
	TotalAmount float64     `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaidAmount  float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"paid_amount"`
	IsPaid      bool        `gorm:"not null;default:false" json:"is_paid"`
	Payments    []Payment   `gorm:"foreignKey:BillID" json:"payments,omitempty"`
	BillShares  []BillShare `gorm:"foreignKey:BillID" json:"bill_shares,omitempty"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
}

// Outstanding is the amount still owed on the bill.
func (b *Bill) Outstanding() float64 {
	return b.TotalAmount - b.PaidAmount
}
