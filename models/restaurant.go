package models

import (
	"time"
)

// Restaurant holds the merchant-side configuration for payments.
// MarketplaceToken is the MercadoPago access token of the restaurant
// owner; an empty value means the restaurant cannot take card payments.
type Restaurant struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(100);not null" json:"name"`
	MarketplaceToken string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}
