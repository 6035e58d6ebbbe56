package models

import "time"

type Table struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	TableNumber  string     `gorm:"type:varchar(50);not null" json:"table_number"`
	Status       string     `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	AccessToken  string     `gorm:"type:varchar(512)" json:"-"` // guest QR credential, rotated after full settlement
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}
