package models

import "time"

// Transaction - genel gelir/gider defteri kaydı.
// Aidat ödemeleri istenirse buraya otomatik yansıtılır (Payment.TransactionID).
type Transaction struct {
	ID              uint         `gorm:"primaryKey"`
	Type            CategoryType `gorm:"size:10;not null"` // gelir / gider
	Amount          float64      `gorm:"not null"`
	Description     string       `gorm:"size:255;not null"`
	CategoryID      uint         `gorm:"index;not null"`
	Category        Category
	TransactionDate time.Time `gorm:"index;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
