package models

import "time"

type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
	FeeStatusOverdue FeeStatus = "overdue"
)

// StudentFee - bir öğrenciye tahakkuk eden aidat.
// Status türetilmiş bir alan: ödemeler toplamı tutara ulaşınca "paid",
// aksi halde "pending"; vadesi geçen bekleyenler sweep ile "overdue" olur.
type StudentFee struct {
	ID          uint `gorm:"primaryKey"`
	StudentID   uint `gorm:"index;not null"`
	Student     Student
	Description string    `gorm:"size:200;not null"`
	Amount      float64   `gorm:"not null"` // > 0
	DueDate     time.Time `gorm:"index;not null"`
	Status      FeeStatus `gorm:"size:10;index;not null;default:pending"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
