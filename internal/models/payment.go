package models

import "time"

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodCheck        PaymentMethod = "check"
)

// Payment - bir aidata karşı kaydedilen (kısmi veya tam) ödeme.
// TransactionID, ödeme defterde bir gelir kaydı olarak yansıtıldıysa dolu olur.
type Payment struct {
	ID            uint `gorm:"primaryKey"`
	FeeID         uint `gorm:"index;not null"`
	Fee           StudentFee
	Amount        float64       `gorm:"not null"` // > 0
	PaymentDate   time.Time     `gorm:"index;not null"`
	Method        PaymentMethod `gorm:"size:20;not null"`
	ReceiptNumber string        `gorm:"size:50"`
	Notes         string        `gorm:"size:255"`
	TransactionID *uint         `gorm:"index"`
	Transaction   *Transaction
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
