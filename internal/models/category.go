package models

import "time"

type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "gelir"
	CategoryTypeExpense CategoryType = "gider"
)

type Category struct {
	ID        uint         `gorm:"primaryKey"`
	Name      string       `gorm:"size:100;uniqueIndex;not null"`
	Type      CategoryType `gorm:"size:10;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
