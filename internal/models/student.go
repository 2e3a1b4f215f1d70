package models

import "time"

type Student struct {
	ID            uint    `gorm:"primaryKey"`
	FirstName     string  `gorm:"size:50;not null"`
	LastName      string  `gorm:"size:50;not null"`
	StudentNumber *string `gorm:"size:20;uniqueIndex"`
	ClassName     string  `gorm:"size:20;index;not null"`
	Section       string  `gorm:"size:10"`
	ParentName    string  `gorm:"size:100"`
	ParentPhone   string  `gorm:"size:20"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
