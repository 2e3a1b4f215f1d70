package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin" // tam yetki + kullanıcı yönetimi
	RoleStaff UserRole = "staff" // günlük işlemler (aidat, ödeme, işlem)
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Username     string   `gorm:"size:50;uniqueIndex;not null"`
	FullName     string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	Active       bool     `gorm:"not null;default:true"`
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
