package audit

import (
	"encoding/json"
	"fmt"

	"okul-backend/internal/models"

	"gorm.io/gorm"
)

// Recorder mali kayıtlardaki değişiklikleri audit tablosuna yazar.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string // "transaction", "student_fee", "payment", "category"
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func (r *Recorder) Write(opts LogOptions) error {
	// Postgres jsonb boş string kabul etmez, "null" JSON kullanılır
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := r.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}

	return nil
}
