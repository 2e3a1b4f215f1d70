package fee

import (
	"fmt"
	"log"
	"strings"
	"time"

	"okul-backend/internal/audit"
	"okul-backend/internal/auth"
	"okul-backend/internal/helpers"
	"okul-backend/internal/ledger"
	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateFeeRequest struct {
	StudentID   uint    `json:"student_id" validate:"required"`
	Description string  `json:"description" validate:"required,min=2,max=200"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date" validate:"required"`
}

type UpdateFeeRequest struct {
	Description string  `json:"description" validate:"required,min=2,max=200"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date" validate:"required"`
}

type BulkAssignRequest struct {
	StudentIDs  []uint   `json:"student_ids"`
	ClassNames  []string `json:"class_names"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	DueDate     string   `json:"due_date"`
}

type FeeResponse struct {
	ID          uint    `json:"id"`
	StudentID   uint    `json:"student_id"`
	StudentName string  `json:"student_name"`
	ClassName   string  `json:"class_name"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	PaidAmount  float64 `json:"paid_amount"`
}

type PaymentItem struct {
	ID            uint    `json:"id"`
	Amount        float64 `json:"amount"`
	PaymentDate   string  `json:"payment_date"`
	Method        string  `json:"payment_method"`
	ReceiptNumber string  `json:"receipt_number"`
	Notes         string  `json:"notes"`
	TransactionID *uint   `json:"transaction_id"`
}

type FeeDetailResponse struct {
	FeeResponse
	Payments        []PaymentItem `json:"payments"`
	RemainingAmount float64       `json:"remaining_amount"`
	IsFullyPaid     bool          `json:"is_fully_paid"`
}

func toResponse(f models.StudentFee, paid float64) FeeResponse {
	return FeeResponse{
		ID:          f.ID,
		StudentID:   f.StudentID,
		StudentName: strings.TrimSpace(f.Student.FirstName + " " + f.Student.LastName),
		ClassName:   f.Student.ClassName,
		Description: f.Description,
		Amount:      f.Amount,
		DueDate:     f.DueDate.Format("2006-01-02"),
		Status:      string(f.Status),
		PaidAmount:  paid,
	}
}

// POST /api/fees
func CreateFeeHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateFeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Description = strings.TrimSpace(body.Description)
		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		due, err := time.Parse("2006-01-02", body.DueDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		var student models.Student
		if err := db.First(&student, "id = ?", body.StudentID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Seçilen öğrenci bulunamadı")
		}

		f := models.StudentFee{
			StudentID:   student.ID,
			Description: body.Description,
			Amount:      body.Amount,
			DueDate:     due,
			Status:      models.FeeStatusPending,
		}

		if err := db.Create(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidat oluşturulamadı")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:     userID,
				UserName:   userName,
				EntityType: "student_fee",
				EntityID:   f.ID,
				Action:     models.AuditActionCreate,
				Description: fmt.Sprintf("Aidat eklendi: %s %s - %.2f TL",
					student.FirstName, student.LastName, f.Amount),
				After: map[string]interface{}{
					"id":          f.ID,
					"student_id":  f.StudentID,
					"description": f.Description,
					"amount":      f.Amount,
					"due_date":    f.DueDate.Format("2006-01-02"),
					"status":      string(f.Status),
				},
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		f.Student = student
		return c.Status(fiber.StatusCreated).JSON(toResponse(f, 0))
	}
}

// GET /api/fees?student_id=...&class_name=...&status=...&due_date_start=...&due_date_end=...
func ListFeesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.StudentFee{}).Preload("Student").
			Joins("JOIN students ON students.id = student_fees.student_id")

		if sidStr := c.Query("student_id"); sidStr != "" {
			var sid uint
			if _, err := fmt.Sscan(sidStr, &sid); err != nil || sid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "student_id geçersiz")
			}
			dbq = dbq.Where("student_fees.student_id = ?", sid)
		}

		if cn := c.Query("class_name"); cn != "" {
			dbq = dbq.Where("students.class_name LIKE ?", "%"+cn+"%")
		}

		if status := c.Query("status"); status != "" {
			switch models.FeeStatus(status) {
			case models.FeeStatusPending, models.FeeStatusPaid, models.FeeStatusOverdue:
				dbq = dbq.Where("student_fees.status = ?", status)
			default:
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz (pending/paid/overdue)")
			}
		}

		if fromStr := c.Query("due_date_start"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "due_date_start geçersiz")
			}
			dbq = dbq.Where("student_fees.due_date >= ?", from)
		}

		if toStr := c.Query("due_date_end"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "due_date_end geçersiz")
			}
			dbq = dbq.Where("student_fees.due_date <= ?", to)
		}

		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		var fees []models.StudentFee
		if err := dbq.Order("student_fees.due_date desc, students.class_name asc, students.first_name asc").
			Limit(limit).Offset(offset).
			Find(&fees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidatlar listelenemedi")
		}

		// Ödenen tutarları tek sorguda topla
		paidByFee := make(map[uint]float64)
		if len(fees) > 0 {
			ids := make([]uint, 0, len(fees))
			for _, f := range fees {
				ids = append(ids, f.ID)
			}
			type row struct {
				FeeID uint    `gorm:"column:fee_id"`
				Total float64 `gorm:"column:total"`
			}
			var rows []row
			if err := db.Model(&models.Payment{}).
				Select("fee_id, SUM(amount) as total").
				Where("fee_id IN ?", ids).
				Group("fee_id").
				Scan(&rows).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Ödeme toplamları hesaplanamadı")
			}
			for _, r := range rows {
				paidByFee[r.FeeID] = r.Total
			}
		}

		resp := make([]FeeResponse, 0, len(fees))
		for _, f := range fees {
			resp = append(resp, toResponse(f, paidByFee[f.ID]))
		}
		return c.JSON(resp)
	}
}

// GET /api/fees/:id - aidat + ödemeleri + özet
func GetFeeHandler(engine *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir aidat ID belirtmelisiniz")
		}

		summary, err := engine.FeeSummary(uint(id))
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		payments := make([]PaymentItem, 0, len(summary.Payments))
		for _, p := range summary.Payments {
			payments = append(payments, PaymentItem{
				ID:            p.ID,
				Amount:        p.Amount,
				PaymentDate:   p.PaymentDate.Format("2006-01-02"),
				Method:        string(p.Method),
				ReceiptNumber: p.ReceiptNumber,
				Notes:         p.Notes,
				TransactionID: p.TransactionID,
			})
		}

		return c.JSON(FeeDetailResponse{
			FeeResponse:     toResponse(summary.Fee, summary.TotalPaid),
			Payments:        payments,
			RemainingAmount: summary.RemainingAmount,
			IsFullyPaid:     summary.IsFullyPaid,
		})
	}
}

// PUT /api/fees/:id
// Tutar küçültülürken mevcut ödemeler toplamının altına inilemez.
func UpdateFeeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var f models.StudentFee
		if err := db.Preload("Student").First(&f, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Aidat bulunamadı")
		}

		var body UpdateFeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Description = strings.TrimSpace(body.Description)
		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		due, err := time.Parse("2006-01-02", body.DueDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		var paid float64
		db.Model(&models.Payment{}).Where("fee_id = ?", f.ID).
			Select("COALESCE(SUM(amount), 0)").Scan(&paid)
		if body.Amount < paid {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Aidat tutarı ödenen toplamın (%.2f TL) altına indirilemez", paid))
		}

		f.Description = body.Description
		f.Amount = body.Amount
		f.DueDate = due
		// Status'u yeni tutara göre yeniden hesapla
		if paid >= f.Amount {
			f.Status = models.FeeStatusPaid
		} else if f.Status == models.FeeStatusPaid {
			f.Status = models.FeeStatusPending
		}

		if err := db.Save(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidat güncellenemedi")
		}

		return c.JSON(toResponse(f, paid))
	}
}

// DELETE /api/fees/:id - ödemesi olan aidat silinemez (409)
func DeleteFeeHandler(engine *ledger.Engine, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir aidat ID belirtmelisiniz")
		}

		if err := engine.DeleteFee(uint(id)); err != nil {
			return helpers.LedgerError(c, err)
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "student_fee",
				EntityID:    uint(id),
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Aidat silindi: #%d", id),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/fees/bulk
// Hedef: student_ids, class_names veya (ikisi de boşsa) tüm öğrenciler.
func BulkAssignHandler(engine *ledger.Engine, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkAssignRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var due time.Time
		if body.DueDate != "" {
			var err error
			due, err = time.Parse("2006-01-02", body.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
			}
		}

		assigned, err := engine.BulkAssignFees(ledger.BulkAssignInput{
			StudentIDs:  body.StudentIDs,
			ClassNames:  body.ClassNames,
			Description: body.Description,
			Amount:      body.Amount,
			DueDate:     due,
		})
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:     userID,
				UserName:   userName,
				EntityType: "student_fee",
				Action:     models.AuditActionCreate,
				Description: fmt.Sprintf("Toplu aidat atandı: %d öğrenci - %.2f TL",
					assigned, body.Amount),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"assigned_count": assigned,
			"description":    strings.TrimSpace(body.Description),
			"amount":         body.Amount,
			"due_date":       body.DueDate,
		})
	}
}

// POST /api/fees/update-overdue
// Vadesi geçmiş bekleyen aidatları overdue yapar. İdempotent.
func SweepOverdueHandler(engine *ledger.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		updated, err := engine.SweepOverdue(time.Now())
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		return c.JSON(fiber.Map{
			"updated_count": updated,
		})
	}
}

// GET /api/fees/stats/summary?class_name=...
func FeeStatsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type row struct {
			Status string  `gorm:"column:status"`
			Count  int64   `gorm:"column:count"`
			Total  float64 `gorm:"column:total"`
		}

		dbq := db.Model(&models.StudentFee{}).
			Joins("JOIN students ON students.id = student_fees.student_id")

		if cn := c.Query("class_name"); cn != "" {
			dbq = dbq.Where("students.class_name = ?", cn)
		}

		var rows []row
		if err := dbq.
			Select("student_fees.status, COUNT(*) as count, SUM(student_fees.amount) as total").
			Group("student_fees.status").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidat istatistikleri hesaplanamadı")
		}

		summary := fiber.Map{
			"pending": fiber.Map{"count": 0, "total_amount": 0.0},
			"paid":    fiber.Map{"count": 0, "total_amount": 0.0},
			"overdue": fiber.Map{"count": 0, "total_amount": 0.0},
		}
		var totalCount int64
		var totalAmount float64
		for _, r := range rows {
			summary[r.Status] = fiber.Map{"count": r.Count, "total_amount": r.Total}
			totalCount += r.Count
			totalAmount += r.Total
		}
		summary["totals"] = fiber.Map{"count": totalCount, "total_amount": totalAmount}

		return c.JSON(summary)
	}
}
