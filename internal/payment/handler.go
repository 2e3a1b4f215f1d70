package payment

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

type CreatePaymentRequest struct {
	FeeID             uint    `json:"fee_id" validate:"required"`
	Amount            float64 `json:"amount" validate:"required,gt=0"`
	PaymentDate       string  `json:"payment_date" validate:"required"`
	PaymentMethod     string  `json:"payment_method" validate:"required"`
	ReceiptNumber     string  `json:"receipt_number"`
	Notes             string  `json:"notes"`
	CreateTransaction *bool   `json:"create_transaction"`
}

type UpdatePaymentRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentDate   string  `json:"payment_date" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	ReceiptNumber string  `json:"receipt_number"`
	Notes         string  `json:"notes"`
}

type PaymentResponse struct {
	ID            uint    `json:"id"`
	FeeID         uint    `json:"fee_id"`
	Amount        float64 `json:"amount"`
	PaymentDate   string  `json:"payment_date"`
	Method        string  `json:"payment_method"`
	ReceiptNumber string  `json:"receipt_number"`
	Notes         string  `json:"notes"`
	TransactionID *uint   `json:"transaction_id"`
}

type PaymentWithStudent struct {
	PaymentResponse
	StudentName    string `json:"student_name"`
	ClassName      string `json:"class_name"`
	FeeDescription string `json:"fee_description"`
}

func toResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		FeeID:         p.FeeID,
		Amount:        p.Amount,
		PaymentDate:   p.PaymentDate.Format("2006-01-02"),
		Method:        string(p.Method),
		ReceiptNumber: p.ReceiptNumber,
		Notes:         p.Notes,
		TransactionID: p.TransactionID,
	}
}

// POST /api/payments
// Fazla ödeme 400 döner; ödeme + defter kaydı + status tek transaction'dır.
func CreatePaymentHandler(engine *ledger.Engine, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		payDate, err := time.Parse("2006-01-02", body.PaymentDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		// Defter kaydı varsayılan olarak açık
		createTxn := true
		if body.CreateTransaction != nil {
			createTxn = *body.CreateTransaction
		}

		result, err := engine.RecordPayment(ledger.RecordPaymentInput{
			FeeID:             body.FeeID,
			Amount:            body.Amount,
			PaymentDate:       payDate,
			Method:            models.PaymentMethod(body.PaymentMethod),
			ReceiptNumber:     body.ReceiptNumber,
			Notes:             body.Notes,
			CreateTransaction: createTxn,
		})
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		if userID, userName, uErr := auth.CurrentUser(c); uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:     userID,
				UserName:   userName,
				EntityType: "payment",
				EntityID:   result.Payment.ID,
				Action:     models.AuditActionCreate,
				Description: fmt.Sprintf("Ödeme alındı: aidat #%d - %.2f TL (%s)",
					result.Payment.FeeID, result.Payment.Amount, result.Payment.Method),
				After: map[string]interface{}{
					"id":             result.Payment.ID,
					"fee_id":         result.Payment.FeeID,
					"amount":         result.Payment.Amount,
					"payment_date":   result.Payment.PaymentDate.Format("2006-01-02"),
					"payment_method": string(result.Payment.Method),
					"receipt_number": result.Payment.ReceiptNumber,
				},
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"payment":             toResponse(result.Payment),
			"fee_status":          string(result.FeeStatus),
			"total_paid":          result.TotalPaid,
			"transaction_created": result.TransactionCreated,
		})
	}
}

// GET /api/payments?fee_id=...&student_id=...&method=...&start_date=...&end_date=...
func ListPaymentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Payment{}).
			Preload("Fee").Preload("Fee.Student").
			Joins("JOIN student_fees ON student_fees.id = payments.fee_id")

		if feeStr := c.Query("fee_id"); feeStr != "" {
			var feeID uint
			if _, err := fmt.Sscan(feeStr, &feeID); err != nil || feeID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "fee_id geçersiz")
			}
			dbq = dbq.Where("payments.fee_id = ?", feeID)
		}

		if sidStr := c.Query("student_id"); sidStr != "" {
			var sid uint
			if _, err := fmt.Sscan(sidStr, &sid); err != nil || sid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "student_id geçersiz")
			}
			dbq = dbq.Where("student_fees.student_id = ?", sid)
		}

		if method := c.Query("method"); method != "" {
			dbq = dbq.Where("payments.payment_method = ?", method)
		}

		if fromStr := c.Query("start_date"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
			}
			dbq = dbq.Where("payments.payment_date >= ?", from)
		}

		if toStr := c.Query("end_date"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date geçersiz")
			}
			dbq = dbq.Where("payments.payment_date <= ?", to)
		}

		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		var payments []models.Payment
		if err := dbq.Order("payments.payment_date desc, payments.id desc").
			Limit(limit).Offset(offset).
			Find(&payments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ödemeler listelenemedi")
		}

		resp := make([]PaymentWithStudent, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, PaymentWithStudent{
				PaymentResponse: toResponse(p),
				StudentName: strings.TrimSpace(
					p.Fee.Student.FirstName + " " + p.Fee.Student.LastName),
				ClassName:      p.Fee.Student.ClassName,
				FeeDescription: p.Fee.Description,
			})
		}
		return c.JSON(resp)
	}
}

// GET /api/payments/:id
func GetPaymentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Payment
		if err := db.Preload("Fee").Preload("Fee.Student").
			First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ödeme bulunamadı")
		}

		return c.JSON(PaymentWithStudent{
			PaymentResponse: toResponse(p),
			StudentName: strings.TrimSpace(
				p.Fee.Student.FirstName + " " + p.Fee.Student.LastName),
			ClassName:      p.Fee.Student.ClassName,
			FeeDescription: p.Fee.Description,
		})
	}
}

// PUT /api/payments/:id
func UpdatePaymentHandler(db *gorm.DB, engine *ledger.Engine, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir ödeme ID belirtmelisiniz")
		}

		var body UpdatePaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		payDate, err := time.Parse("2006-01-02", body.PaymentDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		// Audit için eski halini sakla
		var before models.Payment
		db.First(&before, "id = ?", id)

		result, err := engine.UpdatePayment(uint(id), ledger.UpdatePaymentInput{
			Amount:        body.Amount,
			PaymentDate:   payDate,
			Method:        models.PaymentMethod(body.PaymentMethod),
			ReceiptNumber: body.ReceiptNumber,
			Notes:         body.Notes,
		})
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		if userID, userName, uErr := auth.CurrentUser(c); uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:     userID,
				UserName:   userName,
				EntityType: "payment",
				EntityID:   result.Payment.ID,
				Action:     models.AuditActionUpdate,
				Description: fmt.Sprintf("Ödeme güncellendi: aidat #%d - %.2f TL",
					result.Payment.FeeID, result.Payment.Amount),
				Before: map[string]interface{}{
					"amount":         before.Amount,
					"payment_date":   before.PaymentDate.Format("2006-01-02"),
					"payment_method": string(before.Method),
				},
				After: map[string]interface{}{
					"amount":         result.Payment.Amount,
					"payment_date":   result.Payment.PaymentDate.Format("2006-01-02"),
					"payment_method": string(result.Payment.Method),
				},
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.JSON(fiber.Map{
			"payment":    toResponse(result.Payment),
			"fee_status": string(result.FeeStatus),
			"total_paid": result.TotalPaid,
		})
	}
}

// DELETE /api/payments/:id - bağlı defter kaydı da silinir, status geri döner
func DeletePaymentHandler(engine *ledger.Engine, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir ödeme ID belirtmelisiniz")
		}

		result, err := engine.DeletePayment(uint(id))
		if err != nil {
			return helpers.LedgerError(c, err)
		}

		if userID, userName, uErr := auth.CurrentUser(c); uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:     userID,
				UserName:   userName,
				EntityType: "payment",
				EntityID:   uint(id),
				Action:     models.AuditActionDelete,
				Description: fmt.Sprintf("Ödeme silindi: aidat #%d (yeni durum: %s)",
					result.FeeID, result.FeeStatus),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.JSON(fiber.Map{
			"fee_id":              result.FeeID,
			"fee_status":          string(result.FeeStatus),
			"remaining_paid":      result.RemainingPaid,
			"transaction_deleted": result.TransactionDeleted,
		})
	}
}

// GET /api/payments/stats/summary?start_date=...&end_date=...
func PaymentStatsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Payment{})

		if fromStr := c.Query("start_date"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
			}
			dbq = dbq.Where("payment_date >= ?", from)
		}
		if toStr := c.Query("end_date"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date geçersiz")
			}
			dbq = dbq.Where("payment_date <= ?", to)
		}

		type row struct {
			Method string  `gorm:"column:payment_method"`
			Count  int64   `gorm:"column:count"`
			Total  float64 `gorm:"column:total"`
		}
		var rows []row
		if err := dbq.
			Select("payment_method, COUNT(*) as count, SUM(amount) as total").
			Group("payment_method").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ödeme istatistikleri hesaplanamadı")
		}

		byMethod := fiber.Map{}
		var totalCount int64
		var totalAmount float64
		for _, r := range rows {
			byMethod[r.Method] = fiber.Map{"count": r.Count, "total_amount": r.Total}
			totalCount += r.Count
			totalAmount += r.Total
		}

		return c.JSON(fiber.Map{
			"by_method":    byMethod,
			"total_count":  totalCount,
			"total_amount": totalAmount,
		})
	}
}
