package transaction

import (
	"fmt"
	"log"
	"strings"
	"time"

	"okul-backend/internal/audit"
	"okul-backend/internal/auth"
	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateTransactionRequest struct {
	Type            string  `json:"type"` // gelir / gider
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	CategoryID      uint    `json:"category_id"`
	TransactionDate string  `json:"transaction_date"` // "2025-09-15"
}

type UpdateTransactionRequest struct {
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	CategoryID      uint    `json:"category_id"`
	TransactionDate string  `json:"transaction_date"`
}

type TransactionResponse struct {
	ID              uint    `json:"id"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	CategoryID      uint    `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	TransactionDate string  `json:"transaction_date"`
	CreatedAt       string  `json:"created_at"`
}

type MonthlySummaryResponse struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
}

func toResponse(t models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		Description:     t.Description,
		CategoryID:      t.CategoryID,
		CategoryName:    t.Category.Name,
		TransactionDate: t.TransactionDate.Format("2006-01-02"),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
}

func validType(t string) bool {
	return t == string(models.CategoryTypeIncome) || t == string(models.CategoryTypeExpense)
}

// POST /api/transactions
func CreateTransactionHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if !validType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem tipi 'gelir' veya 'gider' olmalı")
		}
		if body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir tutar belirtmelisiniz (pozitif sayı)")
		}
		body.Description = strings.TrimSpace(body.Description)
		if body.Description == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem açıklaması zorunlu")
		}

		d, err := time.Parse("2006-01-02", body.TransactionDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		// Kategori var mı ve tipi uyumlu mu?
		var cat models.Category
		if err := db.First(&cat, "id = ?", body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
		}
		if string(cat.Type) != body.Type {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem tipi kategori tipiyle uyumlu değil")
		}

		txn := models.Transaction{
			Type:            models.CategoryType(body.Type),
			Amount:          body.Amount,
			Description:     body.Description,
			CategoryID:      body.CategoryID,
			TransactionDate: d,
		}

		if err := db.Create(&txn).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem kaydedilemedi")
		}

		// Audit log yaz
		if userID, userName, err := auth.CurrentUser(c); err == nil {
			afterData := map[string]interface{}{
				"id":               txn.ID,
				"type":             string(txn.Type),
				"amount":           txn.Amount,
				"description":      txn.Description,
				"category_id":      txn.CategoryID,
				"transaction_date": txn.TransactionDate.Format("2006-01-02"),
			}
			if logErr := rec.Write(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "transaction",
				EntityID:    txn.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("İşlem eklendi: %s - %.2f TL", cat.Name, txn.Amount),
				Before:      nil,
				After:       afterData,
			}); logErr != nil {
				// Log hatası kritik değil
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		txn.Category = cat
		return c.Status(fiber.StatusCreated).JSON(toResponse(txn))
	}
}

// GET /api/transactions?type=...&category_id=...&start_date=...&end_date=...&search=...
func ListTransactionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Transaction{}).Preload("Category")

		if t := c.Query("type"); t != "" {
			if !validType(t) {
				return fiber.NewError(fiber.StatusBadRequest, "type 'gelir' veya 'gider' olmalı")
			}
			dbq = dbq.Where("type = ?", t)
		}

		if catStr := c.Query("category_id"); catStr != "" {
			var cid uint
			if _, err := fmt.Sscan(catStr, &cid); err != nil || cid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "category_id geçersiz")
			}
			dbq = dbq.Where("category_id = ?", cid)
		}

		if fromStr := c.Query("start_date"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
			}
			dbq = dbq.Where("transaction_date >= ?", from)
		}

		if toStr := c.Query("end_date"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date geçersiz")
			}
			dbq = dbq.Where("transaction_date <= ?", to)
		}

		if search := c.Query("search"); search != "" {
			dbq = dbq.Where("description LIKE ?", "%"+search+"%")
		}

		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		var rows []models.Transaction
		if err := dbq.Order("transaction_date desc, id desc").
			Limit(limit).Offset(offset).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlemler listelenemedi")
		}

		resp := make([]TransactionResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/transactions/:id
func GetTransactionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var txn models.Transaction
		if err := db.Preload("Category").First(&txn, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "İşlem bulunamadı")
		}

		return c.JSON(toResponse(txn))
	}
}

// PUT /api/transactions/:id
func UpdateTransactionHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var txn models.Transaction
		if err := db.First(&txn, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "İşlem bulunamadı")
		}

		var body UpdateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if !validType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem tipi 'gelir' veya 'gider' olmalı")
		}
		if body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir tutar belirtmelisiniz (pozitif sayı)")
		}
		body.Description = strings.TrimSpace(body.Description)
		if body.Description == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem açıklaması zorunlu")
		}

		d, err := time.Parse("2006-01-02", body.TransactionDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		var cat models.Category
		if err := db.First(&cat, "id = ?", body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
		}
		if string(cat.Type) != body.Type {
			return fiber.NewError(fiber.StatusBadRequest, "İşlem tipi kategori tipiyle uyumlu değil")
		}

		beforeData := map[string]interface{}{
			"type":             string(txn.Type),
			"amount":           txn.Amount,
			"description":      txn.Description,
			"category_id":      txn.CategoryID,
			"transaction_date": txn.TransactionDate.Format("2006-01-02"),
		}

		txn.Type = models.CategoryType(body.Type)
		txn.Amount = body.Amount
		txn.Description = body.Description
		txn.CategoryID = body.CategoryID
		txn.TransactionDate = d

		if err := db.Save(&txn).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem güncellenemedi")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			afterData := map[string]interface{}{
				"type":             string(txn.Type),
				"amount":           txn.Amount,
				"description":      txn.Description,
				"category_id":      txn.CategoryID,
				"transaction_date": txn.TransactionDate.Format("2006-01-02"),
			}
			if logErr := rec.Write(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "transaction",
				EntityID:    txn.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("İşlem güncellendi: %.2f TL", txn.Amount),
				Before:      beforeData,
				After:       afterData,
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		txn.Category = cat
		return c.JSON(toResponse(txn))
	}
}

// DELETE /api/transactions/:id
// Bir ödemeye bağlı defter kaydı buradan silinemez; ödeme üzerinden silinmelidir.
func DeleteTransactionHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var txn models.Transaction
		if err := db.First(&txn, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "İşlem bulunamadı")
		}

		var linked int64
		db.Model(&models.Payment{}).Where("transaction_id = ?", txn.ID).Count(&linked)
		if linked > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu işlem bir aidat ödemesine bağlı, ödeme üzerinden silinmelidir")
		}

		beforeData := map[string]interface{}{
			"type":             string(txn.Type),
			"amount":           txn.Amount,
			"description":      txn.Description,
			"category_id":      txn.CategoryID,
			"transaction_date": txn.TransactionDate.Format("2006-01-02"),
		}

		if err := db.Delete(&txn).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlem silinemedi")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "transaction",
				EntityID:    txn.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("İşlem silindi: %.2f TL", txn.Amount),
				Before:      beforeData,
				After:       nil,
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/transactions/summary/monthly?year=2025&month=9
func MonthlySummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year := c.QueryInt("year")
		month := c.QueryInt("month")
		if year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
		}
		if month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month geçersiz")
		}

		loc := time.Now().Location()
		firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		nextMonth := firstDay.AddDate(0, 1, 0)

		type row struct {
			Type  string  `gorm:"column:type"`
			Total float64 `gorm:"column:total"`
		}
		var rows []row

		if err := db.Model(&models.Transaction{}).
			Select("type, SUM(amount) as total").
			Where("transaction_date >= ? AND transaction_date < ?", firstDay, nextMonth).
			Group("type").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}

		resp := MonthlySummaryResponse{Year: year, Month: month}
		for _, r := range rows {
			switch r.Type {
			case string(models.CategoryTypeIncome):
				resp.TotalIncome = r.Total
			case string(models.CategoryTypeExpense):
				resp.TotalExpense = r.Total
			}
		}
		resp.Net = resp.TotalIncome - resp.TotalExpense

		return c.JSON(resp)
	}
}
