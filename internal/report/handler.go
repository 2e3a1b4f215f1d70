package report

import (
	"fmt"
	"strings"
	"time"

	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// -------------------------
// Excel yardımcıları
// -------------------------

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", endCell, style)
}

func sendWorkbook(c *fiber.Ctx, f *excelize.File, filename string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if s := c.Query("start_date"); s != "" {
		from, err = time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
		}
	}
	if s := c.Query("end_date"); s != "" {
		to, err = time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "end_date geçersiz")
		}
	}
	return from, to, nil
}

// -------------------------
// Raporlar
// -------------------------

// GET /api/reports/financial/export?start_date=...&end_date=...
// Gelir/gider işlemlerini kategori bilgisiyle birlikte dışa aktarır.
func ExportFinancialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseRange(c)
		if err != nil {
			return err
		}

		dbq := db.Model(&models.Transaction{}).Preload("Category")
		if !from.IsZero() {
			dbq = dbq.Where("transaction_date >= ?", from)
		}
		if !to.IsZero() {
			dbq = dbq.Where("transaction_date <= ?", to)
		}

		var txns []models.Transaction
		if err := dbq.Order("transaction_date asc, id asc").Find(&txns).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşlemler okunamadı")
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Gelir-Gider"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Tarih", "Tür", "Kategori", "Açıklama", "Tutar (TL)"}
		if err := writeHeaderRow(f, sheet, headers); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		var totalIncome, totalExpense float64
		for i, t := range txns {
			row := i + 2
			typeLabel := "Gelir"
			if t.Type == models.CategoryTypeExpense {
				typeLabel = "Gider"
				totalExpense += t.Amount
			} else {
				totalIncome += t.Amount
			}
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.TransactionDate.Format("2006-01-02"))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), typeLabel)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), t.Category.Name)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), t.Description)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.Amount)
		}

		// Özet satırları
		base := len(txns) + 3
		f.SetCellValue(sheet, fmt.Sprintf("D%d", base), "Toplam Gelir")
		f.SetCellValue(sheet, fmt.Sprintf("E%d", base), totalIncome)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", base+1), "Toplam Gider")
		f.SetCellValue(sheet, fmt.Sprintf("E%d", base+1), totalExpense)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", base+2), "Net")
		f.SetCellValue(sheet, fmt.Sprintf("E%d", base+2), totalIncome-totalExpense)

		f.SetColWidth(sheet, "A", "A", 12)
		f.SetColWidth(sheet, "B", "C", 16)
		f.SetColWidth(sheet, "D", "D", 45)
		f.SetColWidth(sheet, "E", "E", 14)

		filename := fmt.Sprintf("gelir-gider-%s.xlsx", time.Now().Format("2006-01-02"))
		return sendWorkbook(c, f, filename)
	}
}

// GET /api/reports/students/export?class_name=...
// Öğrenci listesini aidat borç özetiyle birlikte dışa aktarır.
func ExportStudentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Student{})
		if cn := c.Query("class_name"); cn != "" {
			dbq = dbq.Where("class_name = ?", cn)
		}

		var students []models.Student
		if err := dbq.Order("class_name asc, first_name asc, last_name asc").
			Find(&students).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Öğrenciler okunamadı")
		}

		// Öğrenci başına tahakkuk ve ödeme toplamları
		type feeRow struct {
			StudentID uint    `gorm:"column:student_id"`
			Assigned  float64 `gorm:"column:assigned"`
			Paid      float64 `gorm:"column:paid"`
		}
		var feeRows []feeRow
		if err := db.Model(&models.StudentFee{}).
			Select(`student_fees.student_id,
				COALESCE(SUM(student_fees.amount), 0) as assigned,
				COALESCE((SELECT SUM(p.amount) FROM payments p
					JOIN student_fees sf ON sf.id = p.fee_id
					WHERE sf.student_id = student_fees.student_id), 0) as paid`).
			Group("student_fees.student_id").
			Scan(&feeRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidat toplamları hesaplanamadı")
		}

		assignedBy := make(map[uint]float64, len(feeRows))
		paidBy := make(map[uint]float64, len(feeRows))
		for _, r := range feeRows {
			assignedBy[r.StudentID] = r.Assigned
			paidBy[r.StudentID] = r.Paid
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Öğrenciler"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Öğrenci No", "Ad Soyad", "Sınıf", "Şube", "Veli", "Veli Telefon",
			"Toplam Aidat (TL)", "Ödenen (TL)", "Kalan Borç (TL)"}
		if err := writeHeaderRow(f, sheet, headers); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		for i, s := range students {
			row := i + 2
			number := ""
			if s.StudentNumber != nil {
				number = *s.StudentNumber
			}
			assigned := assignedBy[s.ID]
			paid := paidBy[s.ID]
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), number)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row),
				strings.TrimSpace(s.FirstName+" "+s.LastName))
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.ClassName)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), s.Section)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), s.ParentName)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), s.ParentPhone)
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), assigned)
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), paid)
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), assigned-paid)
		}

		f.SetColWidth(sheet, "A", "A", 12)
		f.SetColWidth(sheet, "B", "B", 28)
		f.SetColWidth(sheet, "C", "F", 16)
		f.SetColWidth(sheet, "G", "I", 16)

		filename := fmt.Sprintf("ogrenciler-%s.xlsx", time.Now().Format("2006-01-02"))
		return sendWorkbook(c, f, filename)
	}
}

// GET /api/reports/fees/export?status=...&class_name=...
// Aidat listesini ödeme durumuyla birlikte dışa aktarır.
func ExportFeesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.StudentFee{}).Preload("Student").
			Joins("JOIN students ON students.id = student_fees.student_id")

		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("student_fees.status = ?", status)
		}
		if cn := c.Query("class_name"); cn != "" {
			dbq = dbq.Where("students.class_name = ?", cn)
		}

		var fees []models.StudentFee
		if err := dbq.Order("student_fees.due_date asc, students.class_name asc").
			Find(&fees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aidatlar okunamadı")
		}

		paidByFee := make(map[uint]float64)
		if len(fees) > 0 {
			ids := make([]uint, 0, len(fees))
			for _, fee := range fees {
				ids = append(ids, fee.ID)
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

		statusLabels := map[models.FeeStatus]string{
			models.FeeStatusPending: "Bekliyor",
			models.FeeStatusPaid:    "Ödendi",
			models.FeeStatusOverdue: "Gecikmiş",
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Aidatlar"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Öğrenci", "Sınıf", "Açıklama", "Tutar (TL)",
			"Ödenen (TL)", "Kalan (TL)", "Son Ödeme", "Durum"}
		if err := writeHeaderRow(f, sheet, headers); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		for i, fee := range fees {
			row := i + 2
			paid := paidByFee[fee.ID]
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row),
				strings.TrimSpace(fee.Student.FirstName+" "+fee.Student.LastName))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fee.Student.ClassName)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), fee.Description)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), fee.Amount)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), paid)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), fee.Amount-paid)
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), fee.DueDate.Format("2006-01-02"))
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), statusLabels[fee.Status])
		}

		f.SetColWidth(sheet, "A", "A", 28)
		f.SetColWidth(sheet, "B", "B", 12)
		f.SetColWidth(sheet, "C", "C", 35)
		f.SetColWidth(sheet, "D", "H", 14)

		filename := fmt.Sprintf("aidatlar-%s.xlsx", time.Now().Format("2006-01-02"))
		return sendWorkbook(c, f, filename)
	}
}
