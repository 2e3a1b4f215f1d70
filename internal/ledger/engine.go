package ledger

import (
	"fmt"
	"strings"
	"time"

	"okul-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine - aidat/ödeme/defter tutarlılığını koruyan çekirdek.
//
// Kurallar:
//   - Bir aidatın ödemeleri toplamı aidat tutarını hiçbir zaman aşamaz.
//   - Status türetilmiştir: toplam >= tutar ise "paid", değilse "pending";
//     "overdue" yalnızca SweepOverdue ile atanır.
//   - Ödeme eklerken/güncellerken/silerken ödeme kaydı, opsiyonel defter
//     kaydı ve aidat status'u tek transaction içinde yazılır.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

type RecordPaymentInput struct {
	FeeID             uint
	Amount            float64
	PaymentDate       time.Time
	Method            models.PaymentMethod
	ReceiptNumber     string
	Notes             string
	CreateTransaction bool
}

type UpdatePaymentInput struct {
	Amount        float64
	PaymentDate   time.Time
	Method        models.PaymentMethod
	ReceiptNumber string
	Notes         string
}

type PaymentResult struct {
	Payment            models.Payment
	FeeStatus          models.FeeStatus
	TotalPaid          float64
	TransactionCreated bool
}

type DeletePaymentResult struct {
	FeeID              uint
	FeeStatus          models.FeeStatus
	RemainingPaid      float64
	TransactionDeleted bool
}

type BulkAssignInput struct {
	StudentIDs  []uint
	ClassNames  []string
	Description string
	Amount      float64
	DueDate     time.Time
}

type FeeSummary struct {
	Fee             models.StudentFee
	Payments        []models.Payment
	TotalPaid       float64
	RemainingAmount float64
	IsFullyPaid     bool
}

func validMethod(m models.PaymentMethod) bool {
	switch m {
	case models.PaymentMethodCash, models.PaymentMethodBankTransfer,
		models.PaymentMethodCreditCard, models.PaymentMethodCheck:
		return true
	}
	return false
}

// Otomatik makbuz numarası (kullanıcı vermediyse)
func newReceiptNumber() string {
	return "MKB-" + strings.ToUpper(uuid.NewString()[:8])
}

// Aidatı kilitleyerek yükle. Aynı aidata eşzamanlı ödeme kayıtlarını
// seri hale getirir; Postgres'te FOR UPDATE, SQLite'ta yazma kilidi yeterli.
func (e *Engine) lockFee(tx *gorm.DB, feeID uint) (*models.StudentFee, error) {
	q := tx.Preload("Student")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var fee models.StudentFee
	if err := q.First(&fee, "id = ?", feeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "Aidat"}
		}
		return nil, err
	}
	return &fee, nil
}

// Aidatın ödemeleri toplamı (excludeID > 0 ise o ödeme hariç)
func sumPayments(tx *gorm.DB, feeID uint, excludeID uint) (float64, error) {
	var total float64
	q := tx.Model(&models.Payment{}).Where("fee_id = ?", feeID)
	if excludeID > 0 {
		q = q.Where("id != ?", excludeID)
	}
	if err := q.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func statusFor(totalPaid, feeAmount float64) models.FeeStatus {
	if totalPaid >= feeAmount {
		return models.FeeStatusPaid
	}
	return models.FeeStatusPending
}

// Varsayılan gelir kategorisi: önce "Aidat Geliri", yoksa ilk gelir kategorisi.
// Hiç gelir kategorisi yoksa defter kaydı atlanır (ödeme yine de kaydedilir).
func defaultIncomeCategory(tx *gorm.DB) (*models.Category, error) {
	var cat models.Category
	err := tx.Where("type = ? AND name = ?", models.CategoryTypeIncome, "Aidat Geliri").First(&cat).Error
	if err == gorm.ErrRecordNotFound {
		err = tx.Where("type = ?", models.CategoryTypeIncome).Order("id asc").First(&cat).Error
	}
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// RecordPayment bir aidata ödeme kaydeder.
// İsteniyorsa ödemeyi deftere gelir kaydı olarak yansıtır ve aidat
// status'unu yeniden hesaplar. Üç yazma tek transaction'dır.
func (e *Engine) RecordPayment(in RecordPaymentInput) (*PaymentResult, error) {
	if in.Amount <= 0 {
		return nil, &ValidationError{Message: "Geçerli bir ödeme tutarı belirtmelisiniz (pozitif sayı)"}
	}
	if in.PaymentDate.IsZero() {
		return nil, &ValidationError{Message: "Ödeme tarihini belirtmelisiniz"}
	}
	if !validMethod(in.Method) {
		return nil, &ValidationError{Message: "Geçerli bir ödeme yöntemi seçmelisiniz (cash/bank_transfer/credit_card/check)"}
	}

	var res *PaymentResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		fee, err := e.lockFee(tx, in.FeeID)
		if err != nil {
			return err
		}

		alreadyPaid, err := sumPayments(tx, fee.ID, 0)
		if err != nil {
			return err
		}

		remaining := fee.Amount - alreadyPaid
		if in.Amount > remaining {
			return &OverpaymentError{Remaining: remaining}
		}

		var txnID *uint
		if in.CreateTransaction {
			cat, err := defaultIncomeCategory(tx)
			if err != nil {
				return err
			}
			if cat != nil {
				txn := models.Transaction{
					Type:   models.CategoryTypeIncome,
					Amount: in.Amount,
					Description: fmt.Sprintf("Aidat Ödemesi - %s %s - %s",
						fee.Student.FirstName, fee.Student.LastName, fee.Description),
					CategoryID:      cat.ID,
					TransactionDate: in.PaymentDate,
				}
				if err := tx.Create(&txn).Error; err != nil {
					return err
				}
				txnID = &txn.ID
			}
		}

		receipt := strings.TrimSpace(in.ReceiptNumber)
		if receipt == "" {
			receipt = newReceiptNumber()
		}

		payment := models.Payment{
			FeeID:         fee.ID,
			Amount:        in.Amount,
			PaymentDate:   in.PaymentDate,
			Method:        in.Method,
			ReceiptNumber: receipt,
			Notes:         strings.TrimSpace(in.Notes),
			TransactionID: txnID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		newTotal := alreadyPaid + in.Amount
		newStatus := statusFor(newTotal, fee.Amount)
		if err := tx.Model(&models.StudentFee{}).Where("id = ?", fee.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		res = &PaymentResult{
			Payment:            payment,
			FeeStatus:          newStatus,
			TotalPaid:          newTotal,
			TransactionCreated: txnID != nil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdatePayment ödeme alanlarını günceller; bağlı defter kaydı varsa
// tutar/tarihini eşitler ve aidat status'unu yeniden hesaplar.
func (e *Engine) UpdatePayment(paymentID uint, in UpdatePaymentInput) (*PaymentResult, error) {
	if in.Amount <= 0 {
		return nil, &ValidationError{Message: "Geçerli bir ödeme tutarı belirtmelisiniz (pozitif sayı)"}
	}
	if in.PaymentDate.IsZero() {
		return nil, &ValidationError{Message: "Geçerli bir ödeme tarihi belirtmelisiniz"}
	}
	if !validMethod(in.Method) {
		return nil, &ValidationError{Message: "Geçerli bir ödeme yöntemi seçmelisiniz (cash/bank_transfer/credit_card/check)"}
	}

	var res *PaymentResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &NotFoundError{Entity: "Ödeme"}
			}
			return err
		}

		fee, err := e.lockFee(tx, payment.FeeID)
		if err != nil {
			return err
		}

		otherTotal, err := sumPayments(tx, fee.ID, payment.ID)
		if err != nil {
			return err
		}

		if otherTotal+in.Amount > fee.Amount {
			return &OverpaymentError{Remaining: fee.Amount - otherTotal}
		}

		payment.Amount = in.Amount
		payment.PaymentDate = in.PaymentDate
		payment.Method = in.Method
		payment.ReceiptNumber = strings.TrimSpace(in.ReceiptNumber)
		payment.Notes = strings.TrimSpace(in.Notes)
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if payment.TransactionID != nil {
			if err := tx.Model(&models.Transaction{}).
				Where("id = ?", *payment.TransactionID).
				Updates(map[string]interface{}{
					"amount":           in.Amount,
					"transaction_date": in.PaymentDate,
				}).Error; err != nil {
				return err
			}
		}

		newTotal := otherTotal + in.Amount
		newStatus := statusFor(newTotal, fee.Amount)
		if err := tx.Model(&models.StudentFee{}).Where("id = ?", fee.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		res = &PaymentResult{
			Payment:            payment,
			FeeStatus:          newStatus,
			TotalPaid:          newTotal,
			TransactionCreated: payment.TransactionID != nil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeletePayment ödemeyi ve varsa bağlı defter kaydını siler,
// aidat status'unu kalan ödemelere göre yeniden hesaplar.
func (e *Engine) DeletePayment(paymentID uint) (*DeletePaymentResult, error) {
	var res *DeletePaymentResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &NotFoundError{Entity: "Ödeme"}
			}
			return err
		}

		fee, err := e.lockFee(tx, payment.FeeID)
		if err != nil {
			return err
		}

		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}

		txnDeleted := false
		if payment.TransactionID != nil {
			if err := tx.Delete(&models.Transaction{}, "id = ?", *payment.TransactionID).Error; err != nil {
				return err
			}
			txnDeleted = true
		}

		remainingTotal, err := sumPayments(tx, fee.ID, 0)
		if err != nil {
			return err
		}

		newStatus := statusFor(remainingTotal, fee.Amount)
		if err := tx.Model(&models.StudentFee{}).Where("id = ?", fee.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		res = &DeletePaymentResult{
			FeeID:              fee.ID,
			FeeStatus:          newStatus,
			RemainingPaid:      remainingTotal,
			TransactionDeleted: txnDeleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteFee ödemesi olan aidatı silmez; çağıran önce ödemeleri silmelidir.
func (e *Engine) DeleteFee(feeID uint) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		var fee models.StudentFee
		if err := tx.First(&fee, "id = ?", feeID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &NotFoundError{Entity: "Aidat"}
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Payment{}).Where("fee_id = ?", fee.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &HasDependentsError{Entity: "aidat", Count: count}
		}

		return tx.Delete(&fee).Error
	})
}

// BulkAssignFees hedef öğrencilere tek seferde aidat tahakkuk ettirir.
// Hedef: açık öğrenci listesi, sınıf listesi veya (ikisi de boşsa) tüm
// öğrenciler. Tüm satırlar tek transaction içinde yazılır.
func (e *Engine) BulkAssignFees(in BulkAssignInput) (int, error) {
	desc := strings.TrimSpace(in.Description)
	if len(desc) < 2 {
		return 0, &ValidationError{Message: "Aidat açıklaması en az 2 karakter olmalıdır"}
	}
	if len(desc) > 200 {
		return 0, &ValidationError{Message: "Aidat açıklaması en fazla 200 karakter olabilir"}
	}
	if in.Amount <= 0 {
		return 0, &ValidationError{Message: "Geçerli bir tutar belirtmelisiniz (pozitif sayı)"}
	}
	if in.DueDate.IsZero() {
		return 0, &ValidationError{Message: "Geçerli bir son ödeme tarihi belirtmelisiniz"}
	}

	var assigned int
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var students []models.Student
		q := tx.Model(&models.Student{})
		switch {
		case len(in.StudentIDs) > 0:
			q = q.Where("id IN ?", in.StudentIDs)
		case len(in.ClassNames) > 0:
			q = q.Where("class_name IN ?", in.ClassNames)
		}
		if err := q.Find(&students).Error; err != nil {
			return err
		}

		if len(students) == 0 {
			return &EmptyTargetError{}
		}

		fees := make([]models.StudentFee, 0, len(students))
		for _, s := range students {
			fees = append(fees, models.StudentFee{
				StudentID:   s.ID,
				Description: desc,
				Amount:      in.Amount,
				DueDate:     in.DueDate,
				Status:      models.FeeStatusPending,
			})
		}

		if err := tx.Create(&fees).Error; err != nil {
			return err
		}

		assigned = len(fees)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

// SweepOverdue vadesi geçmiş bekleyen aidatları "overdue" yapar.
// İdempotent: ikinci çalıştırma hiçbir satırı değiştirmez.
func (e *Engine) SweepOverdue(today time.Time) (int64, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	result := e.db.Model(&models.StudentFee{}).
		Where("status = ? AND due_date < ?", models.FeeStatusPending, day).
		Update("status", models.FeeStatusOverdue)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FeeSummary bir aidatın ödemeleriyle birlikte özetini döner.
func (e *Engine) FeeSummary(feeID uint) (*FeeSummary, error) {
	var fee models.StudentFee
	if err := e.db.Preload("Student").First(&fee, "id = ?", feeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "Aidat"}
		}
		return nil, err
	}

	var payments []models.Payment
	if err := e.db.Where("fee_id = ?", fee.ID).
		Order("payment_date desc, id desc").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	totalPaid := 0.0
	for _, p := range payments {
		totalPaid += p.Amount
	}

	return &FeeSummary{
		Fee:             fee,
		Payments:        payments,
		TotalPaid:       totalPaid,
		RemainingAmount: fee.Amount - totalPaid,
		IsFullyPaid:     fee.Amount-totalPaid <= 0,
	}, nil
}
