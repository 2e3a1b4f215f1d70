package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"okul-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("test veritabanı açılamadı: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB alınamadı: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Transaction{},
		&models.Student{},
		&models.StudentFee{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("migration başarısız: %v", err)
	}
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, first, last, class string) models.Student {
	t.Helper()
	s := models.Student{FirstName: first, LastName: last, ClassName: class}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("öğrenci oluşturulamadı: %v", err)
	}
	return s
}

func seedIncomeCategory(t *testing.T, db *gorm.DB) models.Category {
	t.Helper()
	c := models.Category{Name: "Aidat Geliri", Type: models.CategoryTypeIncome}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("kategori oluşturulamadı: %v", err)
	}
	return c
}

func seedFee(t *testing.T, db *gorm.DB, studentID uint, amount float64, due time.Time) models.StudentFee {
	t.Helper()
	f := models.StudentFee{
		StudentID:   studentID,
		Description: "Eylül Aidatı",
		Amount:      amount,
		DueDate:     due,
		Status:      models.FeeStatusPending,
	}
	if err := db.Create(&f).Error; err != nil {
		t.Fatalf("aidat oluşturulamadı: %v", err)
	}
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("satır sayılamadı: %v", err)
	}
	return n
}

func feeStatus(t *testing.T, db *gorm.DB, feeID uint) models.FeeStatus {
	t.Helper()
	var f models.StudentFee
	if err := db.First(&f, "id = ?", feeID).Error; err != nil {
		t.Fatalf("aidat okunamadı: %v", err)
	}
	return f.Status
}

// -------------------------
// RecordPayment
// -------------------------

func TestRecordPaymentValidation(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	s := seedStudent(t, db, "Ali", "Yılmaz", "5-A")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 9, 15))

	tests := []struct {
		name string
		in   RecordPaymentInput
		kind string
	}{
		{
			name: "negatif tutar",
			in:   RecordPaymentInput{FeeID: fee.ID, Amount: -50, PaymentDate: date(2026, 9, 1), Method: models.PaymentMethodCash},
			kind: "validation_error",
		},
		{
			name: "sıfır tutar",
			in:   RecordPaymentInput{FeeID: fee.ID, Amount: 0, PaymentDate: date(2026, 9, 1), Method: models.PaymentMethodCash},
			kind: "validation_error",
		},
		{
			name: "tarih yok",
			in:   RecordPaymentInput{FeeID: fee.ID, Amount: 100, Method: models.PaymentMethodCash},
			kind: "validation_error",
		},
		{
			name: "geçersiz yöntem",
			in:   RecordPaymentInput{FeeID: fee.ID, Amount: 100, PaymentDate: date(2026, 9, 1), Method: "bitcoin"},
			kind: "validation_error",
		},
		{
			name: "aidat yok",
			in:   RecordPaymentInput{FeeID: 9999, Amount: 100, PaymentDate: date(2026, 9, 1), Method: models.PaymentMethodCash},
			kind: "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.RecordPayment(tt.in)
			if err == nil {
				t.Fatal("hata bekleniyordu")
			}
			if got := Kind(err); got != tt.kind {
				t.Errorf("Kind: got %q, want %q", got, tt.kind)
			}
		})
	}

	if n := countRows(t, db, &models.Payment{}); n != 0 {
		t.Errorf("hiç ödeme yazılmamalıydı, %d satır var", n)
	}
}

func TestRecordPaymentOverpaymentRejected(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Ayşe", "Demir", "6-B")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 9, 15))

	// 600 öde, kalan 400
	if _, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 600, PaymentDate: date(2026, 9, 1),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	}); err != nil {
		t.Fatalf("ilk ödeme başarısız: %v", err)
	}

	txnsBefore := countRows(t, db, &models.Transaction{})
	paymentsBefore := countRows(t, db, &models.Payment{})

	// 500 > kalan 400
	_, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 500, PaymentDate: date(2026, 9, 2),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err == nil {
		t.Fatal("fazla ödeme reddedilmeliydi")
	}

	var opErr *OverpaymentError
	if !errors.As(err, &opErr) {
		t.Fatalf("OverpaymentError bekleniyordu, alınan: %T", err)
	}
	if opErr.Remaining != 400 {
		t.Errorf("Remaining: got %.2f, want 400.00", opErr.Remaining)
	}

	// Yan etki olmamalı: ödeme yok, defter kaydı yok, status değişmedi
	if n := countRows(t, db, &models.Payment{}); n != paymentsBefore {
		t.Errorf("ödeme sayısı değişti: %d -> %d", paymentsBefore, n)
	}
	if n := countRows(t, db, &models.Transaction{}); n != txnsBefore {
		t.Errorf("defter kaydı sayısı değişti: %d -> %d", txnsBefore, n)
	}
	if got := feeStatus(t, db, fee.ID); got != models.FeeStatusPending {
		t.Errorf("status: got %q, want pending", got)
	}
}

func TestRecordPaymentFullAmountMarksPaid(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	cat := seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Mehmet", "Kaya", "7-C")
	fee := seedFee(t, db, s.ID, 750, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 750, PaymentDate: date(2026, 9, 20),
		Method: models.PaymentMethodBankTransfer, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}

	if res.FeeStatus != models.FeeStatusPaid {
		t.Errorf("FeeStatus: got %q, want paid", res.FeeStatus)
	}
	if res.TotalPaid != 750 {
		t.Errorf("TotalPaid: got %.2f, want 750.00", res.TotalPaid)
	}
	if !res.TransactionCreated {
		t.Error("defter kaydı oluşturulmalıydı")
	}
	if res.Payment.TransactionID == nil {
		t.Fatal("TransactionID atanmalıydı")
	}

	// Defter kaydı ödemeyi yansıtmalı
	var txn models.Transaction
	if err := db.First(&txn, "id = ?", *res.Payment.TransactionID).Error; err != nil {
		t.Fatalf("defter kaydı bulunamadı: %v", err)
	}
	if txn.Amount != 750 {
		t.Errorf("defter tutarı: got %.2f, want 750.00", txn.Amount)
	}
	if txn.CategoryID != cat.ID {
		t.Errorf("kategori: got %d, want %d", txn.CategoryID, cat.ID)
	}
	if !strings.Contains(txn.Description, "Mehmet Kaya") {
		t.Errorf("açıklama öğrenci adını içermeli: %q", txn.Description)
	}

	if got := feeStatus(t, db, fee.ID); got != models.FeeStatusPaid {
		t.Errorf("status: got %q, want paid", got)
	}
}

func TestRecordPaymentPartialStaysPending(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Zeynep", "Çelik", "5-A")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 400, PaymentDate: date(2026, 9, 20),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}
	if res.FeeStatus != models.FeeStatusPending {
		t.Errorf("FeeStatus: got %q, want pending", res.FeeStatus)
	}
}

func TestRecordPaymentWithoutTransaction(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Emre", "Şahin", "8-A")
	fee := seedFee(t, db, s.ID, 500, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 500, PaymentDate: date(2026, 9, 25),
		Method: models.PaymentMethodCash, CreateTransaction: false,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}
	if res.TransactionCreated {
		t.Error("defter kaydı istenmemişti")
	}
	if res.Payment.TransactionID != nil {
		t.Error("TransactionID boş olmalıydı")
	}
	if n := countRows(t, db, &models.Transaction{}); n != 0 {
		t.Errorf("defter kaydı yazılmamalıydı, %d satır var", n)
	}
}

func TestRecordPaymentNoIncomeCategorySkipsMirror(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	// Hiç gelir kategorisi yok
	s := seedStudent(t, db, "Fatma", "Öztürk", "6-A")
	fee := seedFee(t, db, s.ID, 300, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 300, PaymentDate: date(2026, 9, 25),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme yine de kaydedilmeliydi: %v", err)
	}
	if res.TransactionCreated {
		t.Error("kategori yokken defter kaydı oluşturulmamalıydı")
	}
	if res.FeeStatus != models.FeeStatusPaid {
		t.Errorf("FeeStatus: got %q, want paid", res.FeeStatus)
	}
}

func TestRecordPaymentGeneratesReceipt(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	s := seedStudent(t, db, "Can", "Arslan", "7-B")
	fee := seedFee(t, db, s.ID, 200, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 100, PaymentDate: date(2026, 9, 25),
		Method: models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}
	if !strings.HasPrefix(res.Payment.ReceiptNumber, "MKB-") {
		t.Errorf("makbuz no 'MKB-' ile başlamalı: %q", res.Payment.ReceiptNumber)
	}
	if len(res.Payment.ReceiptNumber) != len("MKB-")+8 {
		t.Errorf("makbuz no uzunluğu: %q", res.Payment.ReceiptNumber)
	}

	// Kullanıcı makbuz verdiyse korunur
	res2, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 100, PaymentDate: date(2026, 9, 26),
		Method: models.PaymentMethodCash, ReceiptNumber: "  ELDEN-42  ",
	})
	if err != nil {
		t.Fatalf("ikinci ödeme başarısız: %v", err)
	}
	if res2.Payment.ReceiptNumber != "ELDEN-42" {
		t.Errorf("makbuz no: got %q, want ELDEN-42", res2.Payment.ReceiptNumber)
	}
}

func TestRecordPaymentOnOverdueFeeCanBecomePaid(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Deniz", "Koç", "8-B")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 8, 1))

	if _, err := engine.SweepOverdue(date(2026, 8, 30)); err != nil {
		t.Fatalf("sweep başarısız: %v", err)
	}
	if got := feeStatus(t, db, fee.ID); got != models.FeeStatusOverdue {
		t.Fatalf("sweep sonrası status: got %q, want overdue", got)
	}

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 1000, PaymentDate: date(2026, 8, 30),
		Method: models.PaymentMethodBankTransfer, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}
	if res.FeeStatus != models.FeeStatusPaid {
		t.Errorf("FeeStatus: got %q, want paid", res.FeeStatus)
	}
}

// -------------------------
// UpdatePayment / DeletePayment
// -------------------------

func TestUpdatePaymentOverpaymentGuard(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Ece", "Aydın", "5-B")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	res1, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 400, PaymentDate: date(2026, 9, 1),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ilk ödeme başarısız: %v", err)
	}
	if _, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 300, PaymentDate: date(2026, 9, 2),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	}); err != nil {
		t.Fatalf("ikinci ödeme başarısız: %v", err)
	}

	// 400'ü 701'e çekmek: 300 + 701 > 1000
	_, err = engine.UpdatePayment(res1.Payment.ID, UpdatePaymentInput{
		Amount: 701, PaymentDate: date(2026, 9, 1), Method: models.PaymentMethodCash,
	})
	if err == nil {
		t.Fatal("fazla ödeme reddedilmeliydi")
	}
	if Kind(err) != "overpayment" {
		t.Errorf("Kind: got %q, want overpayment", Kind(err))
	}

	// Tam sınıra çekmek serbest: 300 + 700 = 1000 -> paid
	res, err := engine.UpdatePayment(res1.Payment.ID, UpdatePaymentInput{
		Amount: 700, PaymentDate: date(2026, 9, 1), Method: models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("güncelleme başarısız: %v", err)
	}
	if res.FeeStatus != models.FeeStatusPaid {
		t.Errorf("FeeStatus: got %q, want paid", res.FeeStatus)
	}
}

func TestUpdatePaymentSyncsMirrorTransaction(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Burak", "Yıldız", "6-C")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 400, PaymentDate: date(2026, 9, 1),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}

	if _, err := engine.UpdatePayment(res.Payment.ID, UpdatePaymentInput{
		Amount: 550, PaymentDate: date(2026, 9, 5), Method: models.PaymentMethodCreditCard,
	}); err != nil {
		t.Fatalf("güncelleme başarısız: %v", err)
	}

	var txn models.Transaction
	if err := db.First(&txn, "id = ?", *res.Payment.TransactionID).Error; err != nil {
		t.Fatalf("defter kaydı bulunamadı: %v", err)
	}
	if txn.Amount != 550 {
		t.Errorf("defter tutarı: got %.2f, want 550.00", txn.Amount)
	}
	if !txn.TransactionDate.Equal(date(2026, 9, 5)) {
		t.Errorf("defter tarihi: got %v, want 2026-09-05", txn.TransactionDate)
	}
}

func TestDeletePaymentRevertsStatusAndMirror(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Selin", "Aksoy", "7-A")
	fee := seedFee(t, db, s.ID, 500, date(2026, 10, 1))

	res, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 500, PaymentDate: date(2026, 9, 1),
		Method: models.PaymentMethodCash, CreateTransaction: true,
	})
	if err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}
	if res.FeeStatus != models.FeeStatusPaid {
		t.Fatalf("ön koşul: aidat paid olmalı, got %q", res.FeeStatus)
	}

	delRes, err := engine.DeletePayment(res.Payment.ID)
	if err != nil {
		t.Fatalf("silme başarısız: %v", err)
	}
	if delRes.FeeStatus != models.FeeStatusPending {
		t.Errorf("FeeStatus: got %q, want pending", delRes.FeeStatus)
	}
	if delRes.RemainingPaid != 0 {
		t.Errorf("RemainingPaid: got %.2f, want 0", delRes.RemainingPaid)
	}
	if !delRes.TransactionDeleted {
		t.Error("bağlı defter kaydı silinmeliydi")
	}
	if n := countRows(t, db, &models.Transaction{}); n != 0 {
		t.Errorf("defter kaydı kalmamalıydı, %d satır var", n)
	}
	if n := countRows(t, db, &models.Payment{}); n != 0 {
		t.Errorf("ödeme kalmamalıydı, %d satır var", n)
	}
	if got := feeStatus(t, db, fee.ID); got != models.FeeStatusPending {
		t.Errorf("status: got %q, want pending", got)
	}
}

func TestDeletePaymentNotFound(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)

	_, err := engine.DeletePayment(12345)
	if err == nil {
		t.Fatal("hata bekleniyordu")
	}
	if Kind(err) != "not_found" {
		t.Errorf("Kind: got %q, want not_found", Kind(err))
	}
}

// -------------------------
// DeleteFee
// -------------------------

func TestDeleteFeeBlockedByPayments(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	s := seedStudent(t, db, "Kerem", "Polat", "5-C")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	if _, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: fee.ID, Amount: 100, PaymentDate: date(2026, 9, 1),
		Method: models.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}

	err := engine.DeleteFee(fee.ID)
	if err == nil {
		t.Fatal("ödemesi olan aidat silinmemeliydi")
	}
	if Kind(err) != "has_dependents" {
		t.Errorf("Kind: got %q, want has_dependents", Kind(err))
	}
	if n := countRows(t, db, &models.StudentFee{}); n != 1 {
		t.Errorf("aidat silinmemeliydi, %d satır var", n)
	}
}

func TestDeleteFeeWithoutPayments(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	s := seedStudent(t, db, "Nil", "Erdem", "5-C")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	if err := engine.DeleteFee(fee.ID); err != nil {
		t.Fatalf("silme başarısız: %v", err)
	}
	if n := countRows(t, db, &models.StudentFee{}); n != 0 {
		t.Errorf("aidat silinmeliydi, %d satır var", n)
	}
}

// -------------------------
// BulkAssignFees
// -------------------------

func TestBulkAssignFees(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)

	a := seedStudent(t, db, "Ali", "Bir", "5-A")
	b := seedStudent(t, db, "Veli", "İki", "5-A")
	c := seedStudent(t, db, "Ayşe", "Üç", "6-A")
	_ = seedStudent(t, db, "Fatma", "Dört", "7-A")

	tests := []struct {
		name         string
		in           BulkAssignInput
		wantAssigned int
		wantKind     string
	}{
		{
			name: "sınıfa göre",
			in: BulkAssignInput{
				ClassNames: []string{"5-A"}, Description: "Ekim Aidatı",
				Amount: 500, DueDate: date(2026, 10, 15),
			},
			wantAssigned: 2,
		},
		{
			name: "öğrenci listesine göre",
			in: BulkAssignInput{
				StudentIDs: []uint{a.ID, c.ID}, Description: "Kitap Ücreti",
				Amount: 250, DueDate: date(2026, 10, 20),
			},
			wantAssigned: 2,
		},
		{
			name: "tüm öğrenciler",
			in: BulkAssignInput{
				Description: "Kasım Aidatı", Amount: 500, DueDate: date(2026, 11, 15),
			},
			wantAssigned: 4,
		},
		{
			name: "öğrenci listesi sınıfa önceliklidir",
			in: BulkAssignInput{
				StudentIDs: []uint{b.ID}, ClassNames: []string{"6-A", "7-A"},
				Description: "Gezi Ücreti", Amount: 150, DueDate: date(2026, 11, 1),
			},
			wantAssigned: 1,
		},
		{
			name: "boş hedef",
			in: BulkAssignInput{
				ClassNames: []string{"12-Z"}, Description: "Aralık Aidatı",
				Amount: 500, DueDate: date(2026, 12, 15),
			},
			wantKind: "empty_target",
		},
		{
			name:     "kısa açıklama",
			in:       BulkAssignInput{Description: "x", Amount: 500, DueDate: date(2026, 12, 15)},
			wantKind: "validation_error",
		},
		{
			name:     "geçersiz tutar",
			in:       BulkAssignInput{Description: "Ocak Aidatı", Amount: 0, DueDate: date(2027, 1, 15)},
			wantKind: "validation_error",
		},
		{
			name:     "tarih yok",
			in:       BulkAssignInput{Description: "Şubat Aidatı", Amount: 500},
			wantKind: "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := countRows(t, db, &models.StudentFee{})
			got, err := engine.BulkAssignFees(tt.in)

			if tt.wantKind != "" {
				if err == nil {
					t.Fatal("hata bekleniyordu")
				}
				if Kind(err) != tt.wantKind {
					t.Errorf("Kind: got %q, want %q", Kind(err), tt.wantKind)
				}
				if after := countRows(t, db, &models.StudentFee{}); after != before {
					t.Errorf("hata durumunda satır yazılmamalı: %d -> %d", before, after)
				}
				return
			}

			if err != nil {
				t.Fatalf("atama başarısız: %v", err)
			}
			if got != tt.wantAssigned {
				t.Errorf("assigned: got %d, want %d", got, tt.wantAssigned)
			}
			if after := countRows(t, db, &models.StudentFee{}); after != before+int64(tt.wantAssigned) {
				t.Errorf("satır sayısı: %d -> %d, want +%d", before, after, tt.wantAssigned)
			}
		})
	}
}

// -------------------------
// SweepOverdue
// -------------------------

func TestSweepOverdue(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Okan", "Bulut", "8-C")

	pastDue := seedFee(t, db, s.ID, 500, date(2026, 8, 1))
	futureDue := seedFee(t, db, s.ID, 500, date(2026, 12, 1))
	paidFee := seedFee(t, db, s.ID, 300, date(2026, 8, 1))
	if _, err := engine.RecordPayment(RecordPaymentInput{
		FeeID: paidFee.ID, Amount: 300, PaymentDate: date(2026, 7, 20),
		Method: models.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("ödeme başarısız: %v", err)
	}

	updated, err := engine.SweepOverdue(date(2026, 8, 30))
	if err != nil {
		t.Fatalf("sweep başarısız: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated: got %d, want 1", updated)
	}

	if got := feeStatus(t, db, pastDue.ID); got != models.FeeStatusOverdue {
		t.Errorf("vadesi geçen: got %q, want overdue", got)
	}
	if got := feeStatus(t, db, futureDue.ID); got != models.FeeStatusPending {
		t.Errorf("vadesi gelmeyen: got %q, want pending", got)
	}
	if got := feeStatus(t, db, paidFee.ID); got != models.FeeStatusPaid {
		t.Errorf("ödenmiş: got %q, want paid", got)
	}

	// İdempotent: ikinci çalıştırma hiçbir satırı değiştirmez
	updated, err = engine.SweepOverdue(date(2026, 8, 30))
	if err != nil {
		t.Fatalf("ikinci sweep başarısız: %v", err)
	}
	if updated != 0 {
		t.Errorf("ikinci sweep: got %d, want 0", updated)
	}
}

func TestSweepOverdueDueTodayNotSwept(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	s := seedStudent(t, db, "Pelin", "Taş", "5-A")
	fee := seedFee(t, db, s.ID, 500, date(2026, 8, 30))

	updated, err := engine.SweepOverdue(date(2026, 8, 30))
	if err != nil {
		t.Fatalf("sweep başarısız: %v", err)
	}
	if updated != 0 {
		t.Errorf("bugün vadesi dolan gecikmiş sayılmaz: got %d, want 0", updated)
	}
	if got := feeStatus(t, db, fee.ID); got != models.FeeStatusPending {
		t.Errorf("status: got %q, want pending", got)
	}
}

// -------------------------
// FeeSummary
// -------------------------

func TestFeeSummary(t *testing.T) {
	db := testDB(t)
	engine := NewEngine(db)
	seedIncomeCategory(t, db)
	s := seedStudent(t, db, "Gül", "Kurt", "6-B")
	fee := seedFee(t, db, s.ID, 1000, date(2026, 10, 1))

	for _, amount := range []float64{300, 200} {
		if _, err := engine.RecordPayment(RecordPaymentInput{
			FeeID: fee.ID, Amount: amount, PaymentDate: date(2026, 9, 1),
			Method: models.PaymentMethodCash,
		}); err != nil {
			t.Fatalf("ödeme başarısız: %v", err)
		}
	}

	sum, err := engine.FeeSummary(fee.ID)
	if err != nil {
		t.Fatalf("özet alınamadı: %v", err)
	}
	if sum.TotalPaid != 500 {
		t.Errorf("TotalPaid: got %.2f, want 500.00", sum.TotalPaid)
	}
	if sum.RemainingAmount != 500 {
		t.Errorf("RemainingAmount: got %.2f, want 500.00", sum.RemainingAmount)
	}
	if sum.IsFullyPaid {
		t.Error("IsFullyPaid: got true, want false")
	}
	if len(sum.Payments) != 2 {
		t.Errorf("Payments: got %d, want 2", len(sum.Payments))
	}

	if _, err := engine.FeeSummary(99999); Kind(err) != "not_found" {
		t.Errorf("Kind: got %q, want not_found", Kind(err))
	}
}
