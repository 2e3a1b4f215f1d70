package ledger

import (
	"errors"
	"fmt"
)

// Hata sınıfları: hepsi kullanıcı girdisiyle düzeltilebilir, otomatik retry yok.
// HTTP katmanı bu türleri status koduna çevirir (helpers.LedgerError).

// ValidationError - eksik/bozuk alan (tutar, tarih, enum değeri).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError - referans verilen kayıt yok (aidat, ödeme, öğrenci, kategori).
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s bulunamadı", e.Entity) }

// OverpaymentError - ödeme kalan borcu aşıyor. Remaining mesajda yer alır.
type OverpaymentError struct {
	Remaining float64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("Ödeme tutarı kalan borcu aşamaz. Kalan borç: %.2f TL", e.Remaining)
}

// HasDependentsError - bağlı kayıtlar nedeniyle silme engellendi.
type HasDependentsError struct {
	Entity string
	Count  int64
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("Bu %s kaydının %d bağlı kaydı bulunmaktadır. Önce bağlı kayıtları siliniz.", e.Entity, e.Count)
}

// EmptyTargetError - toplu işlem sıfır hedefe çözümlendi.
type EmptyTargetError struct{}

func (e *EmptyTargetError) Error() string { return "Aidat atanacak öğrenci bulunamadı" }

// Kind hatayı makinece okunabilir bir sınıfa çevirir.
// Bilinmeyen (ör. sürücü/bağlantı) hataları boş string döner; yalnızca
// bu sınıf caller tarafında retry edilebilir kabul edilir.
func Kind(err error) string {
	var (
		ve *ValidationError
		nf *NotFoundError
		op *OverpaymentError
		hd *HasDependentsError
		et *EmptyTargetError
	)
	switch {
	case errors.As(err, &ve):
		return "validation_error"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &op):
		return "overpayment"
	case errors.As(err, &hd):
		return "has_dependents"
	case errors.As(err, &et):
		return "empty_target"
	default:
		return ""
	}
}
