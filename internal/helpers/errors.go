package helpers

import (
	"log"

	"okul-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
)

// LedgerError çekirdek hatalarını HTTP yanıtına çevirir.
// Taksonomideki hatalar kullanıcı kaynaklıdır ve retry edilmez;
// sınıflandırılamayan hatalar (bağlantı vb.) 500 olarak döner.
func LedgerError(c *fiber.Ctx, err error) error {
	kind := ledger.Kind(err)

	var status int
	switch kind {
	case "validation_error", "overpayment", "empty_target":
		status = fiber.StatusBadRequest
	case "not_found":
		status = fiber.StatusNotFound
	case "has_dependents":
		status = fiber.StatusConflict
	default:
		log.Println("Beklenmeyen depolama hatası:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "İşlem sırasında bir hata oluştu",
			"kind":  "internal_error",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  kind,
	})
}
