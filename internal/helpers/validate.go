package helpers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateStruct DTO'yu validator tag'lerine göre doğrular.
// İlk hatayı Türkçe mesajlı bir *fiber.Error olarak döner.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}

	fe := ve[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s alanı zorunludur", fe.Field())
	case "min":
		msg = fmt.Sprintf("%s alanı en az %s karakter olmalıdır", fe.Field(), fe.Param())
	case "max":
		msg = fmt.Sprintf("%s alanı en fazla %s karakter olabilir", fe.Field(), fe.Param())
	case "gt":
		msg = fmt.Sprintf("%s alanı %s değerinden büyük olmalıdır", fe.Field(), fe.Param())
	case "email":
		msg = fmt.Sprintf("%s alanı geçerli bir e-posta olmalıdır", fe.Field())
	case "oneof":
		msg = fmt.Sprintf("%s alanı şunlardan biri olmalıdır: %s", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s alanı geçersiz", fe.Field())
	}

	return fiber.NewError(fiber.StatusBadRequest, msg)
}
