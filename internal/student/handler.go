package student

import (
	"strings"
	"time"

	"okul-backend/internal/helpers"
	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateStudentRequest struct {
	FirstName     string `json:"first_name" validate:"required,min=2,max=50"`
	LastName      string `json:"last_name" validate:"required,min=2,max=50"`
	StudentNumber string `json:"student_number" validate:"max=20"`
	ClassName     string `json:"class_name" validate:"required,min=1,max=20"`
	Section       string `json:"section" validate:"max=10"`
	ParentName    string `json:"parent_name" validate:"max=100"`
	ParentPhone   string `json:"parent_phone" validate:"max=20"`
}

type StudentResponse struct {
	ID            uint   `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	StudentNumber string `json:"student_number"`
	ClassName     string `json:"class_name"`
	Section       string `json:"section"`
	ParentName    string `json:"parent_name"`
	ParentPhone   string `json:"parent_phone"`
	CreatedAt     string `json:"created_at"`
}

func toResponse(s models.Student) StudentResponse {
	number := ""
	if s.StudentNumber != nil {
		number = *s.StudentNumber
	}
	return StudentResponse{
		ID:            s.ID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		StudentNumber: number,
		ClassName:     s.ClassName,
		Section:       s.Section,
		ParentName:    s.ParentName,
		ParentPhone:   s.ParentPhone,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

func trimBody(body *CreateStudentRequest) {
	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)
	body.StudentNumber = strings.TrimSpace(body.StudentNumber)
	body.ClassName = strings.TrimSpace(body.ClassName)
	body.Section = strings.TrimSpace(body.Section)
	body.ParentName = strings.TrimSpace(body.ParentName)
	body.ParentPhone = strings.TrimSpace(body.ParentPhone)
}

// POST /api/students
func CreateStudentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStudentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		trimBody(&body)
		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		var number *string
		if body.StudentNumber != "" {
			var count int64
			db.Model(&models.Student{}).Where("student_number = ?", body.StudentNumber).Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "Bu öğrenci numarası zaten kayıtlı")
			}
			number = &body.StudentNumber
		}

		s := models.Student{
			FirstName:     body.FirstName,
			LastName:      body.LastName,
			StudentNumber: number,
			ClassName:     body.ClassName,
			Section:       body.Section,
			ParentName:    body.ParentName,
			ParentPhone:   body.ParentPhone,
		}

		if err := db.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Öğrenci oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(s))
	}
}

// GET /api/students?class_name=...&section=...&search=...
func ListStudentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Student{})

		if cn := c.Query("class_name"); cn != "" {
			dbq = dbq.Where("class_name LIKE ?", "%"+cn+"%")
		}
		if sec := c.Query("section"); sec != "" {
			dbq = dbq.Where("section LIKE ?", "%"+sec+"%")
		}
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			dbq = dbq.Where(
				"first_name LIKE ? OR last_name LIKE ? OR student_number LIKE ? OR parent_name LIKE ?",
				like, like, like, like,
			)
		}

		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		var students []models.Student
		if err := dbq.Order("class_name asc, section asc, first_name asc, last_name asc").
			Limit(limit).Offset(offset).
			Find(&students).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Öğrenciler listelenemedi")
		}

		resp := make([]StudentResponse, 0, len(students))
		for _, s := range students {
			resp = append(resp, toResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/students/classes - kayıtlı sınıf adları (toplu aidat için)
func ListClassesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var classes []string
		if err := db.Model(&models.Student{}).
			Distinct("class_name").
			Order("class_name asc").
			Pluck("class_name", &classes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sınıflar listelenemedi")
		}
		return c.JSON(classes)
	}
}

// GET /api/students/:id
func GetStudentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.Student
		if err := db.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Öğrenci bulunamadı")
		}

		return c.JSON(toResponse(s))
	}
}

// PUT /api/students/:id
func UpdateStudentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.Student
		if err := db.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Öğrenci bulunamadı")
		}

		var body CreateStudentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		trimBody(&body)
		if err := helpers.ValidateStruct(body); err != nil {
			return err
		}

		var number *string
		if body.StudentNumber != "" {
			var count int64
			db.Model(&models.Student{}).
				Where("student_number = ? AND id != ?", body.StudentNumber, s.ID).
				Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "Bu öğrenci numarası zaten kayıtlı")
			}
			number = &body.StudentNumber
		}

		s.FirstName = body.FirstName
		s.LastName = body.LastName
		s.StudentNumber = number
		s.ClassName = body.ClassName
		s.Section = body.Section
		s.ParentName = body.ParentName
		s.ParentPhone = body.ParentPhone

		if err := db.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Öğrenci güncellenemedi")
		}

		return c.JSON(toResponse(s))
	}
}

// DELETE /api/students/:id
// Aidatı olan öğrenci silinemez; önce aidatlar kaldırılmalıdır.
func DeleteStudentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.Student
		if err := db.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Öğrenci bulunamadı")
		}

		var count int64
		db.Model(&models.StudentFee{}).Where("student_id = ?", s.ID).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu öğrencinin aidat kayıtları var, önce aidatları siliniz")
		}

		if err := db.Delete(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Öğrenci silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
