package category

import (
	"strings"

	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func toResponse(cat models.Category) CategoryResponse {
	return CategoryResponse{ID: cat.ID, Name: cat.Name, Type: string(cat.Type)}
}

func validType(t string) bool {
	return t == string(models.CategoryTypeIncome) || t == string(models.CategoryTypeExpense)
}

// GET /api/categories
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cats []models.Category
		if err := db.Order("type asc, name asc").Find(&cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategoriler listelenemedi")
		}

		res := make([]CategoryResponse, 0, len(cats))
		for _, cat := range cats {
			res = append(res, toResponse(cat))
		}
		return c.JSON(res)
	}
}

// POST /api/categories
func CreateCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı zorunlu")
		}
		if !validType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori tipi 'gelir' veya 'gider' olmalı")
		}

		var count int64
		db.Model(&models.Category{}).Where("name = ?", body.Name).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu kategori adı zaten mevcut")
		}

		cat := models.Category{Name: body.Name, Type: models.CategoryType(body.Type)}
		if err := db.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(cat))
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cat models.Category
		if err := db.First(&cat, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı zorunlu")
		}
		if !validType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori tipi 'gelir' veya 'gider' olmalı")
		}

		var count int64
		db.Model(&models.Category{}).
			Where("name = ? AND id != ?", body.Name, cat.ID).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu kategori adı zaten mevcut")
		}

		cat.Name = body.Name
		cat.Type = models.CategoryType(body.Type)
		if err := db.Save(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori güncellenemedi")
		}

		return c.JSON(toResponse(cat))
	}
}

// DELETE /api/categories/:id
// Kategoriye bağlı işlemler varsa silme engellenir.
func DeleteCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cat models.Category
		if err := db.First(&cat, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}

		var count int64
		db.Model(&models.Transaction{}).Where("category_id = ?", cat.ID).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu kategoriye ait işlemler mevcut, kategori silinemez")
		}

		if err := db.Delete(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
