package admin

import (
	"fmt"
	"log"
	"strings"

	"okul-backend/internal/audit"
	"okul-backend/internal/auth"
	"okul-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	LastLogin string `json:"last_login"`
	CreatedAt string `json:"created_at"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func toUserResponse(u models.User) UserResponse {
	lastLogin := ""
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.Format("2006-01-02 15:04:05")
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      string(u.Role),
		Active:    u.Active,
		LastLogin: lastLogin,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func validRole(r string) bool {
	return r == string(models.RoleAdmin) || r == string(models.RoleStaff)
}

// ----------------------------------------
// KULLANICI YÖNETİMİ (yalnız admin)
// ----------------------------------------

// GET /api/admin/users
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := db.Order("id asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toUserResponse(u))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/users
func CreateUserHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.FullName = strings.TrimSpace(body.FullName)

		if len(body.Username) < 3 {
			return fiber.NewError(fiber.StatusBadRequest, "Kullanıcı adı en az 3 karakter olmalıdır")
		}
		if body.FullName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Ad soyad boş olamaz")
		}
		if len(body.Password) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 6 karakter olmalıdır")
		}
		if !validRole(body.Role) {
			return fiber.NewError(fiber.StatusBadRequest, "Rol 'admin' veya 'staff' olmalıdır")
		}

		var count int64
		db.Model(&models.User{}).Where("username = ?", body.Username).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu kullanıcı adı zaten kullanılıyor")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre oluşturulamadı")
		}

		user := models.User{
			Username:     body.Username,
			FullName:     body.FullName,
			PasswordHash: string(hash),
			Role:         models.UserRole(body.Role),
			Active:       true,
		}

		if err := db.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		if adminID, adminName, uErr := auth.CurrentUser(c); uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      adminID,
				UserName:    adminName,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Kullanıcı eklendi: %s (%s)", user.Username, user.Role),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// PUT /api/admin/users/:id
// Admin kendi hesabını pasifleştiremez.
func UpdateUserHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir kullanıcı ID belirtmelisiniz")
		}

		var user models.User
		if err := db.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		adminID, adminName, uErr := auth.CurrentUser(c)

		if body.FullName != nil {
			name := strings.TrimSpace(*body.FullName)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Ad soyad boş olamaz")
			}
			user.FullName = name
		}
		if body.Role != nil {
			if !validRole(*body.Role) {
				return fiber.NewError(fiber.StatusBadRequest, "Rol 'admin' veya 'staff' olmalıdır")
			}
			user.Role = models.UserRole(*body.Role)
		}
		if body.Active != nil {
			if uErr == nil && adminID == user.ID && !*body.Active {
				return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı pasifleştiremezsiniz")
			}
			user.Active = *body.Active
		}

		if err := db.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı güncellenemedi")
		}

		if uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      adminID,
				UserName:    adminName,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Kullanıcı güncellendi: %s", user.Username),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.JSON(toUserResponse(user))
	}
}

// PUT /api/admin/users/:id/password
func ChangePasswordHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir kullanıcı ID belirtmelisiniz")
		}

		var user models.User
		if err := db.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if len(body.NewPassword) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 6 karakter olmalıdır")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre oluşturulamadı")
		}

		if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre güncellenemedi")
		}

		if adminID, adminName, uErr := auth.CurrentUser(c); uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      adminID,
				UserName:    adminName,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Şifre değiştirildi: %s", user.Username),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.JSON(fiber.Map{"message": "Şifre güncellendi"})
	}
}

// DELETE /api/admin/users/:id
// Admin kendi hesabını silemez.
func DeleteUserHandler(db *gorm.DB, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçerli bir kullanıcı ID belirtmelisiniz")
		}

		var user models.User
		if err := db.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		adminID, adminName, uErr := auth.CurrentUser(c)
		if uErr == nil && adminID == user.ID {
			return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı silemezsiniz")
		}

		if err := db.Delete(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı silinemedi")
		}

		if uErr == nil {
			if logErr := rec.Write(audit.LogOptions{
				UserID:      adminID,
				UserName:    adminName,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Kullanıcı silindi: %s", user.Username),
			}); logErr != nil {
				log.Println("Audit log yazılamadı:", logErr)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
