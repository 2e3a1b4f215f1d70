package main

import (
	"log"
	"strings"

	"okul-backend/internal/admin"
	"okul-backend/internal/audit"
	"okul-backend/internal/auth"
	"okul-backend/internal/category"
	"okul-backend/internal/config"
	"okul-backend/internal/database"
	"okul-backend/internal/fee"
	"okul-backend/internal/ledger"
	"okul-backend/internal/models"
	"okul-backend/internal/payment"
	"okul-backend/internal/report"
	"okul-backend/internal/student"
	"okul-backend/internal/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Veritabanına bağlanılamadı:", err)
	}

	engine := ledger.NewEngine(db)
	recorder := audit.NewRecorder(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	app.Use(logger.New())

	// CORS origins'i virgülle ayrılmış string'den temizle
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Admin routes (kullanıcı yönetimi)
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Get("/users", admin.ListUsersHandler(db))
	adminRoutes.Post("/users", admin.CreateUserHandler(db, recorder))
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler(db, recorder))
	adminRoutes.Put("/users/:id/password", admin.ChangePasswordHandler(db, recorder))
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler(db, recorder))

	// Kategoriler
	protected.Get("/categories", category.ListCategoriesHandler(db))
	protected.Post("/categories", category.CreateCategoryHandler(db))
	protected.Put("/categories/:id", category.UpdateCategoryHandler(db))
	protected.Delete("/categories/:id", category.DeleteCategoryHandler(db))

	// Gelir/gider işlemleri
	protected.Post("/transactions", transaction.CreateTransactionHandler(db, recorder))
	protected.Get("/transactions", transaction.ListTransactionsHandler(db))
	protected.Get("/transactions/summary/monthly", transaction.MonthlySummaryHandler(db))
	protected.Get("/transactions/:id", transaction.GetTransactionHandler(db))
	protected.Put("/transactions/:id", transaction.UpdateTransactionHandler(db, recorder))
	protected.Delete("/transactions/:id", transaction.DeleteTransactionHandler(db, recorder))

	// Öğrenciler
	protected.Post("/students", student.CreateStudentHandler(db))
	protected.Get("/students", student.ListStudentsHandler(db))
	protected.Get("/students/classes", student.ListClassesHandler(db))
	protected.Get("/students/:id", student.GetStudentHandler(db))
	protected.Put("/students/:id", student.UpdateStudentHandler(db))
	protected.Delete("/students/:id", student.DeleteStudentHandler(db))

	// Aidatlar
	protected.Post("/fees", fee.CreateFeeHandler(db, recorder))
	protected.Get("/fees", fee.ListFeesHandler(db))
	protected.Post("/fees/bulk", fee.BulkAssignHandler(engine, recorder))
	protected.Post("/fees/update-overdue", fee.SweepOverdueHandler(engine))
	protected.Get("/fees/stats/summary", fee.FeeStatsHandler(db))
	protected.Get("/fees/:id", fee.GetFeeHandler(engine))
	protected.Put("/fees/:id", fee.UpdateFeeHandler(db))
	protected.Delete("/fees/:id", fee.DeleteFeeHandler(engine, recorder))

	// Ödemeler
	protected.Post("/payments", payment.CreatePaymentHandler(engine, recorder))
	protected.Get("/payments", payment.ListPaymentsHandler(db))
	protected.Get("/payments/stats/summary", payment.PaymentStatsHandler(db))
	protected.Get("/payments/:id", payment.GetPaymentHandler(db))
	protected.Put("/payments/:id", payment.UpdatePaymentHandler(db, engine, recorder))
	protected.Delete("/payments/:id", payment.DeletePaymentHandler(engine, recorder))

	// Excel raporları
	protected.Get("/reports/financial/export", report.ExportFinancialHandler(db))
	protected.Get("/reports/students/export", report.ExportStudentsHandler(db))
	protected.Get("/reports/fees/export", report.ExportFeesHandler(db))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
