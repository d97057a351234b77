package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rental-backend/internal/admin"
	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/building"
	"rental-backend/internal/config"
	"rental-backend/internal/dashboard"
	"rental-backend/internal/database"
	"rental-backend/internal/expense"
	"rental-backend/internal/jobs"
	"rental-backend/internal/lease"
	"rental-backend/internal/maintenance"
	"rental-backend/internal/models"
	"rental-backend/internal/notification"
	"rental-backend/internal/otp"
	"rental-backend/internal/payment"
	"rental-backend/internal/portal"
	"rental-backend/internal/report"
	"rental-backend/internal/scheduler"
	"rental-backend/internal/sms"
	"rental-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	cfg.RequireJWTSecret()
	database.Init(cfg)
	db := database.DB

	leases := lease.NewService(db, cfg)
	payments := payment.NewService(db, cfg)
	expenses := expense.NewService(db, cfg)
	requests := maintenance.NewService(db)
	tenants := tenant.NewService(db, cfg)
	otps := otp.NewService(db, cfg.OTP, sms.New(cfg.SMS), cfg.Locale)
	today := leases.Today
	now := func() time.Time { return time.Now().In(cfg.Loc) }
	opt := report.OptionsFrom(cfg)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status, body := apperror.ToHTTP(err)
			if status >= fiber.StatusInternalServerError {
				log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(status).JSON(body)
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} [${locals:requestid}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginRateLimiter(), auth.LoginHandler(cfg, db))
	api.Post("/auth/otp/request", auth.OTPRateLimiter(), auth.RequestOTPHandler(otps))
	api.Post("/auth/otp/verify", auth.OTPRateLimiter(), auth.VerifyOTPHandler(cfg, db, otps))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Post("/auth/change-password", auth.ChangePasswordHandler(db))

	protected.Get("/notifications", notification.ListHandler(db))
	protected.Get("/notifications/unread-count", notification.UnreadCountHandler(db))
	protected.Post("/notifications/read-all", notification.MarkAllReadHandler(db))
	protected.Post("/notifications/:id/read", notification.MarkReadHandler(db))

	// Tenant portal
	me := protected.Group("/portal", auth.RequireTenant())
	ph := &portal.Handlers{Leases: leases, Maintenance: requests}
	me.Get("/leases", ph.ListLeases())
	me.Get("/leases/:id", ph.GetLease())
	me.Get("/payments", ph.ListPayments())
	me.Get("/statement.pdf", report.MyStatementHandler(db, opt, today))
	me.Get("/maintenance", ph.ListMaintenance())
	me.Post("/maintenance", ph.CreateMaintenance())

	// Receipts are open to tenants for their own payments.
	protected.Get("/reports/payments/:id/receipt.pdf", report.PaymentReceiptHandler(db, opt, today))

	// Back office
	staff := protected.Group("", auth.RequireStaff())
	adminOnly := auth.RequireRole(models.RoleAdmin)

	staff.Get("/dashboard", dashboard.DashboardHandler(db, today))
	staff.Get("/dashboard/cash-chart", dashboard.CashChartHandler(db, today))

	// Buildings and units
	staff.Get("/buildings", building.ListBuildingsHandler(db))
	staff.Post("/buildings", building.CreateBuildingHandler(db))
	staff.Get("/buildings/:id", building.GetBuildingHandler(db))
	staff.Put("/buildings/:id", building.UpdateBuildingHandler(db))
	staff.Delete("/buildings/:id", building.DeleteBuildingHandler(db))
	staff.Get("/units", building.ListUnitsHandler(db))
	staff.Post("/units", building.CreateUnitHandler(db))
	staff.Get("/units/:id", building.GetUnitHandler(db))
	staff.Put("/units/:id", building.UpdateUnitHandler(db))
	staff.Delete("/units/:id", building.DeleteUnitHandler(db))

	// Tenants
	staff.Get("/tenants", tenant.ListTenantsHandler(tenants))
	staff.Post("/tenants", tenant.CreateTenantHandler(tenants))
	staff.Get("/tenants/:id", tenant.GetTenantHandler(tenants, leases))
	staff.Put("/tenants/:id", tenant.UpdateTenantHandler(tenants))
	staff.Delete("/tenants/:id", tenant.DeleteTenantHandler(tenants))
	staff.Post("/tenants/:id/account", tenant.ProvisionAccountHandler(tenants))
	staff.Post("/tenants/:id/messages", tenant.SendMessageHandler(tenants))

	// Leases
	staff.Get("/leases", lease.ListLeasesHandler(leases))
	staff.Post("/leases", lease.CreateLeaseHandler(leases))
	staff.Get("/leases/:id", lease.GetLeaseHandler(leases))
	staff.Get("/leases/:id/summary", lease.SummaryHandler(leases))
	staff.Put("/leases/:id", lease.UpdateLeaseHandler(leases))
	staff.Post("/leases/:id/cancel", lease.CancelLeaseHandler(leases))
	staff.Post("/leases/:id/reinstate", lease.ReinstateLeaseHandler(leases))
	staff.Post("/leases/:id/renew", lease.RenewLeaseHandler(leases))

	// Payments
	staff.Get("/payments", payment.ListPaymentsHandler(payments))
	staff.Post("/payments", payment.CreatePaymentHandler(payments))
	staff.Get("/payments/:id", payment.GetPaymentHandler(payments))
	staff.Put("/payments/:id", payment.UpdatePaymentHandler(payments))
	staff.Patch("/payments/:id/cheque-status", payment.ChequeStatusHandler(payments))

	// Expenses
	staff.Get("/expense-categories", expense.ListExpenseCategoriesHandler(db))
	staff.Post("/expense-categories", adminOnly, expense.CreateExpenseCategoryHandler(db))
	staff.Put("/expense-categories/:id", adminOnly, expense.UpdateExpenseCategoryHandler(db))
	staff.Delete("/expense-categories/:id", adminOnly, expense.DeleteExpenseCategoryHandler(db))
	staff.Get("/expenses", expense.ListExpensesHandler(expenses))
	staff.Post("/expenses", expense.CreateExpenseHandler(expenses))
	staff.Get("/expenses/summary/monthly", expense.MonthlyExpenseSummaryHandler(expenses, today))
	staff.Get("/expenses/:id", expense.GetExpenseHandler(expenses))
	staff.Delete("/expenses/:id", expense.DeleteExpenseHandler(expenses))
	staff.Post("/expenses/:id/receipt", expense.UploadReceiptHandler(expenses))
	staff.Get("/expenses/:id/receipt", expense.DownloadReceiptHandler(expenses))

	// Maintenance
	staff.Get("/maintenance", maintenance.ListHandler(requests))
	staff.Post("/maintenance", maintenance.CreateHandler(requests))
	staff.Get("/maintenance/:id", maintenance.GetHandler(requests))
	staff.Patch("/maintenance/:id", maintenance.UpdateHandler(requests))

	// Reports
	staff.Get("/reports/profit-loss", report.ProfitLossHandler(expenses, opt, today))
	staff.Get("/reports/tenants.xlsx", report.ExportTenantsHandler(db, opt, today))
	staff.Get("/reports/leases.xlsx", report.ExportLeasesHandler(db, opt, today))
	staff.Get("/reports/payments.xlsx", report.ExportPaymentsHandler(payments, opt, today))
	staff.Get("/reports/expenses.xlsx", report.ExportExpensesHandler(db, opt, today))
	staff.Get("/reports/units.xlsx", report.ExportUnitsHandler(db, opt, today))
	staff.Get("/reports/maintenance.xlsx", report.ExportMaintenanceHandler(requests, opt, today))
	staff.Get("/reports/tenants/:id/statement.pdf", report.TenantStatementHandler(db, opt, today))
	staff.Get("/reports/leases/:id/contract.pdf", report.ContractHandler(db, opt, today))

	staff.Get("/contract-templates", report.ListTemplatesHandler(db))
	staff.Post("/contract-templates", adminOnly, report.CreateTemplateHandler(db))
	staff.Put("/contract-templates/:id", adminOnly, report.UpdateTemplateHandler(db))
	staff.Delete("/contract-templates/:id", adminOnly, report.DeleteTemplateHandler(db))

	staff.Get("/audit-logs", audit.ListAuditLogsHandler(db))
	staff.Post("/audit-logs/:id/undo", adminOnly, audit.UndoAuditLogHandler(db))

	// Admin only
	adminRoutes := staff.Group("/admin", adminOnly)
	adminRoutes.Get("/users", admin.ListUsersHandler(db))
	adminRoutes.Post("/users", admin.CreateUserHandler(db))
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler(db))
	adminRoutes.Post("/users/:id/password", admin.ResetPasswordHandler(db))

	adminRoutes.Post("/monthly-reports", admin.CreateMonthlyReportHandler(db, expenses, now))
	adminRoutes.Get("/monthly-reports", admin.ListMonthlyReportsHandler(db))
	adminRoutes.Get("/monthly-reports/:id", admin.GetMonthlyReportHandler(db))

	if cfg.Cron.Enabled {
		runner := jobs.NewRunner(db, leases, cfg)
		c, err := scheduler.Start(cfg.Loc, scheduler.Jobs(cfg.Cron, runner, otps.Cleanup))
		if err != nil {
			log.Fatalf("[SCHEDULER] %v", err)
		}
		defer c.Stop()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[HTTP] shutdown: %v", err)
		}
	}()

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
