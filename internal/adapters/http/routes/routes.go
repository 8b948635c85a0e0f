package routes

import (
	"time"

	"librohub/internal/adapters/http/handlers"
	"librohub/internal/adapters/http/middleware"
	"librohub/internal/adapters/persistence/repositories"
	"librohub/internal/config"
	"librohub/internal/core/services"
	"librohub/internal/pkg/clock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and returns the
// overdue sweep service for the caller to start and stop.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.SweepService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	clk := clock.NewSystem()
	notifyService := services.NewNotificationService()

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo, loanRepo)
	bookService := services.NewBookService(bookRepo, loanRepo, clk, cfg.Loan.ConflictRetries)
	loanService := services.NewLoanService(bookRepo, loanRepo, loanRepo, userRepo, clk, notifyService, cfg.Loan)
	reportService := services.NewReportService(db, clk)
	sweepService := services.NewSweepService(loanRepo, clk, notifyService, cfg.Loan.SweepSchedule)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService, loanService)
	loanHandler := handlers.NewLoanHandler(loanService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, rate limited)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Book routes (catalog reads are public)
	bookRoutes := apiV1.Group("/books")
	setupBookRoutes(bookRoutes, bookHandler, cfg)

	// Loan routes (authenticated)
	loanRoutes := apiV1.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLoanRoutes(loanRoutes, loanHandler)

	// User management routes (admin only)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (authenticated users)
	profileRoutes := apiV1.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProfileRoutes(profileRoutes, userHandler)

	// Report routes (admin only)
	reportRoutes := apiV1.Group("/reports")
	reportRoutes.Use(middleware.AuthMiddleware(cfg))
	reportRoutes.Use(middleware.AdminOnly())
	setupReportRoutes(reportRoutes, reportHandler)

	return sweepService
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (5 req/min/IP against credential stuffing)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupBookRoutes configures catalog routes. Listings are public and
// briefly cacheable; availability is served uncached; writes are admin.
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler, cfg *config.Config) {
	router.Get("/", middleware.CacheControl(60*time.Second), handler.ListBooks)
	router.Get("/:id", middleware.CacheControl(60*time.Second), handler.GetBook)
	router.Get("/:id/availability", middleware.NoCacheHeaders(), handler.GetAvailability)

	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Post("/", handler.CreateBook)
	adminRoutes.Put("/:id", handler.UpdateBook)
	adminRoutes.Patch("/:id/copies", handler.AdjustCopies)
	adminRoutes.Post("/:id/withdraw", handler.WithdrawBook)
	adminRoutes.Post("/:id/reinstate", handler.ReinstateBook)
	adminRoutes.Delete("/:id", handler.DeleteBook)
}

// setupLoanRoutes configures loan routes (authenticated)
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Use(middleware.NoCacheHeaders())

	router.Post("/", handler.Borrow)
	router.Get("/", handler.ListLoans)
	router.Get("/overdue", middleware.AdminOnly(), handler.ListOverdue)
	router.Get("/:id", handler.GetLoan)
	router.Post("/:id/return", handler.ReturnLoan)
	router.Post("/:id/renew", handler.RenewLoan)

	// Staff operations
	router.Post("/:id/lost", middleware.AdminOnly(), handler.MarkLost)
	router.Post("/:id/fine/pay", middleware.AdminOnly(), handler.PayFine)
}

// setupUserRoutes configures user management routes (admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Delete("/:id", handler.DeleteUser)
}

// setupProfileRoutes configures profile routes (authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", handler.ChangePassword)
}

// setupReportRoutes configures reporting routes (admin only)
func setupReportRoutes(router fiber.Router, handler *handlers.ReportHandler) {
	router.Get("/loans", handler.GetLoanReport)
	router.Get("/catalog", handler.GetCatalogReport)
}
