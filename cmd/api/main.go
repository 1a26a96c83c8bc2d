package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gelgid/internal/config"
	"gelgid/internal/database"
	"gelgid/internal/handlers"
	"gelgid/internal/logger"
	"gelgid/internal/middleware"
	"gelgid/internal/recurring"
	"gelgid/internal/services"
	"gelgid/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "gelgid/internal/docs" // Import swagger docs
)

// @title           Gelgid API
// @version         1.0
// @description     Gelgid is a personal finance tracker covering transactions, recurring rules, assets and reports.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()

	var googleVerifier services.GoogleVerifier
	if appConfig.GoogleClientID != "" {
		googleVerifier = services.NewGoogleAuthProvider(
			appConfig.GoogleClientID,
			appConfig.GoogleClientSecret,
			appConfig.GoogleRedirectURL,
		)
	}

	userService := services.NewUserService(db, googleVerifier)
	transactionService := services.NewTransactionService(db)
	materializer := recurring.NewMaterializer(
		recurring.NewTransactionStore(db),
		recurring.NewRuleStore(db),
	)
	recurringService := services.NewRecurringService(db, materializer, appConfig.LookbackMonths)
	assetService := services.NewAssetService(db)
	reportService := services.NewReportService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	recurringHandler := handlers.NewRecurringHandler(recurringService)
	assetHandler := handlers.NewAssetHandler(assetService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Background materialization: one pass at startup, then periodic re-checks.
	scheduler := recurring.NewScheduler(func(ctx context.Context) error {
		created, err := recurringService.ProcessAllBacklogs(ctx)
		if created > 0 {
			log.Infof("Recurring pass created %d transaction(s)", created)
		}
		return err
	}, appConfig.RecurringInterval)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/google", authHandler.GoogleLogin)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)
	protected.PUT("/profile/password", authHandler.ChangePassword)
	protected.DELETE("/profile", authHandler.DeleteAccount)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/categories", transactionHandler.GetCategories)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Recurring rule routes
	recurringRules := protected.Group("/recurring")
	recurringRules.POST("", recurringHandler.CreateRule)
	recurringRules.GET("", recurringHandler.GetUserRules)
	recurringRules.POST("/process", recurringHandler.ProcessBacklog)
	recurringRules.GET("/:id", recurringHandler.GetRuleByID)
	recurringRules.PUT("/:id", recurringHandler.UpdateRule)
	recurringRules.DELETE("/:id", recurringHandler.DeleteRule)

	// Asset routes
	assets := protected.Group("/assets")
	assets.POST("", assetHandler.CreateAsset)
	assets.GET("", assetHandler.GetUserAssets)
	assets.GET("/:id", assetHandler.GetAssetByID)
	assets.PUT("/:id", assetHandler.UpdateAsset)
	assets.PUT("/:id/value", assetHandler.UpdateAssetValue)
	assets.DELETE("/:id", assetHandler.DeleteAsset)
	assets.GET("/:id/history", assetHandler.GetAssetHistory)

	// Report routes
	reports := protected.Group("/reports")
	reports.GET("/weekly", reportHandler.GetWeeklyReport)
	reports.GET("/monthly", reportHandler.GetMonthlyReport)
	reports.GET("/yearly", reportHandler.GetYearlyReport)
	reports.GET("/categories", reportHandler.GetCategoryBreakdown)

	server := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Gelgid backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
