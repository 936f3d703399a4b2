package app

import (
	"context"
	"fmt"

	"invita_backend/internal/auth"
	"invita_backend/internal/billing"
	"invita_backend/internal/config"
	"invita_backend/internal/handlers"
	"invita_backend/internal/logger"
	"invita_backend/internal/middleware"
	"invita_backend/internal/models"
	"invita_backend/internal/repositories"
	"invita_backend/internal/routes"
	"invita_backend/internal/services"
	"invita_backend/internal/validator"
	"invita_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := gormDB.AutoMigrate(
		&models.PaymentIntentRecord{},
		&models.UserSubscription{},
		&models.PaymentTransaction{},
		&models.WebhookEvent{},
	); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	ginRouter := SetupRouter(cfg, gormDB, gateway)

	// Фоновая подчистка истекших подписок
	subRepo := repositories.NewSubscriptionRepository()
	worker := workers.NewSubscriptionWorker(gormDB, subRepo)
	worker.Start(context.Background())

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter собирает полный gin.Engine. Вынесен отдельно, чтобы
// интеграционные тесты могли поднять router с фейковым gateway
// и sqlite вместо postgres.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, gateway billing.Gateway) *gin.Engine {
	catalog := billing.CatalogFromConfig(cfg.Billing.Plans)

	// 1. Инициализируем сервисы
	serviceContainer := initializeServices(gateway, catalog)

	// 2. Инициализируем хэндлеры
	appHandlers := initializeHandlers(serviceContainer)

	// 3. Инициализируем Gin
	ginRouter := initializeGinRouter(cfg, gormDB)

	// 4. Делегируем регистрацию маршрутов пакету 'routes'
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	routes.RegisterRoutes(ginRouter, appHandlers, middleware.AuthMiddleware(tokens))

	return ginRouter
}

func initializeServices(gateway billing.Gateway, catalog *billing.Catalog) *services.ServiceContainer {
	// --- Инициализация репозиториев ---
	intentRepo := repositories.NewPaymentIntentRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()
	transactionRepo := repositories.NewTransactionRepository()
	webhookEventRepo := repositories.NewWebhookEventRepository()

	// --- Инициализация сервисов ---
	billingService := services.NewBillingService(gateway, catalog, intentRepo, subscriptionRepo, transactionRepo)
	webhookService := services.NewWebhookService(gateway, catalog, intentRepo, subscriptionRepo, transactionRepo, webhookEventRepo)

	return &services.ServiceContainer{
		BillingService: billingService,
		WebhookService: webhookService,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()

	return &handlers.AppHandlers{
		BillingHandler: handlers.NewBillingHandler(customValidator, container.BillingService),
		WebhookHandler: handlers.NewWebhookHandler(customValidator, container.WebhookService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
