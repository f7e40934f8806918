package main

import (
	"log"

	_ "opticinvoicer/api/swagger" // swagger docs
	"opticinvoicer/internal/config"
	"opticinvoicer/internal/database"
	"opticinvoicer/internal/handler"
	"opticinvoicer/internal/logger"
	"opticinvoicer/internal/middleware"
	"opticinvoicer/internal/repository"
	"opticinvoicer/internal/service"
	"opticinvoicer/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Optic Invoicer API
// @version         1.0
// @description     Multi-tenant invoicing and payment ledger for retail optic stores.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	jwtSecret := []byte(cfg.JWTSecret)

	// Set up WebSocket hub
	wsHub := websocket.NewHub(zlog)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	orgRepo := repository.NewOrganizationRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	wholesaleRepo := repository.NewWholesaleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	notifier := service.NewHubNotifier(wsHub, zlog)
	mailer := service.NewLogMailer(zlog)

	userService := service.NewUserService(userRepo, orgRepo, auditRepo, txManager, mailer, zlog, jwtSecret)
	orgService := service.NewOrganizationService(orgRepo, statsRepo, zlog)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txManager)
	inventoryService := service.NewInventoryService(inventoryRepo, orgRepo, sequenceRepo, auditRepo, txManager, notifier)
	invoiceService := service.NewInvoiceService(invoiceRepo, orgRepo, sequenceRepo, auditRepo, txManager,
		inventoryService, customerService, orgService, notifier)
	paymentService := service.NewPaymentService(invoiceRepo, auditRepo, txManager, notifier)
	wholesaleService := service.NewWholesaleService(wholesaleRepo, orgRepo, sequenceRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)

	auth := middleware.NewAuth(jwtSecret, cfg.Env != "development")

	authHandler := handler.NewAuthHandler(userService, auth)
	orgHandler := handler.NewOrganizationHandler(orgService, userService, auditService, auth)
	customerHandler := handler.NewCustomerHandler(customerService, auth)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, auth)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService, auth)
	wholesaleHandler := handler.NewWholesaleHandler(wholesaleService, auth)

	// Set up Gin router
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	// Register API routes
	authHandler.RegisterRoutes(router.Group(""))
	orgHandler.RegisterRoutes(router.Group(""))
	customerHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	wholesaleHandler.RegisterRoutes(router.Group(""))

	zlog.Info("server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}
