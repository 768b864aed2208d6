package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/StamperDavid/rapid-crm-sub009/api/swagger" // swagger docs
	"github.com/StamperDavid/rapid-crm-sub009/internal/config"
	"github.com/StamperDavid/rapid-crm-sub009/internal/database"
	"github.com/StamperDavid/rapid-crm-sub009/internal/handler"
	"github.com/StamperDavid/rapid-crm-sub009/internal/middleware"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"
	"github.com/StamperDavid/rapid-crm-sub009/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           IFTA Fuel Tax API
// @version         1.0
// @description     Quarterly IFTA fuel tax aggregation for carrier clients: ledgers, tax rates and per-jurisdiction reports.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Bootstrap logger until the configured one is built.
	if bootstrap, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(bootstrap)
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("failed to load config", zap.Error(err))
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		zap.L().Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = zap.L().Sync() }()

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}
	zap.L().Info("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.Server.CORSOrigins)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	clientRepo := repository.NewClientRepository(db)
	rateRepo := repository.NewTaxRateRepository(db)
	mileageRepo := repository.NewMileageRepository(db)
	fuelRepo := repository.NewFuelPurchaseRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	userService := service.NewUserService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auditService := service.NewAuditService(auditRepo)
	clientService := service.NewClientService(clientRepo, auditRepo)
	taxRateService := service.NewTaxRateService(rateRepo, auditRepo, txManager, wsHub)
	ledgerService := service.NewLedgerService(clientRepo, mileageRepo, fuelRepo, auditRepo, txManager, wsHub)
	reportService := service.NewReportService(clientRepo, mileageRepo, fuelRepo, rateRepo, wsHub, cfg.Report.DefaultStrategy)
	statisticsService := service.NewStatisticsService(clientRepo, statsRepo)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret)
	loginLimiter := middleware.NewIPRateLimiter(cfg.Auth.LoginRatePerMin)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				loginLimiter.Cleanup(30 * time.Minute)
			}
		}
	}()

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", wsHub.ServeWs(auth))

	// API Routing
	api := router.Group("")
	handler.NewUserHandler(userService, cfg.Auth.TokenTTL).RegisterRoutes(api, auth, loginLimiter.Middleware())
	handler.NewAuditHandler(auditService).RegisterRoutes(api, auth)
	handler.NewClientHandler(clientService).RegisterRoutes(api, auth)
	handler.NewTaxRateHandler(taxRateService).RegisterRoutes(api, auth)
	handler.NewLedgerHandler(ledgerService).RegisterRoutes(api, auth)
	handler.NewReportHandler(reportService).RegisterRoutes(api, auth)
	handler.NewStatisticsHandler(statisticsService).RegisterRoutes(api, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("graceful shutdown failed", zap.Error(err))
	}
	<-wsHub.Done()
}
