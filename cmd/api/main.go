package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/config"
	"secbank-cbs/internal/database"
	"secbank-cbs/internal/handler"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/scheduler"
	"secbank-cbs/internal/security"
	"secbank-cbs/internal/service"
	"secbank-cbs/internal/websocket"
	"secbank-cbs/pkg/clock"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database, cfg.IsDev())
	if err != nil {
		logger.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to PostgreSQL successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	accountTypeRepo := repository.NewAccountTypeRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	emitter := audit.NewAsyncEmitter(auditRepo, userRepo, wsHub, cfg.Audit.QueueSize, cfg.Audit.Workers, logger)
	emitter.Start()

	tokens := security.NewTokenService(cfg.JWT, clk, logger)
	resolver := security.NewPrincipalResolver(userRepo)
	authenticator := security.NewAuthenticator(tokens, resolver)

	authService := service.NewAuthService(txManager, userRepo, resolver, tokens, emitter, cfg.Auth, clk)
	userService := service.NewUserService(txManager, userRepo, emitter, clk)
	roleService := service.NewRoleService(txManager, roleRepo, emitter)
	branchService := service.NewBranchService(branchRepo, emitter)
	customerService := service.NewCustomerService(txManager, customerRepo, accountRepo, branchRepo, emitter, clk)
	accountTypeService := service.NewAccountTypeService(accountTypeRepo, emitter)
	accountService := service.NewAccountService(txManager, accountRepo, customerRepo, accountTypeRepo, branchRepo, emitter, clk)
	auditService := service.NewAuditService(auditRepo)
	dashboardService := service.NewDashboardService(userRepo, roleRepo, branchRepo, customerRepo, accountRepo, auditRepo, clk)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, middleware.CookieConfig{
		Secure:     cfg.Auth.SecureCookies,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	branchHandler := handler.NewBranchHandler(branchService)
	customerHandler := handler.NewCustomerHandler(customerService)
	accountTypeHandler := handler.NewAccountTypeHandler(accountTypeService)
	accountHandler := handler.NewAccountHandler(accountService)
	auditHandler := handler.NewAuditHandler(auditService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RequestID(), middleware.AuditContext())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Live audit feed
	router.GET("/ws/audit", func(c *gin.Context) {
		websocket.ServeWs(wsHub, authenticator, c)
	})

	// API Routing
	public := router.Group("/api/v1")
	protected := router.Group("/api/v1", middleware.Authenticate(authenticator))

	authHandler.RegisterRoutes(public, protected)
	userHandler.RegisterRoutes(protected)
	roleHandler.RegisterRoutes(protected)
	branchHandler.RegisterRoutes(protected)
	customerHandler.RegisterRoutes(protected)
	accountTypeHandler.RegisterRoutes(protected)
	accountHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)
	dashboardHandler.RegisterRoutes(protected)

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.New(cfg.Scheduler, accountService, userService, logger)
		if err != nil {
			logger.Error("Scheduler setup failed", "error", err)
			os.Exit(1)
		}
		jobs.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port, "mode", cfg.AppMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	// Drain pending audit records after the last request has finished.
	if err := emitter.Close(shutdownCtx); err != nil {
		logger.Warn("Audit queue not fully drained", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
