package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "travelcms/api/swagger" // swagger docs
	"travelcms/internal/config"
	"travelcms/internal/database"
	"travelcms/internal/handler"
	"travelcms/internal/logger"
	"travelcms/internal/metrics"
	"travelcms/internal/middleware"
	"travelcms/internal/repository"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/internal/websocket"
)

// @title           Travel CMS
// @version         1.0
// @description     Places, routes and comments behind role-based dashboards. Every page also answers JSON when asked with Accept: application/json.
// @host            localhost:8080
// @BasePath        /
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.NewConnection(cfg.Database.DSN(), zl)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	zl.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zl, cfg.Server.AllowedOrigins)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	logRepo := repository.NewLogRepository(db)
	placeRepo := repository.NewPlaceRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	auditService := service.NewAuditService(logRepo, wsHub, m, zl)
	roleService := service.NewRoleService(txManager, roleRepo)
	userService := service.NewUserService(txManager, userRepo, roleRepo, auditService, wsHub, m, zl, bcrypt.DefaultCost)
	contentService := service.NewContentService(txManager, placeRepo, routeRepo, commentRepo, auditService)
	dashboardService := service.NewDashboardService(statsRepo, routeRepo, auditService)

	if err := roleService.SeedDefaultRoles(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if cfg.Bootstrap.AdminUsername != "" {
		if err := userService.EnsureSuperadmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap superadmin: %w", err)
		}
	}

	sessions := middleware.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie)
	gate := middleware.NewGate(m, zl)

	// Initialize Handlers
	pageHandler := handler.NewPageHandler(dashboardService, gate, zl)
	authHandler := handler.NewAuthHandler(userService, roleService, sessions, gate, zl)
	auditHandler := handler.NewAuditHandler(auditService, wsHub, gate, zl)
	userHandler := handler.NewUserHandler(userService, roleService, gate, zl)
	contentHandler := handler.NewContentHandler(contentService, gate, zl)
	roleHandler := handler.NewRoleHandler(roleService, gate, zl)

	templates, err := web.LoadTemplates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.SetHTMLTemplate(templates)
	router.Use(
		middleware.RequestID(),
		middleware.Logger(zl),
		middleware.Recovery(zl),
		middleware.Metrics(m),
	)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Operational endpoints skip session lookup
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	site := router.Group("")
	site.Use(middleware.Authenticate(sessions, userService, zl), middleware.CSRF(cfg.Session.SecureCookie, zl))
	pageHandler.RegisterRoutes(site)
	authHandler.RegisterRoutes(site)
	auditHandler.RegisterRoutes(site)
	userHandler.RegisterRoutes(site)
	contentHandler.RegisterRoutes(site)
	roleHandler.RegisterRoutes(site)
	router.NoRoute(middleware.Authenticate(sessions, userService, zl), pageHandler.NotFound)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
