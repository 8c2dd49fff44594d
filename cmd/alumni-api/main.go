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

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/jnv-alumni-api/api/swagger"
	"github.com/noah-isme/jnv-alumni-api/internal/handler"
	"github.com/noah-isme/jnv-alumni-api/internal/middleware"
	"github.com/noah-isme/jnv-alumni-api/internal/repository"
	"github.com/noah-isme/jnv-alumni-api/internal/service"
	"github.com/noah-isme/jnv-alumni-api/pkg/cache"
	"github.com/noah-isme/jnv-alumni-api/pkg/config"
	"github.com/noah-isme/jnv-alumni-api/pkg/database"
	"github.com/noah-isme/jnv-alumni-api/pkg/jobs"
	"github.com/noah-isme/jnv-alumni-api/pkg/logger"
	"github.com/noah-isme/jnv-alumni-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/jnv-alumni-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/jnv-alumni-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title JNV Alumni API
// @version 1.0.0
// @description Alumni registration, endorsement and directory service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, logr)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, directory cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	alumniRepo := repository.NewAlumniRepository(db)
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr, cfg.Directory.CacheEnabled && redisClient != nil)

	notifications, queue, err := buildNotifications(cfg, logr)
	if err != nil {
		return err
	}
	metricsSvc.TrackQueueDepth(queue.Len)
	queue.Start(ctx)
	defer queue.Stop()

	directorySvc := service.NewDirectoryService(alumniRepo, cacheSvc, metricsSvc, cfg.Directory.CacheTTL, cfg.Directory.PageSize, logr)
	registrationSvc := service.NewRegistrationService(alumniRepo, userRepo, directorySvc, notifications, metricsSvc, validate, logr, cfg.Registration.MinPasswordLength)
	alumniSvc := service.NewAlumniService(alumniRepo, userRepo, directorySvc, notifications, metricsSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, alumniRepo, notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   cfg.Registration.ResetTokenTTL,
		Issuer:             cfg.JWT.Issuer,
		Audience:           cfg.JWT.Audience,
		SingleSession:      cfg.JWT.SingleSession,
	})
	contactSvc := service.NewContactService(contactRepo, alumniRepo, userRepo, validate, logr)
	suggestionSvc := service.NewSuggestionService(suggestionRepo, alumniRepo, userRepo, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Alumni:     handler.NewAlumniHandler(registrationSvc, alumniSvc),
		Directory:  handler.NewDirectoryHandler(directorySvc),
		Contact:    handler.NewContactHandler(contactSvc),
		Suggestion: handler.NewSuggestionHandler(suggestionSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc, readinessChecks(db, cacheRepo, redisClient != nil), logr),
	}, authSvc, userRepo, logr)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildNotifications(cfg *config.Config, logr *zap.Logger) (*service.NotificationService, *jobs.Queue, error) {
	renderer, err := mail.NewRenderer(cfg.Mail.FromName, cfg.Mail.AppURL)
	if err != nil {
		return nil, nil, fmt.Errorf("mail templates: %w", err)
	}

	var mailer mail.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderSendGrid:
		mailer = mail.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail, logr)
	default:
		mailer = mail.NewLogMailer(logr)
	}

	notifications := service.NewNotificationService(renderer, mailer, logr)
	mux := jobs.NewMux()
	notifications.Register(mux)

	queue := jobs.NewQueue("notifications", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifications.Bind(queue)
	return notifications, queue, nil
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository, redisEnabled bool) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisEnabled {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}
