package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-cockpit-api/api/swagger"
	"github.com/noah-isme/tutor-cockpit-api/internal/handler"
	"github.com/noah-isme/tutor-cockpit-api/internal/repository"
	"github.com/noah-isme/tutor-cockpit-api/internal/server"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	"github.com/noah-isme/tutor-cockpit-api/pkg/cache"
	"github.com/noah-isme/tutor-cockpit-api/pkg/config"
	"github.com/noah-isme/tutor-cockpit-api/pkg/database"
	"github.com/noah-isme/tutor-cockpit-api/pkg/jobs"
	"github.com/noah-isme/tutor-cockpit-api/pkg/logger"
	"github.com/noah-isme/tutor-cockpit-api/pkg/storage"
)

// @title Tutor Cockpit API
// @version 1.0.0
// @description Single-user dashboard for private tutoring: students, lessons, finance, material bank and exports.
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
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metrics,
		cfg.Dashboard.CacheTTL,
		logr,
		redisClient != nil,
	)

	studentRepo := repository.NewStudentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	theoryRepo := repository.NewTheoryRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(repository.NewAuthRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, lessonRepo, cacheSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, studentRepo, cacheSvc, validate, logr, service.LessonServiceConfig{
		Location: cfg.Location(),
	})
	financeSvc := service.NewFinanceService(service.FinanceServiceParams{
		Payments:      paymentRepo,
		Expenses:      expenseRepo,
		Totals:        financeRepo,
		Lessons:       lessonRepo,
		Cache:         cacheSvc,
		Validator:     validate,
		Logger:        logr,
		StatsCacheTTL: cfg.Finance.StatsCacheTTL,
	})
	materialSvc := service.NewMaterialService(categoryRepo, problemRepo, theoryRepo, validate, logr)
	variantSvc := service.NewVariantService(variantRepo, problemRepo, metrics, validate, logr, nil)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:    repository.NewDashboardRepository(db),
		Lessons: lessonRepo,
		Totals:  financeRepo,
		Cache:   cacheSvc,
		Logger:  logr,
		Config: service.DashboardServiceConfig{
			CacheTTL: cfg.Dashboard.CacheTTL,
			Location: cfg.Location(),
		},
	})
	backupSvc := service.NewBackupService(repository.NewBackupRepository(db), cacheSvc, logr)

	if cfg.Materials.Seed {
		seeded, err := materialSvc.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed materials: %w", err)
		}
		if seeded {
			logr.Info("material bank seeded")
		}
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(service.ExportSources{
		Backup:     backupSvc,
		Payments:   paymentRepo,
		Expenses:   expenseRepo,
		Categories: categoryRepo,
		Problems:   problemRepo,
		Variants:   variantRepo,
	}, files, logr)

	worker := service.NewExportWorker(exportJobRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		OnGiveUp:   worker.GiveUp,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	exportSvc := service.NewExportJobService(exportJobRepo, queue, exporter, signer, validate, logr, service.ExportJobServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.ResultTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	exportSvc.RecoverPendingJobs(ctx)
	exportSvc.StartCleanup(ctx)

	router := server.NewRouter(server.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
	}, server.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Students:  handler.NewStudentHandler(studentSvc),
		Lessons:   handler.NewLessonHandler(lessonSvc),
		Finance:   handler.NewFinanceHandler(financeSvc),
		Materials: handler.NewMaterialHandler(materialSvc),
		Variants:  handler.NewVariantHandler(variantSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Backup:    handler.NewBackupHandler(backupSvc),
		Exports:   handler.NewExportHandler(exportSvc),
		Ops:       handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("starting server", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
