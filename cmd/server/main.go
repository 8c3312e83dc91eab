package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/database"
	"github.com/associacao-ensino/inscricoes-backend/internal/handler"
	"github.com/associacao-ensino/inscricoes-backend/internal/logger"
	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/notify"
	"github.com/associacao-ensino/inscricoes-backend/internal/realtime"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/associacao-ensino/inscricoes-backend/internal/router"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
	"github.com/associacao-ensino/inscricoes-backend/internal/storage"
	"github.com/associacao-ensino/inscricoes-backend/internal/validator"
	"github.com/associacao-ensino/inscricoes-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Bool("realtime", cfg.RealtimeEnabled).
		Msg("Starting " + cfg.AppName + " backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Document Storage & Mail ───────────────────────────────────────
	bucket, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure document storage")
	}

	var mailer notify.Mailer
	if cfg.SendGridKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridKey, cfg.AppName, cfg.MailFromAddress, log)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, emails are only logged")
		mailer = notify.NewLogMailer(log)
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	courseRepo := repository.NewCourseRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	classPairRepo := repository.NewClassPairRepository(pool, classRepo)
	studentRepo := repository.NewStudentRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Realtime View ─────────────────────────────────────────────────
	broker := realtime.NewBroker(rdb, log)
	pairView := realtime.NewPairView(classPairRepo.LoadAggregates, log)

	// ─── Initialize Services ──────────────────────────────────────────
	auditService := service.NewAuditService(auditRepo, rdb, log)
	settingService := service.NewSettingService(settingRepo, rdb, cfg, log)
	courseService := service.NewCourseService(courseRepo, auditService, log)
	roomService := service.NewRoomService(roomRepo, auditService, log)
	classService := service.NewClassService(classRepo, roomService, auditService)
	classPairWorkflow := service.NewClassPairWorkflow(
		classPairRepo, classRepo, studentRepo, courseRepo, roomService, auditService, pairView, log,
	)
	studentService := service.NewStudentService(
		studentRepo, classRepo, classPairRepo, courseRepo, settingService, auditService, pairView, log,
	)
	invoiceService := service.NewInvoiceService(studentService, courseRepo, classPairRepo, log)
	notificationService := service.NewNotificationService(mailer, bucket, cfg.DocumentsMailTo, log)
	enrollmentWorkflow := service.NewEnrollmentWorkflow(service.EnrollmentDeps{
		Pairs:        classPairRepo,
		Classes:      classRepo,
		Students:     studentRepo,
		Courses:      courseRepo,
		Bucket:       bucket,
		Notifier:     notificationService,
		Tuition:      settingService,
		Audit:        auditService,
		View:         pairView,
		MaxFileBytes: cfg.MaxUploadBytes,
	}, log)
	authService := service.NewAuthService(cfg, rdb, profileRepo)
	userService := service.NewUserService(profileRepo, authService, auditService, log)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService),
		Course:     handler.NewCourseHandler(courseService),
		Room:       handler.NewRoomHandler(roomService),
		Class:      handler.NewClassHandler(classService),
		ClassPair:  handler.NewClassPairHandler(classPairWorkflow, classService, pairView),
		Enrollment: handler.NewEnrollmentHandler(enrollmentWorkflow, log),
		Student:    handler.NewStudentHandler(studentService, invoiceService, auditService, log),
		Audit:      handler.NewAuditHandler(auditService),
		User:       handler.NewUserHandler(userService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Setting:    handler.NewSettingHandler(settingService),
		Function:   handler.NewFunctionHandler(userService, notificationService),
		WS:         handler.NewWSHandler(broker, pairView, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, rdb, pairView, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	auditWorker := worker.NewAuditWorker(auditRepo, rdb, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		auditWorker.Start(workerCtx)
	}()

	if cfg.RealtimeEnabled {
		listener := realtime.NewListener(cfg, rdb, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Start(workerCtx)
		}()

		// The view subscribes before its first load so no change between the
		// load and the subscription is missed.
		sub := broker.Subscribe(workerCtx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			pairView.Run(workerCtx, sub.Events)
		}()
	} else {
		// Without the change feed the view is still filled once so the pair
		// list can be served from memory.
		pairView.Reload(ctx, nil)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, log)
	r := router.SetupRouter(authService, handlers, cfg, loginLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the audit queue to drain.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Workers did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
