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

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-booking-api/internal/handler"
	"github.com/noah-isme/lab-booking-api/internal/middleware"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/repository"
	"github.com/noah-isme/lab-booking-api/internal/router"
	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/cache"
	"github.com/noah-isme/lab-booking-api/pkg/config"
	"github.com/noah-isme/lab-booking-api/pkg/database"
	"github.com/noah-isme/lab-booking-api/pkg/jobs"
	"github.com/noah-isme/lab-booking-api/pkg/lock"
	"github.com/noah-isme/lab-booking-api/pkg/logger"
	"github.com/noah-isme/lab-booking-api/pkg/storage"
)

// @title Lab Booking API
// @version 1.0.0
// @description Scheduling, availability and booking for laboratory tests
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	rootCmd := &cobra.Command{
		Use:   "labbook",
		Short: "Lab test booking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(windowsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations and seed the administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			applied, err := database.NewMigrator(a.db, a.cfg.Migrations.Dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			a.logger.Sugar().Infow("migrations applied", "count", applied)

			auth := service.NewAuthService(repository.NewAdminUserRepository(a.db), validator.New(), a.logger, authConfig(a.cfg))
			created, err := auth.SeedAdmin(ctx, a.cfg.Admin.Username, a.cfg.Admin.Password)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			if created {
				a.logger.Sugar().Infow("administrator seeded", "username", a.cfg.Admin.Username)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			statuses, err := database.NewMigrator(a.db, a.cfg.Migrations.Dir).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}
			for _, st := range statuses {
				state := "pending"
				if st.Applied && st.AppliedAt != nil {
					state = "applied " + st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-40s %s\n", st.Version, st.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func windowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Maintain generated test windows",
	}

	regen := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the windows of one schedule entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			testID, _ := cmd.Flags().GetString("test")
			scheduleID, _ := cmd.Flags().GetString("schedule")
			minutes, _ := cmd.Flags().GetInt("minutes")

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if minutes <= 0 {
				minutes = a.cfg.Booking.DefaultWindowMinutes
			}
			windows := service.NewWindowService(
				repository.NewLabTestRepository(a.db),
				repository.NewTestScheduleRepository(a.db),
				repository.NewTestWindowRepository(a.db),
				database.NewTxRunner(a.db),
				a.cfg.Booking.CapacityFactor,
				nil,
				a.logger,
			)
			generated, err := windows.Regenerate(cmd.Context(), testID, scheduleID, minutes)
			if err != nil {
				return err
			}
			for _, w := range generated {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s-%s  max_tests=%d\n", w.ID, w.WindowStart, w.WindowEnd, w.MaxTests)
			}
			return nil
		},
	}
	regen.Flags().String("test", "", "test id")
	regen.Flags().String("schedule", "", "schedule entry id")
	regen.Flags().Int("minutes", 0, "window length in minutes (defaults to BOOKING_DEFAULT_WINDOW_MINUTES)")
	_ = regen.MarkFlagRequired("test")
	_ = regen.MarkFlagRequired("schedule")

	cmd.AddCommand(regen)
	return cmd
}

type assistantSessionStore interface {
	Save(ctx context.Context, session *models.BookingSession) error
	Get(ctx context.Context, token string) (*models.BookingSession, error)
	Take(ctx context.Context, token string) (*models.BookingSession, error)
	Delete(ctx context.Context, token string) error
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &app{cfg: cfg, logger: logr, db: db}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.logger.Sync()
}

func authConfig(cfg *config.Config) service.AuthConfig {
	return service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	}
}

func runServer() error {
	a, err := bootstrap()
	if err != nil {
		log.Printf("startup failed: %v", err)
		return err
	}
	defer a.close()
	cfg, logr, db := a.cfg, a.logger, a.db

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()
	tx := database.NewTxRunner(db)

	var (
		cacheRepo    service.CacheRepository
		sessionStore assistantSessionStore
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(client, logr)
		sessionStore = repository.NewSessionRepository(client)
	} else {
		logr.Warn("redis disabled, using in-process catalog cache and assistant sessions")
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Catalog.CacheTTL, time.Minute)
		sessionStore = repository.NewMemorySessionRepository(time.Minute)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	testRepo := repository.NewLabTestRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	scheduleRepo := repository.NewTestScheduleRepository(db)
	windowRepo := repository.NewTestWindowRepository(db)
	labHolidays := repository.NewLabHolidayRepository(db)
	testHolidays := repository.NewTestHolidayRepository(db)
	doctorHolidays := repository.NewDoctorHolidayRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	windowSvc := service.NewWindowService(testRepo, scheduleRepo, windowRepo, tx, cfg.Booking.CapacityFactor, metrics, logr)
	availabilitySvc := service.NewAvailabilityService(service.AvailabilityDeps{
		Tests:          testRepo,
		Schedules:      scheduleRepo,
		Windows:        windowRepo,
		LabHolidays:    labHolidays,
		TestHolidays:   testHolidays,
		DoctorHolidays: doctorHolidays,
		Assignments:    assignmentRepo,
		Bookings:       bookingRepo,
	}, metrics, logr)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		Tests:          testRepo,
		Schedules:      scheduleRepo,
		Windows:        windowRepo,
		LabHolidays:    labHolidays,
		TestHolidays:   testHolidays,
		DoctorHolidays: doctorHolidays,
		Assignments:    assignmentRepo,
		Doctors:        doctorRepo,
		Bookings:       bookingRepo,
		Tx:             tx,
		Locks:          lock.NewKeyedMutex(),
	}, cfg.Booking.LockTimeout, validate, metrics, logr)
	labTestSvc := service.NewLabTestService(testRepo, cacheSvc, validate, logr)
	doctorSvc := service.NewDoctorService(doctorRepo, cacheSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, testRepo, doctorRepo, validate, logr)
	holidaySvc := service.NewHolidayService(labHolidays, testHolidays, doctorHolidays, testRepo, doctorRepo, validate, logr)
	labScheduleSvc := service.NewLabScheduleService(repository.NewLabScheduleRepository(db), logr)
	testScheduleSvc := service.NewTestScheduleService(scheduleRepo, testRepo, windowSvc, windowRepo, tx, validate, logr)
	authSvc := service.NewAuthService(repository.NewAdminUserRepository(db), validate, logr, authConfig(cfg))
	assistantSvc := service.NewAssistantSessionService(testRepo, availabilitySvc, bookingSvc, sessionStore, cfg.Sessions.TTL, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	exportRepo := repository.NewExportJobRepository(db)
	exporter := service.NewExportService(bookingRepo, store,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr, nil, nil, nil)
	worker := service.NewExportWorker(exportRepo, exporter, cfg.Exports.WorkerRetries, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	exportJobs := service.NewExportJobService(exportRepo, testRepo, queue, exporter, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: time.Hour,
	}, validate, metrics, logr)

	if cfg.Exports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		exportJobs.RecoverPendingJobs(ctx)
		exportJobs.StartCleanup(ctx)
	} else {
		logr.Warn("exports disabled, export requests will fail")
	}

	engine := router.New(router.Options{
		APIPrefix:   cfg.APIPrefix,
		Env:         cfg.Env,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Logger:      logr,
		Metrics:     metrics,
		Auth:        authSvc,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logr),
	}, router.Handlers{
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Bookings:     handler.NewBookingHandler(bookingSvc),
		Tests:        handler.NewLabTestHandler(labTestSvc),
		Doctors:      handler.NewDoctorHandler(doctorSvc, assignmentSvc),
		Schedules:    handler.NewScheduleHandler(labScheduleSvc, holidaySvc, testScheduleSvc, windowSvc),
		Auth:         handler.NewAuthHandler(authSvc),
		Assistant:    handler.NewAssistantHandler(assistantSvc),
		Exports:      handler.NewExportHandler(exportJobs),
		Metrics:      handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
