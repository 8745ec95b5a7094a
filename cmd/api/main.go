package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/config"
	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	appHTTP "github.com/cmlabs-hris/timesheet-go/internal/handler/http"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/cache"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/database"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/logger"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/oauth"
	"github.com/cmlabs-hris/timesheet-go/internal/repository/cachestore"
	crmRepository "github.com/cmlabs-hris/timesheet-go/internal/repository/crm"
	"github.com/cmlabs-hris/timesheet-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/timesheet-go/internal/service/master"
	timesheetService "github.com/cmlabs-hris/timesheet-go/internal/service/timesheet"
)

const (
	appName    = "timesheet-go"
	appVersion = "v1.0.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.New(logger.Options{
		App:     appName,
		Version: appVersion,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		File:    cfg.App.LogFile,
	})
	slog.SetDefault(log)
	log.Info("configuration loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Data platform
	crmHTTP := oauth.NewHTTPClient(ctx, oauth.CRMConfig{
		ClientID:     cfg.CRM.ClientID,
		ClientSecret: cfg.CRM.ClientSecret,
		TokenURL:     cfg.CRM.TokenURL,
		Scopes:       cfg.CRM.Scopes,
	}, cfg.CRM.Timeout)
	crmClient, err := crm.NewClient(crm.Config{BaseURL: cfg.CRM.BaseURL, PageSize: cfg.CRM.PageSize}, crmHTTP)
	if err != nil {
		return err
	}

	attendanceRepo := crmRepository.NewAttendanceRepository(crmClient)
	registrationRepo := crmRepository.NewRegistrationRepository(crmClient)
	warehouseRepo := crmRepository.NewWarehouseRepository(crmClient)

	// Reference cache
	var appCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rdb, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		defer rdb.Close()
		appCache = cache.NewRedisCache(rdb, cfg.Cache.KeyPrefix)
	default:
		appCache = cache.NewMemoryCache(time.Now)
	}

	// Last-good snapshots
	var snapshotRepo timesheet.SnapshotRepository
	var snapshotPruner cron.SnapshotPruner
	switch cfg.Snapshot.Store {
	case config.SnapshotStorePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), int32(cfg.Database.MaxConns))
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
		pgSnapshots := postgresql.NewSnapshotRepository(db)
		snapshotRepo = pgSnapshots
		snapshotPruner = pgSnapshots
	case config.SnapshotStoreCache:
		snapshotRepo = cachestore.NewSnapshotRepository(appCache, cfg.Snapshot.TTL)
	case config.SnapshotStoreNone:
		log.Warn("snapshot store disabled; upstream failures will not fall back to previous results")
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	timesheetSvc := timesheetService.NewTimesheetService(attendanceRepo, registrationRepo, snapshotRepo, cfg.WorkRules)
	masterSvc := master.NewMasterService(warehouseRepo, appCache, cfg.Cache.ReferenceTTL)

	// Background jobs
	scheduler := cron.NewScheduler(log)
	jobs := cron.NewMaintenanceJobs(masterSvc, snapshotPruner, cfg.Snapshot.Retention)
	if err := jobs.RegisterJobs(scheduler, max(cfg.Cache.ReferenceTTL/2, 30*time.Second)); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Logger:         log,
			AllowedOrigins: cfg.App.CORSOrigins,
			RequestLevel:   logger.ParseLevel(cfg.App.LogLevel),
		},
		JWTService,
		appHTTP.NewTimesheetHandler(timesheetSvc),
		appHTTP.NewMasterHandler(masterSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server running", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
