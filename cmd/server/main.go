package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appallocation "github.com/coopay/backend/internal/application/allocation"
	appsettlement "github.com/coopay/backend/internal/application/settlement"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/auth"
	"github.com/coopay/backend/internal/infrastructure/cache"
	"github.com/coopay/backend/internal/infrastructure/config"
	"github.com/coopay/backend/internal/infrastructure/event"
	"github.com/coopay/backend/internal/infrastructure/logger"
	"github.com/coopay/backend/internal/infrastructure/migration"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/coopay/backend/internal/infrastructure/payment"
	"github.com/coopay/backend/internal/infrastructure/persistence"
	"github.com/coopay/backend/internal/infrastructure/realtime"
	"github.com/coopay/backend/internal/infrastructure/scheduler"
	"github.com/coopay/backend/internal/infrastructure/telemetry"
	"github.com/coopay/backend/internal/interfaces/http/handler"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/coopay/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.ForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	log := logger.New(logCfg)

	ctx := context.Background()
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsCfg := telCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	// Rebuild the logger so records also leave through the OTLP bridge
	log = logger.New(logCfg, loggerProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting cooperative payment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.Version),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.Profiling.Enabled,
		ServerAddress:     cfg.Telemetry.Profiling.ServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.Profiling.Enabled {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:  gormLog,
		Tracing: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := runMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	meter := meterProvider.Meter("github.com/coopay/backend")
	if _, err := telemetry.RegisterDBPoolMetrics(meter, db.SQLStats); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}
	settlementMetrics, err := telemetry.NewSettlementMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create settlement metrics", zap.Error(err))
	}

	// Repositories
	intentRepo := persistence.NewIntentRepository(db.DB)
	transactionRepo := persistence.NewTransactionRepository(db.DB)
	accountRepo := persistence.NewAccountRepository(db.DB)
	cooperativeRepo := persistence.NewCooperativeRepository(db.DB)
	allocationRepo := persistence.NewAllocationConfigRepository(db.DB)
	notificationLogRepo := persistence.NewNotificationLogRepository(db.DB)
	uow := persistence.NewUnitOfWork(db.DB)

	// Settlement lock: Redis when reachable, in-process otherwise
	lock, err := cache.NewLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		log.Fatal("Failed to create settlement lock", zap.Error(err))
	}

	// Gateway
	paystack, err := payment.NewPaystackAdapter(&payment.PaystackConfig{
		BaseURL:       cfg.Paystack.BaseURL,
		SecretKey:     cfg.Paystack.SecretKey,
		CallbackURL:   cfg.Paystack.CallbackURL,
		PreferredBank: cfg.Paystack.PreferredBank,
		Timeout:       cfg.Paystack.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to create Paystack adapter", zap.Error(err))
	}
	var provisioner settlement.VirtualAccountProvisioner
	if cfg.Paystack.VirtualAccounts {
		provisioner = paystack
	}

	// Notifications
	var emailSender notification.EmailSender
	if smtp := cfg.Notification.SMTP; smtp.Host != "" {
		emailSender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:        smtp.Host,
			Port:        smtp.Port,
			Username:    smtp.Username,
			Password:    smtp.Password,
			From:        smtp.From,
			FromName:    smtp.FromName,
			ImplicitTLS: smtp.TLS,
		})
	} else {
		log.Warn("SMTP host not configured, email notifications disabled")
	}
	var smsSender notification.SMSSender
	if sms := cfg.Notification.SMS; sms.BaseURL != "" {
		smsSender = notification.NewHTTPSMSSender(notification.SMSConfig{
			BaseURL:  sms.BaseURL,
			APIKey:   sms.APIKey,
			SenderID: sms.SenderID,
			Timeout:  sms.Timeout,
		})
	} else {
		log.Warn("SMS provider not configured, SMS notifications disabled")
	}
	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Email:  emailSender,
		SMS:    smsSender,
		Logs:   notificationLogRepo,
		Logger: log,
	})

	// Domain events: dashboard refresh and audit log
	eventSerializer := event.NewEventSerializer()
	event.RegisterSettlementEvents(eventSerializer)
	eventBus := event.NewInMemoryEventBus(log)
	hub := realtime.NewHub(realtime.Config{
		PingInterval: cfg.Realtime.PingInterval,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		AllowOrigins: cfg.Realtime.AllowOrigins,
	}, log)
	eventBus.Subscribe(hub)
	eventBus.Subscribe(event.NewAuditHandler(eventSerializer, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	feePolicy, err := cfg.Fees.Policy()
	if err != nil {
		log.Fatal("Invalid fee policy", zap.Error(err))
	}
	coopFee, memberFee, err := cfg.Fees.Registration()
	if err != nil {
		log.Fatal("Invalid registration fees", zap.Error(err))
	}

	settlementService := appsettlement.NewService(appsettlement.ServiceConfig{
		Intents:        intentRepo,
		Transactions:   transactionRepo,
		Accounts:       accountRepo,
		UnitOfWork:     uow,
		Gateway:        paystack,
		Notifier:       dispatcher,
		Provisioner:    provisioner,
		Lock:           lock,
		EventPublisher: eventBus,
		Metrics:        settlementMetrics,
		FeePolicy:      &feePolicy,
		VerifyTimeout:  cfg.Settlement.VerifyTimeout,
		LockTTL:        cfg.Settlement.LockTTL,
		StaleAfter:     cfg.Settlement.StaleAfter,
		DashboardURL:   cfg.App.DashboardURL,
		Logger:         log,
	})
	initService := appsettlement.NewInitializationService(appsettlement.InitializationServiceConfig{
		Intents:      intentRepo,
		Gateway:      paystack,
		Cooperatives: cooperativeRepo,
		Accounts:     accountRepo,
		Hasher:       auth.NewBcryptHasher(0),
		References:   appsettlement.NewULIDReferences(),
		FeePolicy:    &feePolicy,
		Fees: appsettlement.FeeSchedule{
			CooperativeRegistration: coopFee,
			MemberRegistration:      memberFee,
		},
		CallbackURL: cfg.Paystack.CallbackURL,
		Logger:      log,
	})
	allocationService := appallocation.NewService(appallocation.ServiceConfig{
		Repository:   allocationRepo,
		Transactions: transactionRepo,
		CacheTTL:     cfg.Allocation.CacheTTL,
		Logger:       log,
	})
	if err := allocationService.Seed(ctx, cfg.Allocation.Shares()); err != nil {
		log.Fatal("Failed to seed allocation configuration", zap.Error(err))
	}

	// Stale-claim sweeper
	var sweeper *scheduler.Sweeper
	if cfg.Settlement.SweepInterval > 0 {
		sweepCfg := scheduler.DefaultSweeperConfig()
		sweepCfg.Interval = cfg.Settlement.SweepInterval
		sweepCfg.StaleAfter = cfg.Settlement.StaleAfter
		sweepCfg.BatchSize = cfg.Settlement.SweepBatchSize
		if cfg.Settlement.VerifyTimeout > 0 {
			sweepCfg.JobTimeout = 2 * cfg.Settlement.VerifyTimeout
		}
		sweeper, err = scheduler.NewSweeper(sweepCfg, intentRepo, func(ctx context.Context, reference string) error {
			_, err := settlementService.Reconcile(ctx, reference)
			return err
		}, log.Named("sweeper"))
		if err != nil {
			log.Fatal("Failed to create settlement sweeper", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start settlement sweeper", zap.Error(err))
		}
	} else {
		log.Info("Settlement sweeper disabled")
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		CORS: func() middleware.CORSConfig {
			c := middleware.DefaultCORSConfig()
			if len(cfg.HTTP.CORSAllowOrigins) > 0 {
				c.AllowOrigins = cfg.HTTP.CORSAllowOrigins
			}
			return c
		}(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        cfg.Telemetry.Enabled,
		Profiling:      cfg.Telemetry.Profiling.Enabled,
		Meter:          meter,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	var initLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		initLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if pinger, ok := lock.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}

	router.Register(engine, router.Handlers{
		Payment: handler.NewPaymentHandler(settlementService, initService, handler.RedirectURLs{
			Success: cfg.HTTP.SuccessURL,
			Failure: cfg.HTTP.FailureURL,
			Pending: cfg.HTTP.PendingURL,
		}),
		Webhook:   handler.NewWebhookHandler(paystack, settlementService),
		Admin:     handler.NewAdminHandler(allocationService, settlementService, notificationLogRepo),
		Dashboard: handler.NewDashboardHandler(hub),
		Health:    handler.NewHealthHandler(telemetry.Version, checks),
	}, router.Security{
		Authenticator: auth.NewJWTService(cfg.JWT),
		InitLimiter:   initLimiter,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping settlement sweeper", zap.Error(err))
		}
	}
	if initLimiter != nil {
		initLimiter.Close()
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	hub.Close()
	if err := lock.Close(); err != nil {
		log.Error("Error closing settlement lock", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited")
	_ = log.Sync()
	_ = loggerProvider.Shutdown(shutdownCtx)
}

// runMigrations applies the embedded migrations over a dedicated connection.
// Closing the migrator closes its driver, so it must not share the pool.
func runMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
