package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appattendance "github.com/mealfee/backend/internal/application/attendance"
	appbilling "github.com/mealfee/backend/internal/application/billing"
	appschool "github.com/mealfee/backend/internal/application/school"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/mealfee/backend/internal/infrastructure/cache"
	"github.com/mealfee/backend/internal/infrastructure/config"
	"github.com/mealfee/backend/internal/infrastructure/gateway"
	"github.com/mealfee/backend/internal/infrastructure/logger"
	"github.com/mealfee/backend/internal/infrastructure/persistence"
	"github.com/mealfee/backend/internal/interfaces/http/handler"
	"github.com/mealfee/backend/internal/interfaces/http/middleware"
	"github.com/mealfee/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer log.Sync()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	idemStore := newIdempotencyStore(cfg, log)
	defer idemStore.Close()

	paymentGateway := newPaymentGateway(cfg, log)

	settingRepo := persistence.NewGormPaymentSettingRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	leaveRepo := persistence.NewGormLeaveRecordRepository(db.DB)
	yearRepo := persistence.NewGormAcademicYearRepository(db.DB)

	settingSvc := appbilling.NewPaymentSettingService(appbilling.PaymentSettingServiceConfig{
		SettingRepo: settingRepo,
		InvoiceRepo: invoiceRepo,
		Logger:      log,
	})
	invoiceSvc := appbilling.NewInvoiceService(appbilling.InvoiceServiceConfig{
		InvoiceRepo: invoiceRepo,
		SettingSvc:  settingSvc,
		LeaveRepo:   leaveRepo,
		Logger:      log,
	})
	paymentSvc := appbilling.NewPaymentService(appbilling.PaymentServiceConfig{
		InvoiceRepo: invoiceRepo,
		Gateway:     paymentGateway,
		Logger:      log,
	})
	callbackSvc := appbilling.NewPaymentCallbackService(appbilling.PaymentCallbackServiceConfig{
		InvoiceRepo:      invoiceRepo,
		Gateway:          paymentGateway,
		IdempotencyStore: idemStore,
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		},
		Logger: log,
	})
	reportSvc := appbilling.NewReportService(appbilling.ReportServiceConfig{
		InvoiceRepo: invoiceRepo,
		Logger:      log,
	})
	leaveSvc := appattendance.NewLeaveService(appattendance.LeaveServiceConfig{
		LeaveRepo: leaveRepo,
		Logger:    log,
	})
	yearSvc := appschool.NewAcademicYearService(appschool.AcademicYearServiceConfig{
		YearRepo:   yearRepo,
		SettingRef: settingRepo,
		Logger:     log,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cfg.HTTP),
	)

	handler.NewSystemHandler(db).RegisterRoutes(engine)

	router.NewRouter(engine).
		Register(handler.NewAcademicYearHandler(yearSvc)).
		Register(handler.NewPaymentSettingHandler(settingSvc)).
		Register(handler.NewLeaveHandler(leaveSvc)).
		Register(handler.NewInvoiceHandler(invoiceSvc)).
		Register(handler.NewPaymentHandler(paymentSvc)).
		Register(handler.NewPaymentCallbackHandler(callbackSvc)).
		Register(handler.NewReportHandler(reportSvc)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Server listening", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// newIdempotencyStore prefers Redis when configured so webhook redeliveries
// are deduplicated across instances; otherwise the in-memory store serves a
// single instance.
func newIdempotencyStore(cfg *config.Config, log *zap.Logger) shared.IdempotencyStore {
	if cfg.Redis.Host == "" {
		log.Info("Using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore()
	}
	store, err := cache.NewRedisIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		return cache.NewInMemoryIdempotencyStore()
	}
	log.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
	return store
}

// newPaymentGateway builds the configured gateway adapter. Without a base
// URL the payment-link endpoints report GATEWAY_ERROR; everything else
// still works.
func newPaymentGateway(cfg *config.Config, log *zap.Logger) billing.PaymentGateway {
	if cfg.Gateway.BaseURL == "" {
		log.Warn("No payment gateway configured, payment links disabled")
		return nil
	}
	adapter, err := gateway.NewLinkPayAdapter(gateway.NewLinkPayConfig(cfg.Gateway))
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}
	log.Info("Payment gateway configured", zap.String("gateway", adapter.Name()))
	return adapter
}
