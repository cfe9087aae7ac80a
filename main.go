package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/cache"
	intconfig "github.com/muhammed-shimlal/Kallayi-car-spa/internal/config"
	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	router "github.com/muhammed-shimlal/Kallayi-car-spa/internal/http"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/http/handlers"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/repositories"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/services"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/tasks"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.InitLogger(env.IsProduction(), env.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	hours, err := env.BusinessHours()
	if err != nil {
		logger.Fatal("invalid business hours", zap.Error(err))
	}
	loyaltyRate, err := env.LoyaltyRate()
	if err != nil {
		logger.Fatal("invalid loyalty rate", zap.Error(err))
	}

	db, err := intconfig.ConnectDB(env.DatabaseDSN)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer intconfig.CloseDB()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	err = intdb.EnsureSchema(schemaCtx, db)
	cancelSchema()
	if err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	var (
		bookingRepo = repositories.BookingRepository{DB: db}
		packageRepo = repositories.PackageRepository{DB: db}
		techRepo    = repositories.TechnicianRepository{DB: db}
		payrollRepo = repositories.PayrollRepository{DB: db}
		clock       = domain.Clock(time.Now)
	)

	loyalty := services.LoyaltyService{
		Bookings: bookingRepo,
		Packages: packageRepo,
		Ledger:   repositories.LoyaltyRepository{DB: db},
		Rate:     loyaltyRate,
		Clock:    clock,
	}

	var (
		slotCache services.AvailabilityCache
		trigger   services.LoyaltyTrigger = services.InlineLoyaltyTrigger{Service: loyalty}
		events    services.EventPublisher
		workerSrv *asynq.Server
	)
	if env.RedisEnabled() {
		rc, err := intconfig.ConnectCache(env)
		if err != nil {
			logger.Warn("availability cache disabled", zap.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			slotCache = cache.NewAvailabilityCache(rc, env.AvailabilityCacheTTL)
		}

		queueOpt := intconfig.QueueRedisOpt(env)
		client := asynq.NewClient(queueOpt)
		defer func() { _ = client.Close() }()
		trigger = tasks.QueueLoyaltyTrigger{Client: client}
		events = tasks.QueueEventPublisher{Client: client}

		workerSrv = worker.NewServer(queueOpt, env.WorkerConcurrency)
		if err := workerSrv.Start(worker.NewMux(loyalty)); err != nil {
			logger.Fatal("start worker", zap.Error(err))
		}
	} else {
		logger.Info("REDIS_ADDR not set: no availability cache, loyalty awarded inline, booking events dropped")
	}

	api := handlers.Handler{
		Bookings: services.BookingService{
			Bookings:      bookingRepo,
			Packages:      packageRepo,
			Pool:          techRepo,
			Cache:         slotCache,
			Events:        events,
			Clock:         clock,
			Location:      hours.Location,
			SkillMatching: env.SkillMatching,
		},
		Status: services.FulfillmentService{
			Bookings:  bookingRepo,
			Packages:  packageRepo,
			Invoices:  repositories.InvoiceRepository{DB: db},
			Inventory: repositories.InventoryRepository{DB: db},
			Payroll:   payrollRepo,
			Loyalty:   trigger,
			Audit:     repositories.FulfillmentRepository{DB: db},
			Cache:     slotCache,
			Events:    events,
			Clock:     clock,
			Location:  hours.Location,
		},
		Slots: services.AvailabilityService{
			Bookings:      bookingRepo,
			Packages:      packageRepo,
			Pool:          techRepo,
			Cache:         slotCache,
			Hours:         hours,
			SkillMatching: env.SkillMatching,
		},
		Packages:    packageRepo,
		Technicians: techRepo,
		Payroll:     payrollRepo,
		Location:    hours.Location,
	}

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, api),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", env.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if workerSrv != nil {
		workerSrv.Shutdown()
	}

	logger.Info("server stopped")
}
