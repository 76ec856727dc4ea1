package main // Entry point package

import (
	"context"   // shutdown and startup deadlines
	"errors"    // server-closed detection
	"net/http"  // http.ErrServerClosed
	"os"        // signal handling
	"os/signal" // graceful shutdown on SIGINT/SIGTERM
	"syscall"   // SIGTERM
	"time"      // timeouts

	"github.com/labstack/echo/v4"                             // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"           // recover and request logging
	"github.com/prometheus/client_golang/prometheus"          // default registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // /metrics handler

	"github.com/iliyamo/slot-reservation/internal/config"     // environment configuration
	"github.com/iliyamo/slot-reservation/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/slot-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/slot-reservation/internal/logger"     // levelled logging
	"github.com/iliyamo/slot-reservation/internal/metrics"    // Prometheus collectors
	"github.com/iliyamo/slot-reservation/internal/middleware" // cache, rate limit, metrics
	"github.com/iliyamo/slot-reservation/internal/payment"    // gateway selection
	"github.com/iliyamo/slot-reservation/internal/queue"      // reservation events
	"github.com/iliyamo/slot-reservation/internal/repository" // data access
	"github.com/iliyamo/slot-reservation/internal/router"     // route registration
	"github.com/iliyamo/slot-reservation/internal/service"    // booking services
)

func main() {
	cfg := config.Load() // Load environment config
	log := logger.New("slot-reservation", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatal("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig()) // nil when Redis is unreachable
	if rdb == nil {
		log.Warn("redis unavailable: cache and rate limit off, pending intents kept in memory")
	} else {
		defer rdb.Close()
	}

	gateway, err := newGateway(cfg.Payment)
	if err != nil {
		log.Fatal("payment: %v", err)
	}
	log.Info("payment provider: %s", cfg.Payment.Provider)

	publisher := queue.NewPublisher(cfg.AMQPURL, log)
	defer publisher.Close()
	if cfg.ConsumerOn {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped: %v", err)
			}
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer, "slotres")

	// repositories
	tx := repository.NewTransactor(db)
	slots := repository.NewSlotRepo(db)
	carts := repository.NewCartRepo(db)
	reservations := repository.NewReservationRepo(db)
	invoices := repository.NewInvoiceRepo(db)
	venues := repository.NewVenueRepo(db)

	// services
	inv := service.NewInventoryService(slots, cfg.Location, log, m)
	cart := service.NewCartService(inv, slots, carts, log)
	checkout := service.NewCheckoutService(service.CheckoutDeps{
		Tx:           tx,
		Cart:         cart,
		Carts:        carts,
		Slots:        slots,
		Reservations: reservations,
		Payments:     repository.NewPaymentRepo(db),
		Invoices:     invoices,
		Intents:      repository.NewIntentStore(rdb, cfg.Booking.IntentTTL),
		Gateway:      gateway,
		Events:       publisher,
		Currency:     cfg.Payment.Currency,
		Location:     cfg.Location,
		Log:          log,
		Metrics:      m,
	})
	policy := service.CancellationPolicy{
		AfterBooking: cfg.Booking.CancelAfterBooking,
		BeforeSlot:   cfg.Booking.CancelBeforeSlot,
	}
	res := service.NewReservationService(tx, reservations, slots, publisher, policy, cfg.Location, log, m)
	venueSvc := service.NewVenueService(tx, venues, slots, reservations, cfg.Booking.HorizonDays, cfg.Location, log)
	invoiceSvc := service.NewInvoiceService(tx, reservations, invoices, cfg.Location, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger = log.Raw()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics(m))

	router.RegisterRoutes(e, handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewSessionRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewSlotHandler(inv), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, router.CustomerHandlers{
		Cart:         handler.NewCartHandler(cart),
		Checkout:     handler.NewCheckoutHandler(checkout),
		Reservations: handler.NewReservationHandler(res, invoiceSvc),
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterSupplier(e, handler.NewVenueHandler(venueSvc), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server: %v", err)
		}
	}()

	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("shutdown: %v", err)
	}
}

// newGateway picks the payment provider configured in PAYMENT_PROVIDER.
func newGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	if cfg.Provider == "sandbox" {
		return payment.NewSandbox(), nil
	}
	client, err := payment.NewOmiseClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	return payment.NewOmise(client, cfg.SourceType), nil
}
