package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/greygj/Calendrax1.3-sub000/libs/config"
	"github.com/greygj/Calendrax1.3-sub000/libs/db"
	"github.com/greygj/Calendrax1.3-sub000/libs/httpx"
	"github.com/greygj/Calendrax1.3-sub000/libs/kafkax"
	otelx "github.com/greygj/Calendrax1.3-sub000/libs/otelx"
	"github.com/greygj/Calendrax1.3-sub000/libs/runtime"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/cache"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/directory"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/handlers"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/memstore"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/outbox"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/payments"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/storage"
)

// logDispatcher is the dev-mode lifecycle sink: events go to the log instead
// of the outbox.
type logDispatcher struct {
	logger *slog.Logger
}

func (d logDispatcher) Dispatch(_ context.Context, evt model.LifecycleEvent) {
	d.logger.Info("appointment lifecycle event",
		"appointment_id", evt.AppointmentID,
		"business_id", evt.BusinessID,
		"status", evt.Status,
	)
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
	}

	var (
		availStore engine.AvailabilityStore
		ledger     engine.Ledger
		catalog    handlers.CatalogAdmin
		dispatcher engine.Dispatcher
		readies    []runtime.ReadyCheck
	)

	dbURL := config.String("DATABASE_URL", "")
	if dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.PoolOptions{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		if err := storage.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}

		outboxRepo := outbox.NewRepository(pool)
		availStore = storage.NewAvailabilityRepository(pool)
		ledger = storage.NewBookingRepository(pool, outboxRepo)
		catalog = storage.NewCatalogRepository(pool)

		// Lifecycle events are committed by the ledger alongside each
		// mutation; the publisher relays them, so no engine dispatcher is
		// needed in durable mode.
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   config.String("KAFKA_BROKERS", ""),
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)

		readies = append(readies, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
			readies = append(readies, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	} else {
		// Dev mode: everything in memory, lifecycle events to the log.
		logger.Warn("DATABASE_URL not set; running with in-memory stores")
		availStore = memstore.NewAvailability()
		ledger = memstore.NewLedger()
		catalog = memstore.NewCatalog()
		dispatcher = logDispatcher{logger: logger}
	}

	if rdb != nil {
		availStore = cache.NewAvailabilityCache(availStore, rdb,
			config.Duration("AVAILABILITY_CACHE_TTL", cache.DefaultTTL), logger)
		readies = append(readies, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	eng := engine.New(engine.Config{
		Catalog:       catalog,
		Availability:  availStore,
		Ledger:        ledger,
		Dispatcher:    dispatcher,
		HorizonMonths: config.Int("BOOKING_HORIZON_MONTHS", engine.DefaultHorizonMonths),
		Logger:        logger,
	})

	var pay payments.Collaborator = payments.Disabled{}
	if key := config.String("STRIPE_API_KEY", ""); key != "" {
		pay = payments.NewStripe(key, logger)
	}

	dirProvider, err := directory.NewProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory provider init failed; continuing without it", "err", err)
		dirProvider = nil
	}

	bookingHandler := handlers.NewBookingHandler(eng, pay, dirProvider, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(eng, logger)
	calendarHandler := handlers.NewCalendarHandler(eng)
	catalogHandler := handlers.NewCatalogHandler(catalog, logger)

	mux := runtime.NewBaseMuxWithReady(readies...)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/calendar", calendarHandler.Month)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Book)
	mux.HandleFunc("/api/v1/availability", availabilityRouter(availabilityHandler))
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/status", bookingHandler.Status)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/businesses", businessRouter(catalogHandler))
	mux.HandleFunc("/api/v1/businesses/approve", catalogHandler.ApproveBusiness)
	mux.HandleFunc("/api/v1/services", catalogHandler.CreateService)
	mux.HandleFunc("/api/v1/staff", staffRouter(catalogHandler))

	middlewares := []httpx.Middleware{
		httpx.WithCORS(httpx.CORSPolicyFromEnv()),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(rateLimit, time.Minute).Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func availabilityRouter(h *handlers.AvailabilityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Get(w, r)
			return
		}
		h.Set(w, r)
	}
}

func businessRouter(h *handlers.CatalogHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Query().Get("business_id") != "" {
				h.GetBusiness(w, r)
				return
			}
			h.ListBusinesses(w, r)
			return
		}
		h.CreateBusiness(w, r)
	}
}

func staffRouter(h *handlers.CatalogHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.ListStaff(w, r)
			return
		}
		h.CreateStaff(w, r)
	}
}
