package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/greygj/Calendrax1.3-sub000/libs/config"
	"github.com/greygj/Calendrax1.3-sub000/libs/db"
	"github.com/greygj/Calendrax1.3-sub000/libs/httpx"
	"github.com/greygj/Calendrax1.3-sub000/libs/kafkax"
	otelx "github.com/greygj/Calendrax1.3-sub000/libs/otelx"
	"github.com/greygj/Calendrax1.3-sub000/libs/runtime"
	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/consumer"
	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/handlers"
	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/inbox"
	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/notify"
	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/storage"
)

// Lifecycle topics consumed by default, one consumer group member per topic.
const defaultTopics = "scheduling.appointment.pending.v1,scheduling.appointment.confirmed.v1,scheduling.appointment.declined.v1,scheduling.appointment.cancelled.v1"

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.PoolOptions{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 5)),
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

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	handle := func(ctx context.Context, msg kafka.Message) error {
		var evt notify.AppointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid lifecycle payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID == "" || evt.Status == "" {
			logger.Error("missing lifecycle fields", "topic", msg.Topic)
			return nil
		}

		n, ok := notify.Build(evt)
		if !ok {
			logger.Info("no recipient for event", "appointment_id", evt.AppointmentID, "status", evt.Status)
			return nil
		}
		if err := notificationsRepo.Insert(ctx, n); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}
		logger.Info("notification stored", "appointment_id", evt.AppointmentID, "status", evt.Status, "user_id", n.UserID)
		return nil
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	for _, topic := range strings.Split(config.String("KAFKA_CONSUME_TOPICS", defaultTopics), ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handle)
		go eventConsumer.Run(ctx)
	}

	notificationsHandler := handlers.NewNotificationsHandler(notificationsRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/notifications", notificationsHandler.List)
	mux.HandleFunc("/api/v1/notifications/read", notificationsHandler.MarkRead)
	mux.HandleFunc("/api/v1/notifications/read-all", notificationsHandler.MarkAllRead)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicyFromEnv()),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
