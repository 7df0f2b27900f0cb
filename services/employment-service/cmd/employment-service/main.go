package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avershov/hrstream/libs/config"
	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/httpx"
	"github.com/avershov/hrstream/libs/kafkax"
	otelx "github.com/avershov/hrstream/libs/otel"
	"github.com/avershov/hrstream/libs/outbox"
	"github.com/avershov/hrstream/libs/runtime"
	"github.com/avershov/hrstream/services/employment-service/internal/employees"
	"github.com/avershov/hrstream/services/employment-service/internal/handlers"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "employment-service")
	port, err := config.Port("PORT", "8082")
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
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "localhost:9092")
	outboxRepo := outbox.NewRepository(pool)

	writer := kafkax.NewWriter(kafkax.SplitBrokers(brokers), employees.Topic, config.Duration("KAFKA_SEND_TIMEOUT", 5*time.Second))
	defer writer.Close()

	relay := outbox.NewRelay(outboxRepo, writer, logger, outbox.RelayConfig{
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 100),
	})
	go relay.Run(ctx)

	employeeRepo := employees.NewRepository(pool)
	employeeSvc := employees.NewService(pool, employeeRepo, outboxRepo)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.New(employeeSvc, outboxRepo).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "employment")
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
