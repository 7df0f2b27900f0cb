package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avershov/hrstream/libs/config"
	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/httpx"
	"github.com/avershov/hrstream/libs/kafkax"
	otelx "github.com/avershov/hrstream/libs/otel"
	"github.com/avershov/hrstream/libs/runtime"
	"github.com/avershov/hrstream/services/query-service/internal/compose"
	"github.com/avershov/hrstream/services/query-service/internal/consumer"
	"github.com/avershov/hrstream/services/query-service/internal/handlers"
	"github.com/avershov/hrstream/services/query-service/internal/processed"
	"github.com/avershov/hrstream/services/query-service/internal/projection"
	"github.com/avershov/hrstream/services/query-service/internal/timing"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "query-service")
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
	groupID := config.String("KAFKA_GROUP_ID", "query-service")
	backoff := config.Duration("CONSUMER_RETRY_BACKOFF", time.Second)

	personRepo := projection.NewPersonRepository(pool)
	employeeRepo := projection.NewEmployeeRepository(pool)
	badgeRepo := projection.NewBadgeRepository(pool)
	processedRepo := processed.NewRepository(pool)
	timings := timing.NewTracker(config.Int("TIMING_CAPACITY", timing.DefaultCapacity))

	consumers := []*consumer.Consumer{
		consumer.New(pool, processedRepo, timings, consumer.PersonApplier{Repo: personRepo}, logger, consumer.Config{
			Brokers: brokers, GroupID: groupID, Topic: "events.hr.person", Backoff: backoff,
		}),
		consumer.New(pool, processedRepo, timings, consumer.EmployeeApplier{Repo: employeeRepo}, logger, consumer.Config{
			Brokers: brokers, GroupID: groupID, Topic: "events.employment.employee", Backoff: backoff,
		}),
		consumer.New(pool, processedRepo, timings, consumer.BadgeApplier{Repo: badgeRepo}, logger, consumer.Config{
			Brokers: brokers, GroupID: groupID, Topic: "events.security.badge", Backoff: backoff,
		}),
	}
	for _, c := range consumers {
		go c.Run(ctx)
	}

	composer := compose.NewService(personRepo, employeeRepo, badgeRepo)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.New(composer, personRepo, employeeRepo, badgeRepo, processedRepo, timings).Register(mux)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(config.Duration("QUERY_TIMEOUT", 10*time.Second)),
		httpx.WithCORS(strings.Split(config.String("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")),
	}

	// Rate limiting is optional; the query surface runs fine without Redis.
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 300), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}

	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, "query")
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
