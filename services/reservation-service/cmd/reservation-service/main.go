package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/courtreserve/libs/config"
	"github.com/md-rashed-zaman/courtreserve/libs/db"
	"github.com/md-rashed-zaman/courtreserve/libs/httpx"
	"github.com/md-rashed-zaman/courtreserve/libs/kafkax"
	otelx "github.com/md-rashed-zaman/courtreserve/libs/otel"
	"github.com/md-rashed-zaman/courtreserve/libs/runtime"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/flash"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/handlers"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/outbox"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/session"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	service := config.String("SERVICE_NAME", "reservation-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(healthcheck(logger, "127.0.0.1:"+grpcPort, service))
	}

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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	outboxRepo := outbox.NewRepository()
	reservations := storage.NewReservationRepository(pool, outboxRepo)
	users := storage.NewUserRepository(pool)
	auditRepo := storage.NewAuditRepository(pool)
	seedAdmin(ctx, logger, users)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:     brokers,
		PollEvery:   config.Duration("OUTBOX_POLL_SECONDS", 2, time.Second),
		BatchSize:   config.Int("OUTBOX_BATCH_SIZE", 50),
		MaxAttempts: config.Int("OUTBOX_MAX_ATTEMPTS", 10),
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	secureCookies := config.Bool("COOKIE_SECURE", false)
	flashStore, loginLimiter, rdb := buildRedisBacked(ctx, logger)
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if _, err := startGRPCServer(ctx, logger, ":"+grpcPort, service, checks); err != nil {
		logger.Error("grpc server failed to start", "err", err)
		panic(err)
	}

	h, err := handlers.New(handlers.Deps{
		Booking:      booking.NewService(reservations, logger),
		Week:         reservations,
		Users:        users,
		Audit:        auditRepo,
		Sessions:     session.NewManager(sessionSecret(logger), config.Duration("SESSION_TTL_HOURS", 12, time.Hour), secureCookies),
		Flash:        flash.New(flashStore, logger, secureCookies),
		Logger:       logger,
		LoginLimiter: loginLimiter,
	})
	if err != nil {
		logger.Error("handler setup failed", "err", err)
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handler := httpx.Chain(h.Routes(mux),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/readyz"),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			PathPrefix:     "/api/",
			AllowedOrigins: httpx.SplitOrigins(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 15, time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "reservation")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}

// buildRedisBacked returns the flash store and login limiter, on Redis when
// REDIS_ADDR is set and in memory otherwise.
func buildRedisBacked(ctx context.Context, logger *slog.Logger) (flash.Store, httpx.Middleware, *redis.Client) {
	limit := config.Int("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	trustXFF := config.Bool("TRUST_FORWARDED_FOR", false)
	flashTTL := 10 * time.Minute

	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		logger.Warn("redis not configured, flash messages and login limits are per process")
		return flash.NewMemoryStore(flashTTL), loginLimit(httpx.NewMemoryLimiter(limit, time.Minute), trustXFF, logger), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed at startup", "addr", addr, "err", err)
	}
	limiter := httpx.NewRedisLimiter(rdb, limit, time.Minute, "rl:reservation")
	return flash.NewRedisStore(rdb, flashTTL), loginLimit(limiter, trustXFF, logger), rdb
}

// loginLimit guards POST /login. It fails open.
func loginLimit(l httpx.Limiter, trustForwardedFor bool, logger *slog.Logger) httpx.Middleware {
	return httpx.RateLimit(httpx.RateLimitPolicy{
		Limiter:           l,
		FailOpen:          true,
		TrustForwardedFor: trustForwardedFor,
	}, logger)
}

func sessionSecret(logger *slog.Logger) string {
	if secret := config.String("SESSION_SECRET", ""); secret != "" {
		return secret
	}
	var b [32]byte
	_, _ = rand.Read(b[:])
	logger.Warn("SESSION_SECRET not set, using a random secret; sessions end on restart")
	return hex.EncodeToString(b[:])
}

// seedAdmin creates the bootstrap administrator named by ADMIN_USERNAME when
// ADMIN_PASSWORD is set and the account does not exist yet.
func seedAdmin(ctx context.Context, logger *slog.Logger, users *storage.UserRepository) {
	username := config.String("ADMIN_USERNAME", "admin")
	password := config.String("ADMIN_PASSWORD", "")
	if password == "" {
		logger.Info("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("admin password hash failed", "err", err)
		return
	}
	created, err := users.EnsureUser(ctx, model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	})
	if err != nil {
		logger.Error("admin bootstrap failed", "err", err)
		return
	}
	if created {
		logger.Info("admin account created", "username", username)
	}
}
