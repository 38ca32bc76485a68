package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	// Instrumentation
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/zingsocial/social-core/config"
	httpadapter "github.com/zingsocial/social-core/internal/adapters/primary/http"
	"github.com/zingsocial/social-core/internal/adapters/secondary/blobstore"
	"github.com/zingsocial/social-core/internal/adapters/secondary/eventbroker"
	"github.com/zingsocial/social-core/internal/adapters/secondary/realtime"
	"github.com/zingsocial/social-core/internal/adapters/secondary/repository"
	"github.com/zingsocial/social-core/internal/adapters/secondary/security"
	"github.com/zingsocial/social-core/internal/core/services"
	"github.com/zingsocial/social-core/internal/migrate"
)

func main() {
	// 1. Config & Logger
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)
	slog.Info("🚀 Starting Social Core", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: Postgres (Driven Adapter)
	poolCfg, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Invalid DB_URL", "error", err)
		os.Exit(1)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Error("Unable to create pg pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("Unable to connect to Postgres", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Postgres")

	// Migrations (idempotent)
	sqlDB := stdlib.OpenDBFromPool(pool)
	if err := migrate.Up(ctx, sqlDB); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}
	_ = sqlDB.Close()
	slog.Info("✅ Schema up to date")

	db := repository.New(pool)

	// 4. Infrastructure: Redis (store de présence éphémère)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		slog.Warn("Redis instrumentation failed", "error", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("✅ Connected to Redis")

	// 5. Infrastructure: NATS (events + feed de connectivité)
	nc, err := nats.Connect(cfg.NatsUrl,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("✅ Connected to NATS")

	// 6. Infrastructure: Object Storage
	blobs, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		slog.Error("Unable to init object storage", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Object Storage", "bucket", cfg.S3Bucket)

	// 7. Sécurité : vérification des tokens (émission externe)
	publicKeyPEM, err := os.ReadFile(cfg.RSAPublicKeyPath)
	if err != nil {
		slog.Error("Unable to read RSA public key", "path", cfg.RSAPublicKeyPath, "error", err)
		os.Exit(1)
	}
	verifier, err := security.NewJWTVerifier(publicKeyPEM)
	if err != nil {
		slog.Error("Invalid RSA public key", "error", err)
		os.Exit(1)
	}

	// 8. Wiring du Core
	userRepo := repository.NewUserRepo(db)
	graphRepo := repository.NewGraphRepo(db)
	postRepo := repository.NewPostRepo(db)
	commentRepo := repository.NewCommentRepo(db)
	durablePresence := repository.NewPresenceRepo(db)
	ephemeralPresence := realtime.NewRedisPresence(rdb, cfg.PresenceTTL)
	publisher := eventbroker.NewNatsPublisher(nc)
	feed := eventbroker.NewNatsConnectivityFeed(nc)
	defer feed.Close()

	graphService := services.NewGraphService(graphRepo, publisher)
	postService := services.NewPostService(postRepo, commentRepo, userRepo, graphRepo, blobs, publisher)
	userService := services.NewUserService(userRepo, graphRepo, blobs)
	presenceService := services.NewPresenceService(ephemeralPresence, durablePresence)

	// 9. Tracker de présence : tâche process-scoped, une souscription au
	// feed pour toute la session, teardown explicite à l'arrêt.
	tracker := services.NewPresenceTracker(feed, ephemeralPresence, durablePresence, cfg.PresenceTTL/3)
	tracker.Start(ctx)

	// 10. Serveur HTTP (Driving Adapter)
	server := httpadapter.NewServer(graphService, postService, userService, presenceService, tracker, verifier)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(server.Router(), "social-core"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("📡 Social Core HTTP listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}

	// Les sessions trackées passent offline proprement avant de couper.
	tracker.Stop(shutdownCtx)
	slog.Info("👋 Server exited")
}

// --- Helpers ---

func initLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
