package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/zenithlabs/zenith-api/internal/config"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/handlers"
	"github.com/zenithlabs/zenith-api/internal/logger"
	"github.com/zenithlabs/zenith-api/internal/middleware"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/services/ai"
	"github.com/zenithlabs/zenith-api/internal/services/auth"
	"github.com/zenithlabs/zenith-api/internal/services/rules"
	"github.com/zenithlabs/zenith-api/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "zenith-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis for rate limiting
	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ. Retry with backoff to ride out broker startup delays.
	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	userRepo := database.NewUserRepository(db)
	transactionRepo := database.NewTransactionRepository(db)
	ledgerStore := database.NewLedgerStore(db)
	stressLogRepo := database.NewStressLogRepository(db)
	assistantRepo := database.NewAssistantRepository(db)
	threadRepo := database.NewThreadRepository(db)
	briefRepo := database.NewBriefRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Services
	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.DefaultTokenTTL)
	engine := rules.NewEngine(ledgerStore, zapLogger)
	aiClient := ai.NewClient(cfg.BackboardAPIKey, cfg.BackboardBaseURL, cfg.AIModel, zapLogger)
	sessions := ai.NewSessionCache(aiClient, assistantRepo, threadRepo, briefRepo, zapLogger,
		ai.WithCallLimits(int64(cfg.AICallPoolSize), cfg.AICallTimeout),
		ai.WithBriefTTL(cfg.BriefTTL),
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, tokens, zapLogger)
	surveyHandler := handlers.NewSurveyHandler(userRepo, jobQueue, zapLogger)
	walletHandler := handlers.NewWalletHandler(userRepo, transactionRepo, engine, zapLogger)
	stressHandler := handlers.NewStressHandler(userRepo, stressLogRepo, zapLogger)
	chatHandler := handlers.NewChatHandler(userRepo, sessions, jobQueue, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue, redisClient)

	// Router and middleware. gorilla/mux runs middleware in registration
	// order, so the outermost concerns go first.
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("zenith-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())

	rateLimitReloader := middleware.NewRateLimitReloader(redisClient.Client(), ratelimitConfigRepo, "5-S", zapLogger, 1*time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}
	rateLimitMW := rateLimitReloader.Middleware()

	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))

	authMW := middleware.Auth(userRepo, tokens, zapLogger)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", healthChecker.VersionCheck).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"), zapLogger)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Public auth routes, rate limited against credential stuffing
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	publicAuthRouter := authRouter.PathPrefix("").Subrouter()
	publicAuthRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(publicAuthRouter)

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	authHandler.RegisterAuthenticatedRoutes(protectedAuthRouter)

	surveyRouter := apiRouter.PathPrefix("/survey").Subrouter()
	surveyRouter.Use(authMW)
	surveyRouter.Use(rateLimitMW)
	surveyHandler.RegisterRoutes(surveyRouter)

	walletRouter := apiRouter.PathPrefix("/wallet").Subrouter()
	walletRouter.Use(authMW)
	walletRouter.Use(rateLimitMW)
	walletHandler.RegisterRoutes(walletRouter)

	stressRouter := apiRouter.PathPrefix("/stress").Subrouter()
	stressRouter.Use(authMW)
	stressRouter.Use(rateLimitMW)
	stressHandler.RegisterRoutes(stressRouter)

	aiRouter := apiRouter.PathPrefix("/ai").Subrouter()
	aiRouter.Use(authMW)
	aiRouter.Use(rateLimitMW)
	chatHandler.RegisterRoutes(aiRouter)

	// Preflight requests get a bare 204; the CORS middleware has already
	// set the headers by the time this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   90 * time.Second, // must outlast the AI call timeout
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Hot-reload loops and DLQ garbage collection
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(reloadCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff. The broker often
// comes up after the API in containerized deployments.
func connectQueue(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
