package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zenithlabs/zenith-api/internal/config"
	"github.com/zenithlabs/zenith-api/internal/database"
	"github.com/zenithlabs/zenith-api/internal/logger"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/services/ai"
	"github.com/zenithlabs/zenith-api/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
	)

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

	userRepo := database.NewUserRepository(db)
	assistantRepo := database.NewAssistantRepository(db)
	threadRepo := database.NewThreadRepository(db)
	briefRepo := database.NewBriefRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	aiClient := ai.NewClient(cfg.BackboardAPIKey, cfg.BackboardBaseURL, cfg.AIModel, zapLogger)
	sessions := ai.NewSessionCache(aiClient, assistantRepo, threadRepo, briefRepo, zapLogger,
		ai.WithCallLimits(int64(cfg.AICallPoolSize), cfg.AICallTimeout),
		ai.WithBriefTTL(cfg.BriefTTL),
	)

	refresher := workers.NewBriefRefresher(userRepo, sessions, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				if err := refresher.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("job_processing_failed",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received")
	cancel()
	zapLogger.Info("worker_stopped")
}
