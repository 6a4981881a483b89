package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cnstrctnetwork/cnstrct/internal/config"
	"github.com/cnstrctnetwork/cnstrct/internal/notification"
	"github.com/cnstrctnetwork/cnstrct/internal/notification/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Queue.URL == "" {
		slog.Error("AMQP_URL is required to run the notification worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	templates, err := notification.LoadTemplates(cfg.Email.TemplatesFile)
	if err != nil {
		slog.Error("failed to load email templates", "error", err)
		os.Exit(1)
	}

	sender := notification.NewService(templates, notification.NewResendSender(cfg.Email.ResendAPIKey), cfg.Email.From)

	var dedup queue.Dedup

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, deduplication degraded", "error", err)
		}

		dedup = queue.NewDeduper(rdb, cfg.Redis.DedupTTL)
	}

	consumer, err := queue.NewConsumer(cfg.Queue.URL, queue.DefaultQueue)
	if err != nil {
		slog.Error("failed to connect to queue", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	worker := queue.NewWorker(sender, dedup)

	slog.Info("starting notification worker", "queue", queue.DefaultQueue)

	if err := consumer.Run(ctx, worker.Handle); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
