package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"scangate/internal/config"
	"scangate/internal/feedback"
	"scangate/internal/ingest"
	"scangate/internal/logger"
	"scangate/internal/queue"
	"scangate/internal/store"
)

// Worker consumes outcome messages and drives the operator tone device.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "scangate:outcomes")
	}

	emitter := &feedback.LogEmitter{Log: log}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("feedback worker started, waiting for outcomes")
	for msg := range messages {
		if msg.Type != "outcome" {
			continue
		}

		var out ingest.Outcome
		if err := json.Unmarshal(msg.Body, &out); err != nil {
			log.Warn("bad outcome payload", zap.Error(err))
			continue
		}

		sig := feedback.SignalFor(out.Status)
		if sig == feedback.None {
			continue
		}

		if err := emitter.Emit(ctx, sig); err != nil {
			log.Warn("emit failed", zap.String("outcome_id", out.ID), zap.Error(err))
		}
	}

	log.Info("feedback worker stopped")
}
