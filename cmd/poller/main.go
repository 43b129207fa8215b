package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richardliu001/celebrity-wallet/internal/config"
	"github.com/richardliu001/celebrity-wallet/internal/logger"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

// relay publishes one batch of unprocessed outbox events in id order. An
// event is marked processed only after Kafka accepted it, so a crash between
// the two resends it.
func relay(ctx context.Context, r repo.OutboxStore, log *zap.SugaredLogger) {
	events, err := r.PollOutbox(ctx, batchSize)
	if err != nil {
		log.Errorw("poll outbox", "error", err)
		return
	}
	for _, evt := range events {
		if err := r.PublishEvent(ctx, evt); err != nil {
			log.Errorw("publish event", "id", evt.ID, "type", evt.EventType, "error", err)
			// keep order: later events wait for this one
			return
		}
		if err := r.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			log.Errorw("mark processed", "id", evt.ID, "error", err)
			return
		}
		log.Debugw("event sent", "id", evt.ID, "type", evt.EventType)
	}
}

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	// the poller never touches the balance cache
	r := repo.NewRepository(gdb, nil, kw, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	log.Info("wallet-poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info("wallet-poller stopping")
			return
		case <-ticker.C:
			relay(ctx, r, log)
		}
	}
}
