package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/richardliu001/celebrity-wallet/internal/config"
	"github.com/richardliu001/celebrity-wallet/internal/logger"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/richardliu001/celebrity-wallet/internal/service"
	httptransport "github.com/richardliu001/celebrity-wallet/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kw.Close()

	// 6. repo & migrations
	repository := repo.NewRepository(gdb, rdb, kw, log)
	if err := repository.Migrate(); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 7. side effects & services
	fx := service.Effects{
		Notifier: notify.NewDBNotifier(gdb),
		Auditor:  notify.NewDBAuditor(gdb),
		Mailer:   notify.NewLogMailer(log),
	}
	if cfg.Mail.Transport == "redis" {
		fx.Mailer = notify.NewRedisMailer(rdb, log)
	}
	svcs := service.NewServices(repository, fx, log)

	// 8. gin router
	router := httptransport.NewRouter(svcs, cfg.RateLimit, log)

	// 9. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("wallet-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
