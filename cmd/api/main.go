package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"souq-orders/internal/config"
	"souq-orders/internal/db"
	"souq-orders/internal/httpserver"
	"souq-orders/internal/notify"
	"souq-orders/internal/repository/catalog"
	notificationrepo "souq-orders/internal/repository/notification"
	orderrepo "souq-orders/internal/repository/order"
	"souq-orders/internal/repository/wilaya"
	notificationsvc "souq-orders/internal/service/notification"
	ordersvc "souq-orders/internal/service/order"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	config.LoadDotEnv(logger)
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.PoolOptions())
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	checks := map[string]httpserver.Check{"db": dbpool.Ping}

	var wilayas wilaya.Repository = wilaya.NewPostgres(dbpool, logger)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Printf("redis %s unreachable, wilaya cache falls back to db: %v", cfg.RedisAddr, err)
		}
		cancel()
		wilayas = wilaya.NewCached(wilayas, rdb, cfg.WilayaCacheTTL, logger)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	hub := notify.NewHub(logger, originChecker(cfg.AllowedOrigins))
	notifiers := notify.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := notify.NewPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Printf("close kafka publisher: %v", err)
			}
		}()
		notifiers = append(notifiers, publisher)
	}

	orderService := ordersvc.New(
		orderrepo.NewPostgres(dbpool, logger),
		catalog.NewPostgres(dbpool, logger),
		wilayas,
		notifiers,
		logger,
		ordersvc.Options{Tolerance: cfg.PricingTolerance, NotifyTimeout: cfg.NotifyTimeout},
	)
	notificationService := notificationsvc.New(notificationrepo.NewPostgres(dbpool, logger))

	srv, err := httpserver.New(cfg.HTTPAddr, logger, checks, httpserver.Deps{
		Orders:        orderService,
		Notifications: notificationService,
		Hub:           http.HandlerFunc(hub.ServeWS),
	}, httpserver.Options{
		DevMode:        cfg.DevMode,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminKeyHash:   cfg.AdminKeyHash,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}
	if cfg.AdminKeyHash == "" {
		logger.Printf("ADMIN_KEY_HASH not set, admin routes are open")
	}

	if err := srv.Run(ctx, cfg.ShutdownTimeout); err != nil {
		logger.Printf("server error: %v", err)
	}
}

// originChecker mirrors the CORS allow-list for websocket upgrades.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
