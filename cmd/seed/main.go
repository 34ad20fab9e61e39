package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"souq-orders/internal/config"
	"souq-orders/internal/db"
	"souq-orders/internal/seed"
)

func main() {
	at := flag.String("at", "", "RFC3339 reference time for the demo discount windows (default now)")
	flag.Parse()

	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	config.LoadDotEnv(logger)
	cfg := config.FromEnv()

	now := time.Now().UTC()
	if *at != "" {
		parsed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			logger.Fatalf("parse -at: %v", err)
		}
		now = parsed.UTC()
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.PoolOptions())
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	sum, err := seed.Apply(ctx, pool, now)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}
	logger.Printf("seed applied wilayas=%d products=%d variants=%d discounts_from=%s", sum.Wilayas, sum.Products, sum.Variants, now.Add(-24*time.Hour).Format(time.RFC3339))
}
