package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tealeg/xlsx"
	"souq-orders/internal/config"
	"souq-orders/internal/db"
	"souq-orders/internal/importer"
	"souq-orders/internal/repository/wilaya"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a wilaya delivery fee table (.csv or .xlsx) with name and delivery_fee columns")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	config.LoadDotEnv(logger)
	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.PoolOptions())
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	var repo wilaya.Repository = wilaya.NewPostgres(pool, logger)
	if cfg.RedisAddr != "" {
		// upserts invalidate the cached wilaya list the API reads
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		repo = wilaya.NewCached(repo, rdb, cfg.WilayaCacheTTL, logger)
	}

	var imp *importer.Importer
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		book, err := xlsx.OpenFile(filePath)
		if err != nil {
			logger.Fatalf("open workbook: %v", err)
		}
		if imp, err = importer.NewXLSXImporter(book, repo); err != nil {
			logger.Fatalf("read workbook: %v", err)
		}
	} else {
		f, err := os.Open(filePath)
		if err != nil {
			logger.Fatalf("open file: %v", err)
		}
		defer f.Close()
		imp = importer.NewCSVImporter(f, repo)
	}

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d rows: %v", count, err)
	}

	fmt.Printf("Imported %d wilayas in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
