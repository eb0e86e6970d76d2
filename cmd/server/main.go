package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruenthai-pos/api/internal/cache"
	"github.com/ruenthai-pos/api/internal/config"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/jobs"
	"github.com/ruenthai-pos/api/internal/ledger"
	"github.com/ruenthai-pos/api/internal/promptpay"
	"github.com/ruenthai-pos/api/internal/router"
	"github.com/ruenthai-pos/api/internal/service"
	"github.com/ruenthai-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	// WebSocket hub for kitchen display updates
	hub := ws.NewHub()
	go hub.Run()

	// PromptPay is optional; without a payee ID checkout bills simply omit
	// the QR payload.
	var payBuilder *promptpay.Builder
	if cfg.PromptPayID != "" {
		payBuilder, err = promptpay.NewBuilder(cfg.PromptPayID)
		if err != nil {
			log.Fatalf("Invalid PROMPTPAY_ID: %v", err)
		}
	}

	// Dashboard cache: Redis when configured, otherwise compute every request.
	var dashCache cache.DashboardCache = cache.NoopDashboardCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("ERROR: redis unavailable, dashboard caching disabled: %v", err)
		} else {
			log.Println("Connected to redis")
			dashCache = redisCache
			defer redisCache.Close()
		}
	}

	archiveSvc := service.NewArchiveService(queries, pool, func(db database.DBTX) service.ArchiveStore {
		return database.New(db)
	})

	// Ledger export: Google Sheets when configured. Without it there is no
	// syncer at all, history rows stay unsynced, and the manual sync endpoint
	// rejects, so a later-configured sheet picks up the whole backlog.
	var syncSvc *ledger.SyncService
	if cfg.SheetsCredentialsFile != "" && cfg.SheetsSpreadsheetID != "" {
		sheets, err := ledger.NewGoogleSheets(ctx, cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID)
		if err != nil {
			log.Fatalf("Unable to init Google Sheets ledger: %v", err)
		}
		log.Println("Google Sheets ledger configured")
		syncSvc = ledger.NewSyncService(queries, sheets)
	}

	var jobSyncer jobs.LedgerSyncer
	if syncSvc != nil {
		jobSyncer = syncSvc
	}
	scheduler, err := jobs.NewScheduler(archiveSvc, jobSyncer)
	if err != nil {
		log.Fatalf("Unable to create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := router.New(cfg, queries, pool, hub, dashCache, payBuilder, archiveSvc, syncSvc)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
