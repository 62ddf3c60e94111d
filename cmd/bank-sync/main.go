package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/notify"
	"ms-booking/internal/reconcile"
	"ms-booking/internal/reconcile/bankapi"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// bank-sync pulls the latest bank transactions once, reconciles them and
// prints the report. Operators run it when the webhook has been down.
func main() {
	timeout := flag.Duration("timeout", time.Minute, "Give up after this long")
	pageSize := flag.Int("page-size", 0, "Transactions to fetch (default BANK_SYNC_PAGE_SIZE)")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr)
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.Database.DSN == "" || cfg.Bank.APIKey == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN and BANK_API_KEY must be set")
	}
	if *pageSize > 0 {
		cfg.Bank.PageSize = *pageSize
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	var dispatchers notify.Multi
	if cfg.Notify.SheetWebhookURL != "" {
		dispatchers = append(dispatchers, notify.NewSheetExporter(cfg.Notify.SheetWebhookURL))
	}
	engine := reconcile.NewEngine(&ledger.DB{Bun: bunDB}, dispatchers, log)
	source := bankapi.NewClient(cfg.Bank.APIURL, cfg.Bank.APIKey, cfg.Bank.PageSize)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := engine.Sync(ctx, source)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	}
	if err != nil {
		log.Error("RECONCILE", fmt.Sprintf("sync finished with errors: %v", err))
		os.Exit(1)
	}
}
