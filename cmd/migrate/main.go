package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func main() {
	var (
		dir     = flag.String("dir", "", "Migrations directory (default MIGRATIONS_DIR)")
		down    = flag.Bool("down", false, "Roll back every migration")
		to      = flag.Uint("to", 0, "Migrate to this version instead of the latest")
		seed    = flag.Bool("seed", false, "Also apply demo seed migrations")
		bunSchema = flag.Bool("bun-schema", false, "Create tables from the bun models instead of SQL files (local development)")
	)
	flag.Parse()

	log := logger.NewWithWriter(os.Stdout)
	_ = godotenv.Load()
	cfg := config.Load()
	if *dir != "" {
		cfg.Database.MigrationsDir = *dir
	}
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	if *bunSchema {
		if err := (&ledger.DB{Bun: bunDB}).CreateSchema(context.Background()); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Schema creation failed: %v", err))
		}
		log.Info("MIGRATE", "Ledger tables created from models")
		return
	}

	runner := migrations.NewRunner(bunDB, migrations.Options{Dir: cfg.Database.MigrationsDir, SeedData: *seed}, log)
	defer runner.Close()

	switch {
	case *down:
		err = runner.Down()
	case *to > 0:
		err = runner.To(*to)
	default:
		err = runner.Run()
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "Done")
}
