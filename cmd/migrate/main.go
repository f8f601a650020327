// Package main applies the embedded database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ifrs9-engine/internal/config"
	"ifrs9-engine/internal/logging"
	"ifrs9-engine/internal/storage/migrations"
	pgstore "ifrs9-engine/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: search ./config, /etc/ifrs9)")
	postgresOnly := flag.Bool("postgres-only", false, "Apply only the PostgreSQL migrations")
	clickhouseOnly := flag.Bool("clickhouse-only", false, "Apply only the ClickHouse migrations")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging.Level)

	ctx := context.Background()

	if !*clickhouseOnly {
		if cfg.Storage.PostgresDSN == "" {
			fmt.Fprintln(os.Stderr, "Error: storage.postgres_dsn is not configured")
			os.Exit(1)
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to PostgreSQL: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying PostgreSQL migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("PostgreSQL migrations applied")
	}

	if !*postgresOnly {
		if cfg.Storage.ClickhouseDSN == "" {
			fmt.Fprintln(os.Stderr, "Error: storage.clickhouse_dsn is not configured")
			os.Exit(1)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error applying ClickHouse migrations: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		fmt.Println("ClickHouse migrations applied")
	}
}
