// Package main runs the ECL pipeline for one as-of date.
// Executes: projection → PD interpolation → alignment → discounting →
// exposure → staging → aggregation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ifrs9-engine/internal/config"
	"ifrs9-engine/internal/fixtures"
	"ifrs9-engine/internal/logging"
	"ifrs9-engine/internal/orchestrator"
	chstore "ifrs9-engine/internal/storage/clickhouse"
	"ifrs9-engine/internal/storage/migrations"
	pgstore "ifrs9-engine/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: search ./config, /etc/ifrs9)")
	asOfFlag := flag.String("as-of", "", "Reporting date, YYYY-MM-DD (required)")
	useFixtures := flag.Bool("use-fixtures", false, "Run on in-memory stores with the demo portfolio")
	flag.Parse()

	if *asOfFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --as-of is required (YYYY-MM-DD)")
		os.Exit(1)
	}
	asOf, err := time.Parse("2006-01-02", *asOfFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --as-of %q: %v\n", *asOfFlag, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging.Level)

	// Cancel the run on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	var engine *orchestrator.Engine
	if *useFixtures {
		engine, err = buildFixtureEngine(ctx, cfg, asOf)
	} else {
		engine, err = buildDatabaseEngine(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := engine.Run(ctx, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pipeline run %d completed:\n", result.RunID)
	fmt.Printf("  Accounts: %d\n", result.AccountsLoaded)
	fmt.Printf("  Buckets: %d\n", result.BucketsProjected)
	fmt.Printf("  PD series: %d\n", result.PDSeriesBuilt)
	fmt.Printf("  Calc rows: %d\n", result.CalcRowsWritten)
	fmt.Printf("  Stages: %d\n", result.StagesDetermined)
	fmt.Printf("  Results: %d\n", result.ResultsWritten)
	if len(result.Errors) > 0 {
		fmt.Printf("  Skips: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func engineOptions(cfg *config.Config) (orchestrator.Options, error) {
	methodology, err := cfg.Engine.ParseMethodology()
	if err != nil {
		return orchestrator.Options{}, err
	}
	eadStrategy, err := cfg.Engine.ParseEADStrategy()
	if err != nil {
		return orchestrator.Options{}, err
	}
	pdMethod, err := cfg.Engine.ParsePDMethod()
	if err != nil {
		return orchestrator.Options{}, err
	}
	pdLevel, err := cfg.Engine.ParsePDLevel()
	if err != nil {
		return orchestrator.Options{}, err
	}
	return orchestrator.Options{
		Methodology:     methodology,
		UsesDiscounting: cfg.Engine.UsesDiscounting,
		EADStrategy:     eadStrategy,
		PDMethod:        pdMethod,
		PDLevel:         pdLevel,
		Concurrency:     cfg.Engine.Concurrency,
	}, nil
}

// buildFixtureEngine wires the engine onto in-memory stores loaded with
// the demo portfolio.
func buildFixtureEngine(ctx context.Context, cfg *config.Config, asOf time.Time) (*orchestrator.Engine, error) {
	stores := fixtures.NewStores()
	if err := fixtures.Load(ctx, stores, asOf); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.AccountStore = stores.Accounts
	opts.ScheduleStore = stores.Schedules
	opts.CashflowStore = stores.Cashflows
	opts.TermStructureStore = stores.TermStructures
	opts.InterpolatedPDStore = stores.PDs
	opts.CalcStore = stores.Calc
	opts.StageStore = stores.Stages
	opts.StageConfigStore = stores.StageConfig
	opts.RunStore = stores.Runs
	opts.ECLResultStore = stores.Results
	opts.CalcFactStore = stores.Facts
	return orchestrator.New(opts), nil
}

// buildDatabaseEngine wires the engine onto PostgreSQL and ClickHouse,
// applying pending migrations first.
func buildDatabaseEngine(ctx context.Context, cfg *config.Config) (*orchestrator.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.AccountStore = pgstore.NewAccountStore(pool)
	opts.ScheduleStore = pgstore.NewPaymentScheduleStore(pool)
	opts.CashflowStore = pgstore.NewCashflowStore(pool)
	opts.TermStructureStore = pgstore.NewTermStructureStore(pool)
	opts.InterpolatedPDStore = pgstore.NewInterpolatedPDStore(pool)
	opts.CalcStore = pgstore.NewCalcStore(pool)
	opts.StageStore = pgstore.NewStageStore(pool)
	opts.StageConfigStore = pgstore.NewStageConfigStore(pool)
	opts.RunStore = pgstore.NewRunStore(pool)
	opts.ECLResultStore = chstore.NewECLResultStore(conn)
	opts.CalcFactStore = chstore.NewCalcFactStore(conn)
	return orchestrator.New(opts), nil
}
