// Package main generates the ECL report files for a completed run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ifrs9-engine/internal/config"
	"ifrs9-engine/internal/fixtures"
	"ifrs9-engine/internal/logging"
	"ifrs9-engine/internal/orchestrator"
	"ifrs9-engine/internal/reporting"
	chstore "ifrs9-engine/internal/storage/clickhouse"
	pgstore "ifrs9-engine/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: search ./config, /etc/ifrs9)")
	asOfFlag := flag.String("as-of", "", "Reporting date, YYYY-MM-DD (required)")
	runID := flag.Int64("run-id", 0, "Report a specific run instead of the latest completed one")
	outputDir := flag.String("output-dir", "", "Output directory (default: reports.dir from config)")
	useFixtures := flag.Bool("use-fixtures", false, "Run the pipeline on the demo portfolio first, then report")
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

	var cfg *config.Config
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

	dir := *outputDir
	if dir == "" {
		dir = cfg.Reports.Dir
	}

	ctx := context.Background()

	var gen *reporting.Generator
	if *useFixtures {
		gen, err = fixtureGenerator(ctx, cfg, asOf)
	} else {
		gen, err = databaseGenerator(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var report *reporting.Report
	if *runID > 0 {
		report, err = gen.GenerateForRun(ctx, asOf, *runID)
	} else {
		report, err = gen.Generate(ctx, asOf)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := gen.WriteFiles(report, dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report files: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ECL report generated for run %d:\n", report.RunID)
	fmt.Printf("  - %s/ecl_results.csv\n", dir)
	fmt.Printf("  - %s/stage_summary.csv\n", dir)
	fmt.Printf("  - %s/REPORT_ECL.md\n", dir)
}

// fixtureGenerator runs the pipeline on the demo portfolio so there is a
// completed run to report on.
func fixtureGenerator(ctx context.Context, cfg *config.Config, asOf time.Time) (*reporting.Generator, error) {
	stores := fixtures.NewStores()
	if err := fixtures.Load(ctx, stores, asOf); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}

	methodology, err := cfg.Engine.ParseMethodology()
	if err != nil {
		return nil, err
	}
	eadStrategy, err := cfg.Engine.ParseEADStrategy()
	if err != nil {
		return nil, err
	}
	pdMethod, err := cfg.Engine.ParsePDMethod()
	if err != nil {
		return nil, err
	}
	pdLevel, err := cfg.Engine.ParsePDLevel()
	if err != nil {
		return nil, err
	}

	engine := orchestrator.New(orchestrator.Options{
		AccountStore:        stores.Accounts,
		ScheduleStore:       stores.Schedules,
		CashflowStore:       stores.Cashflows,
		TermStructureStore:  stores.TermStructures,
		InterpolatedPDStore: stores.PDs,
		CalcStore:           stores.Calc,
		StageStore:          stores.Stages,
		StageConfigStore:    stores.StageConfig,
		RunStore:            stores.Runs,
		ECLResultStore:      stores.Results,
		CalcFactStore:       stores.Facts,
		Methodology:         methodology,
		UsesDiscounting:     cfg.Engine.UsesDiscounting,
		EADStrategy:         eadStrategy,
		PDMethod:            pdMethod,
		PDLevel:             pdLevel,
		Concurrency:         cfg.Engine.Concurrency,
	})
	if _, err := engine.Run(ctx, asOf); err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	return reporting.NewGenerator(stores.Runs, stores.Results, stores.Stages), nil
}

func databaseGenerator(ctx context.Context, cfg *config.Config) (*reporting.Generator, error) {
	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "" {
		return nil, fmt.Errorf("storage DSNs are not configured; use --use-fixtures for demo data")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}

	return reporting.NewGenerator(
		pgstore.NewRunStore(pool),
		chstore.NewECLResultStore(conn),
		pgstore.NewStageStore(pool),
	), nil
}
