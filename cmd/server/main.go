// Package main runs the ECL engine as a long-lived service: pipeline
// runs are triggered over HTTP, Prometheus metrics and health are
// exposed on the same listener.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ifrs9-engine/internal/config"
	"ifrs9-engine/internal/fixtures"
	"ifrs9-engine/internal/logging"
	"ifrs9-engine/internal/observability"
	"ifrs9-engine/internal/orchestrator"
	"ifrs9-engine/internal/reporting"
	chstore "ifrs9-engine/internal/storage/clickhouse"
	"ifrs9-engine/internal/storage/migrations"
	pgstore "ifrs9-engine/internal/storage/postgres"
)

// Server holds the engine and the state of the last triggered run.
type Server struct {
	engine        *orchestrator.Engine
	generator     *reporting.Generator
	reportDir     string
	startedAt     time.Time
	fixtureStores *fixtures.Stores // non-nil in demo mode

	mu          sync.Mutex
	runActive   bool
	lastRunID   int64
	lastRunAsOf string
	lastRunErr  string
	runsStarted int
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: search ./config, /etc/ifrs9)")
	addr := flag.String("addr", "", "HTTP listen address (default: server.addr from config)")
	useFixtures := flag.Bool("use-fixtures", false, "Serve on in-memory stores with the demo portfolio")
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
	log := logging.L

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.Server.Addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	metrics := observability.NewMetrics("")

	srv, err := buildServer(ctx, cfg, metrics, *useFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", srv.handleStatus)
	mux.HandleFunc("/runs", srv.handleRuns)

	httpServer := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("server listening", "addr", listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "HTTP server error: %v\n", err)
		os.Exit(1)
	}
}

func buildServer(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, useFixtures bool) (*Server, error) {
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

	opts := orchestrator.Options{
		Methodology:     methodology,
		UsesDiscounting: cfg.Engine.UsesDiscounting,
		EADStrategy:     eadStrategy,
		PDMethod:        pdMethod,
		PDLevel:         pdLevel,
		Concurrency:     cfg.Engine.Concurrency,
		Metrics:         metrics,
	}

	var gen *reporting.Generator
	if useFixtures {
		stores := fixtures.NewStores()
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
		gen = reporting.NewGenerator(stores.Runs, stores.Results, stores.Stages)

		return &Server{
			engine:        orchestrator.New(opts),
			generator:     gen,
			reportDir:     cfg.Reports.Dir,
			startedAt:     time.Now().UTC(),
			fixtureStores: stores,
		}, nil
	}

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

	gen = reporting.NewGenerator(
		pgstore.NewRunStore(pool),
		chstore.NewECLResultStore(conn),
		pgstore.NewStageStore(pool),
	)

	return &Server{
		engine:    orchestrator.New(opts),
		generator: gen,
		reportDir: cfg.Reports.Dir,
		startedAt: time.Now().UTC(),
	}, nil
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	RunActive   bool   `json:"run_active"`
	RunsStarted int    `json:"runs_started"`
	LastRunID   int64  `json:"last_run_id,omitempty"`
	LastRunAsOf string `json:"last_run_as_of,omitempty"`
	LastRunErr  string `json:"last_run_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.startedAt).String(),
		RunActive:   s.runActive,
		RunsStarted: s.runsStarted,
		LastRunID:   s.lastRunID,
		LastRunAsOf: s.lastRunAsOf,
		LastRunErr:  s.lastRunErr,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRuns triggers a pipeline run for ?as_of=YYYY-MM-DD and writes
// the report files when it completes. One run at a time.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	asOf, err := time.Parse("2006-01-02", r.URL.Query().Get("as_of"))
	if err != nil {
		http.Error(w, "as_of must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.runActive {
		s.mu.Unlock()
		http.Error(w, "a run is already active", http.StatusConflict)
		return
	}
	s.runActive = true
	s.runsStarted++
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.runActive = false
			s.mu.Unlock()
		}()

		ctx := context.Background()
		if s.fixtureStores != nil {
			if err := fixtures.Load(ctx, s.fixtureStores, asOf); err != nil {
				logging.L.Error("fixture load failed", "error", err)
				return
			}
		}
		result, err := s.engine.Run(ctx, asOf)

		s.mu.Lock()
		s.lastRunAsOf = asOf.Format("2006-01-02")
		if err != nil {
			s.lastRunErr = err.Error()
			s.mu.Unlock()
			return
		}
		s.lastRunID = result.RunID
		s.lastRunErr = ""
		s.mu.Unlock()

		report, err := s.generator.GenerateForRun(ctx, asOf, result.RunID)
		if err != nil {
			logging.L.Error("report generation failed", "error", err)
			return
		}
		if err := s.generator.WriteFiles(report, s.reportDir); err != nil {
			logging.L.Error("report write failed", "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "run started for %s\n", asOf.Format("2006-01-02"))
}
