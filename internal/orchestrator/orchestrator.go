// Package orchestrator coordinates the ECL pipeline.
// Flow: projection → PD interpolation → alignment → discounting →
// exposure → staging → aggregation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ifrs9-engine/internal/align"
	"ifrs9-engine/internal/cashflow"
	"ifrs9-engine/internal/discount"
	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/ecl"
	"ifrs9-engine/internal/exposure"
	"ifrs9-engine/internal/logging"
	"ifrs9-engine/internal/observability"
	"ifrs9-engine/internal/pdcurve"
	"ifrs9-engine/internal/staging"
	"ifrs9-engine/internal/storage"
)

// Engine coordinates the pipeline phases over the storage layer.
type Engine struct {
	// Stores
	accounts       storage.AccountStore
	schedules      storage.PaymentScheduleStore
	cashflows      storage.CashflowStore
	termStructures storage.TermStructureStore
	pds            storage.InterpolatedPDStore
	calc           storage.CalcStore
	stages         storage.StageStore
	stageConfig    storage.StageConfigStore
	runs           storage.RunStore
	results        storage.ECLResultStore
	facts          storage.CalcFactStore

	// Calculation parameters
	methodology     domain.Methodology
	usesDiscounting bool
	eadStrategy     domain.EADStrategy
	pdMethod        domain.CurveMethod
	pdLevel         domain.PDLevel
	concurrency     int

	metrics *observability.Metrics
	now     func() time.Time
}

// Options for creating an Engine.
type Options struct {
	// Required stores
	AccountStore        storage.AccountStore
	ScheduleStore       storage.PaymentScheduleStore
	CashflowStore       storage.CashflowStore
	TermStructureStore  storage.TermStructureStore
	InterpolatedPDStore storage.InterpolatedPDStore
	CalcStore           storage.CalcStore
	StageStore          storage.StageStore
	StageConfigStore    storage.StageConfigStore
	RunStore            storage.RunStore
	ECLResultStore      storage.ECLResultStore

	// Optional reporting fact sink. Nil disables the drill-down snapshot.
	CalcFactStore storage.CalcFactStore

	// Calculation parameters
	Methodology     domain.Methodology
	UsesDiscounting bool
	EADStrategy     domain.EADStrategy
	PDMethod        domain.CurveMethod
	PDLevel         domain.PDLevel
	Concurrency     int

	// Optional metrics sink.
	Metrics *observability.Metrics

	// Now overrides the clock, used in tests.
	Now func() time.Time
}

// New creates a new Engine.
func New(opts Options) *Engine {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		accounts:        opts.AccountStore,
		schedules:       opts.ScheduleStore,
		cashflows:       opts.CashflowStore,
		termStructures:  opts.TermStructureStore,
		pds:             opts.InterpolatedPDStore,
		calc:            opts.CalcStore,
		stages:          opts.StageStore,
		stageConfig:     opts.StageConfigStore,
		runs:            opts.RunStore,
		results:         opts.ECLResultStore,
		facts:           opts.CalcFactStore,
		methodology:     opts.Methodology,
		usesDiscounting: opts.UsesDiscounting,
		eadStrategy:     opts.EADStrategy,
		pdMethod:        opts.PDMethod,
		pdLevel:         opts.PDLevel,
		concurrency:     concurrency,
		metrics:         opts.Metrics,
		now:             now,
	}
}

// PhaseResult reports what one phase did.
type PhaseResult struct {
	Processed int
	Skipped   int
	Errors    []string
}

// RunResult contains results from a full pipeline execution.
type RunResult struct {
	RunID            int64
	AccountsLoaded   int
	BucketsProjected int
	PDSeriesBuilt    int
	CalcRowsWritten  int
	StagesDetermined int
	ResultsWritten   int
	Errors           []string
}

// collector accumulates per-account outcomes across goroutines.
type collector struct {
	mu        sync.Mutex
	processed int
	skipped   int
	extra     int
	errs      []string
}

func (c *collector) ok(n int) {
	c.mu.Lock()
	c.processed++
	c.extra += n
	c.mu.Unlock()
}

func (c *collector) skip(format string, args ...any) {
	c.mu.Lock()
	c.skipped++
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

// result deduplicates repeated skip reasons before returning them.
func (c *collector) result() *PhaseResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.errs))
	deduped := c.errs[:0]
	for _, e := range c.errs {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		deduped = append(deduped, e)
	}
	sort.Strings(deduped)
	return &PhaseResult{Processed: c.processed, Skipped: c.skipped, Errors: deduped}
}

// ProjectCashFlows builds and persists the bucket sequence for every
// account at the as-of date. Accounts with an explicit payment schedule
// use it directly; the rest are projected from contractual terms.
// Accounts missing required dates are skipped with a warning, never
// failed.
func (e *Engine) ProjectCashFlows(ctx context.Context, asOf time.Time) (*PhaseResult, error) {
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	col := &collector{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, acct := range accounts {
		acct := acct
		g.Go(func() error {
			schedule, err := e.schedules.GetByAccount(gctx, asOf, acct.AccountNumber)
			if err != nil {
				return fmt.Errorf("load schedule for %s: %w", acct.AccountNumber, err)
			}

			buckets, err := cashflow.Project(acct, schedule, asOf)
			if err != nil {
				if errors.Is(err, cashflow.ErrMissingDates) {
					logging.FromContext(gctx).Warn("skipping account in projection",
						"account", acct.AccountNumber, "reason", err)
					col.skip("project %s: %v", acct.AccountNumber, err)
					return nil
				}
				return fmt.Errorf("project %s: %w", acct.AccountNumber, err)
			}

			err = e.retryWrite(gctx, "postgres", "replace_cashflow_buckets", func() error {
				return e.cashflows.ReplaceForAccount(gctx, asOf, acct.AccountNumber, buckets)
			})
			if err != nil {
				return fmt.Errorf("store buckets for %s: %w", acct.AccountNumber, err)
			}
			col.ok(len(buckets))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := col.result()
	if e.metrics != nil {
		e.metrics.AccountsProcessed.WithLabelValues("projection").Add(float64(res.Processed))
		e.metrics.AccountsSkipped.WithLabelValues("projection").Add(float64(res.Skipped))
		e.metrics.BucketsProjected.Add(float64(col.extra))
	}
	return res, nil
}

// InterpolatePD regenerates the interpolated PD series for the as-of
// date at the configured level. At term-structure level one series per
// (term structure, basis code) pair is produced; at account level one
// series per account, sized to the account's remaining buckets.
func (e *Engine) InterpolatePD(ctx context.Context, asOf time.Time) (*PhaseResult, error) {
	switch e.pdLevel {
	case domain.PDLevelTermStructure:
		return e.interpolateTermStructures(ctx, asOf)
	case domain.PDLevelAccount:
		return e.interpolateAccounts(ctx, asOf)
	default:
		return nil, fmt.Errorf("unknown PD level %q", e.pdLevel)
	}
}

func (e *Engine) interpolateTermStructures(ctx context.Context, asOf time.Time) (*PhaseResult, error) {
	structures, err := e.termStructures.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load term structures: %w", err)
	}

	col := &collector{}
	for _, ts := range structures {
		ppy := ts.Granularity.PeriodsPerYear()
		totalBuckets := ts.HorizonYears * ppy
		if totalBuckets < 1 {
			col.skip("term structure %s: empty horizon", ts.ID)
			continue
		}

		for _, in := range ts.Inputs {
			points, err := pdcurve.Interpolate(e.pdMethod, in.AnnualPD, ppy, totalBuckets)
			if err != nil {
				col.skip("interpolate %s/%s: %v", ts.ID, in.BasisCode, err)
				continue
			}

			rows := make([]*domain.InterpolatedPD, 0, len(points))
			for _, p := range points {
				rows = append(rows, &domain.InterpolatedPD{
					AsOfDate:        asOf,
					Level:           domain.PDLevelTermStructure,
					TermStructureID: ts.ID,
					BasisCode:       in.BasisCode,
					BucketID:        p.BucketID,
					MarginalPD:      p.Marginal,
					CumulativePD:    p.Cumulative,
				})
			}

			err = e.retryWrite(ctx, "postgres", "replace_interpolated_pd", func() error {
				return e.pds.ReplaceForTermStructure(ctx, asOf, ts.ID, in.BasisCode, rows)
			})
			if err != nil {
				return nil, fmt.Errorf("store pd series %s/%s: %w", ts.ID, in.BasisCode, err)
			}
			col.ok(0)
		}
	}

	res := col.result()
	if e.metrics != nil {
		e.metrics.PDSeriesBuilt.Add(float64(res.Processed))
	}
	return res, nil
}

func (e *Engine) interpolateAccounts(ctx context.Context, asOf time.Time) (*PhaseResult, error) {
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	col := &collector{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, acct := range accounts {
		acct := acct
		g.Go(func() error {
			ts, err := e.termStructures.GetByID(gctx, acct.TermStructureID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					col.skip("pd %s: term structure %s not found", acct.AccountNumber, acct.TermStructureID)
					return nil
				}
				return fmt.Errorf("load term structure for %s: %w", acct.AccountNumber, err)
			}

			basis := basisCodeFor(acct, ts)
			in, ok := ts.InputFor(basis)
			if !ok {
				col.skip("pd %s: no input for basis %q in %s", acct.AccountNumber, basis, ts.ID)
				return nil
			}

			buckets, err := e.cashflows.GetByAccount(gctx, asOf, acct.AccountNumber)
			if err != nil {
				return fmt.Errorf("load buckets for %s: %w", acct.AccountNumber, err)
			}
			if len(buckets) == 0 {
				col.skip("pd %s: no projected buckets", acct.AccountNumber)
				return nil
			}

			ppy := acct.AmortizationUnit.PeriodsPerYear()
			points, err := pdcurve.Interpolate(e.pdMethod, in.AnnualPD, ppy, len(buckets))
			if err != nil {
				col.skip("interpolate %s: %v", acct.AccountNumber, err)
				return nil
			}

			rows := make([]*domain.InterpolatedPD, 0, len(points))
			for _, p := range points {
				rows = append(rows, &domain.InterpolatedPD{
					AsOfDate:      asOf,
					Level:         domain.PDLevelAccount,
					BasisCode:     basis,
					AccountNumber: acct.AccountNumber,
					BucketID:      p.BucketID,
					MarginalPD:    p.Marginal,
					CumulativePD:  p.Cumulative,
				})
			}

			err = e.retryWrite(gctx, "postgres", "replace_interpolated_pd", func() error {
				return e.pds.ReplaceForAccount(gctx, asOf, acct.AccountNumber, rows)
			})
			if err != nil {
				return fmt.Errorf("store pd series for %s: %w", acct.AccountNumber, err)
			}
			col.ok(0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := col.result()
	if e.metrics != nil {
		e.metrics.PDSeriesBuilt.Add(float64(res.Processed))
	}
	return res, nil
}

// AlignBuckets joins each account's cash-flow buckets with its PD series
// into run-scoped calc rows, clamping the 12-month cumulative PD at the
// threshold bucket.
func (e *Engine) AlignBuckets(ctx context.Context, asOf time.Time, runID int64) (*PhaseResult, error) {
	return e.perAccountPhase(ctx, asOf, "alignment", func(gctx context.Context, acct *domain.Account) (int, string, error) {
		buckets, err := e.cashflows.GetByAccount(gctx, asOf, acct.AccountNumber)
		if err != nil {
			return 0, "", fmt.Errorf("load buckets for %s: %w", acct.AccountNumber, err)
		}

		pdRows, ppy, err := e.pdSeriesFor(gctx, asOf, acct)
		if err != nil {
			return 0, fmt.Sprintf("align %s: %v", acct.AccountNumber, err), nil
		}

		rows, err := align.Align(acct, buckets, pdRows, ppy, runID, asOf)
		if err != nil {
			if errors.Is(err, align.ErrNoBuckets) || errors.Is(err, align.ErrNoPD) {
				return 0, fmt.Sprintf("align %s: %v", acct.AccountNumber, err), nil
			}
			return 0, "", fmt.Errorf("align %s: %w", acct.AccountNumber, err)
		}

		err = e.retryWrite(gctx, "postgres", "replace_calc_rows", func() error {
			return e.calc.ReplaceForAccount(gctx, asOf, runID, acct.AccountNumber, rows)
		})
		if err != nil {
			return 0, "", fmt.Errorf("store calc rows for %s: %w", acct.AccountNumber, err)
		}
		return len(rows), "", nil
	})
}

// ComputeDiscountFactors fills discount factors and expected/shortfall
// columns on every calc row of the run.
func (e *Engine) ComputeDiscountFactors(ctx context.Context, asOf time.Time, runID int64) (*PhaseResult, error) {
	return e.perAccountPhase(ctx, asOf, "discounting", func(gctx context.Context, acct *domain.Account) (int, string, error) {
		rows, err := e.calc.GetByAccount(gctx, asOf, runID, acct.AccountNumber)
		if err != nil {
			return 0, "", fmt.Errorf("load calc rows for %s: %w", acct.AccountNumber, err)
		}
		if len(rows) == 0 {
			return 0, fmt.Sprintf("discount %s: no calc rows", acct.AccountNumber), nil
		}

		rows = discount.Apply(rows, acct)

		err = e.retryWrite(gctx, "postgres", "replace_calc_rows", func() error {
			return e.calc.ReplaceForAccount(gctx, asOf, runID, acct.AccountNumber, rows)
		})
		if err != nil {
			return 0, "", fmt.Errorf("store calc rows for %s: %w", acct.AccountNumber, err)
		}
		return len(rows), "", nil
	})
}

// ComputeExposure fills EAD and forward-loss columns on every calc row
// of the run using the configured strategy.
func (e *Engine) ComputeExposure(ctx context.Context, asOf time.Time, runID int64) (*PhaseResult, error) {
	return e.perAccountPhase(ctx, asOf, "exposure", func(gctx context.Context, acct *domain.Account) (int, string, error) {
		rows, err := e.calc.GetByAccount(gctx, asOf, runID, acct.AccountNumber)
		if err != nil {
			return 0, "", fmt.Errorf("load calc rows for %s: %w", acct.AccountNumber, err)
		}
		if len(rows) == 0 {
			return 0, fmt.Sprintf("exposure %s: no calc rows", acct.AccountNumber), nil
		}

		rows, err = exposure.Apply(rows, acct, e.eadStrategy, asOf)
		if err != nil {
			if errors.Is(err, exposure.ErrMissingCarryingAmount) {
				return 0, fmt.Sprintf("exposure %s: %v", acct.AccountNumber, err), nil
			}
			return 0, "", fmt.Errorf("exposure %s: %w", acct.AccountNumber, err)
		}

		err = e.retryWrite(gctx, "postgres", "replace_calc_rows", func() error {
			return e.calc.ReplaceForAccount(gctx, asOf, runID, acct.AccountNumber, rows)
		})
		if err != nil {
			return 0, "", fmt.Errorf("store calc rows for %s: %w", acct.AccountNumber, err)
		}
		return len(rows), "", nil
	})
}

// DetermineStage computes the raw stage for every account from the
// rating mappings, falling back to delinquent-days thresholds.
func (e *Engine) DetermineStage(ctx context.Context, asOf time.Time) (map[string]domain.Stage, error) {
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	ratings, err := e.stageConfig.GetRatingMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rating mappings: %w", err)
	}
	thresholds, err := e.stageConfig.GetDelinquencyThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("load delinquency thresholds: %w", err)
	}

	computed := make(map[string]domain.Stage, len(accounts))
	for _, acct := range accounts {
		computed[acct.AccountNumber] = staging.ComputeStage(acct, ratings, thresholds)
	}
	return computed, nil
}

// ApplyCoolingPeriod runs the hysteresis state machine for every account
// against its most recent prior stage record, persists the resulting
// records and writes the effective stage back onto the account snapshot.
// Accounts whose stage could not be resolved are skipped, leaving the
// prior record and the snapshot stage untouched.
func (e *Engine) ApplyCoolingPeriod(ctx context.Context, asOf time.Time, computed map[string]domain.Stage) (*PhaseResult, error) {
	durations, err := e.stageConfig.GetCoolingDurations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cooling durations: %w", err)
	}
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	col := &collector{}
	cooling := 0
	for _, acct := range accounts {
		stage, ok := computed[acct.AccountNumber]
		if !ok {
			col.skip("stage %s: no computed stage", acct.AccountNumber)
			continue
		}
		// An unresolved stage must not reach the state machine: Unknown
		// compares as more favorable than every real stage and would end
		// an active cooling period.
		if stage == domain.StageUnknown {
			logging.FromContext(ctx).Warn("skipping account in staging",
				"account", acct.AccountNumber, "reason", "stage unresolved")
			col.skip("stage %s: unresolved, prior stage left in force", acct.AccountNumber)
			continue
		}

		prev, err := e.stages.GetLatestBefore(ctx, asOf, acct.AccountNumber)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("load prior stage for %s: %w", acct.AccountNumber, err)
			}
			prev = nil
		}

		coolingDays := staging.CoolingDaysFor(durations, acct.AmortizationUnit)
		rec := staging.Transition(prev, stage, asOf, coolingDays)
		rec.AccountNumber = acct.AccountNumber

		if err := e.stages.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("store stage record for %s: %w", acct.AccountNumber, err)
		}
		if err := e.accounts.UpdateStage(ctx, asOf, acct.AccountNumber, rec.Stage); err != nil {
			return nil, fmt.Errorf("update account stage for %s: %w", acct.AccountNumber, err)
		}

		if e.metrics != nil && prev != nil && rec.Stage != prev.Stage {
			e.metrics.StageTransitions.WithLabelValues(prev.Stage.String(), rec.Stage.String()).Inc()
		}
		if rec.InCooling {
			cooling++
		}
		col.ok(0)
	}

	res := col.result()
	if e.metrics != nil {
		e.metrics.CoolingPeriodsActive.Set(float64(cooling))
		e.metrics.AccountsSkipped.WithLabelValues("staging").Add(float64(res.Skipped))
	}
	return res, nil
}

// AggregateECL folds each account's calc rows into one ECL result and
// writes the results, plus the finished calc snapshot, to the reporting
// stores.
func (e *Engine) AggregateECL(ctx context.Context, asOf time.Time, runID int64) (*PhaseResult, error) {
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	col := &collector{}
	var results []*domain.ECLResult
	var allRows []*domain.CalcRow

	for _, acct := range accounts {
		rows, err := e.calc.GetByAccount(ctx, asOf, runID, acct.AccountNumber)
		if err != nil {
			return nil, fmt.Errorf("load calc rows for %s: %w", acct.AccountNumber, err)
		}
		if len(rows) == 0 {
			col.skip("aggregate %s: no calc rows", acct.AccountNumber)
			continue
		}

		result, err := ecl.Aggregate(rows, acct, e.methodology, e.usesDiscounting, e.now())
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", acct.AccountNumber, err)
		}
		result.RunID = runID
		results = append(results, result)
		allRows = append(allRows, rows...)
		col.ok(0)
	}

	if len(results) > 0 {
		err = e.retryWrite(ctx, "clickhouse", "insert_ecl_results", func() error {
			return e.results.InsertBulk(ctx, results)
		})
		if err != nil {
			return nil, fmt.Errorf("store ecl results: %w", err)
		}
	}
	if e.facts != nil && len(allRows) > 0 {
		err = e.retryWrite(ctx, "clickhouse", "insert_calc_facts", func() error {
			return e.facts.InsertBulk(ctx, allRows)
		})
		if err != nil {
			return nil, fmt.Errorf("store calc facts: %w", err)
		}
	}

	if e.metrics != nil {
		e.metrics.ResultsWritten.Add(float64(len(results)))
	}
	return col.result(), nil
}

// Run executes the full pipeline for an as-of date under a freshly
// allocated run id. Partial results of a failed run stay isolated behind
// that run id; the run record is marked FAILED with the reason.
func (e *Engine) Run(ctx context.Context, asOf time.Time) (*RunResult, error) {
	run, err := e.runs.Allocate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("allocate run: %w", err)
	}

	log := logging.FromContext(ctx).With("runID", run.RunID, "asOf", asOf.Format("2006-01-02"))
	ctx = logging.ToContext(ctx, log)
	log.Info("pipeline run started")

	result, err := e.runPhases(ctx, asOf, run.RunID)
	if err != nil {
		if e.metrics != nil {
			e.metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
		}
		log.Error("pipeline run failed", "error", err)
		if cerr := e.runs.Complete(ctx, run.RunID, domain.RunStatusFailed, err.Error()); cerr != nil {
			log.Error("marking run failed", "error", cerr)
		}
		return nil, err
	}

	if err := e.runs.Complete(ctx, run.RunID, domain.RunStatusCompleted, ""); err != nil {
		return nil, fmt.Errorf("complete run: %w", err)
	}
	if e.metrics != nil {
		e.metrics.PipelineRunsTotal.WithLabelValues("completed").Inc()
		e.metrics.LastSuccessfulRun.Set(float64(e.now().Unix()))
	}
	log.Info("pipeline run completed",
		"accounts", result.AccountsLoaded,
		"buckets", result.BucketsProjected,
		"results", result.ResultsWritten,
		"skips", len(result.Errors))
	return result, nil
}

func (e *Engine) runPhases(ctx context.Context, asOf time.Time, runID int64) (*RunResult, error) {
	result := &RunResult{RunID: runID}
	log := logging.FromContext(ctx)

	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	result.AccountsLoaded = len(accounts)
	if len(accounts) == 0 {
		return result, nil
	}

	timed := func(phase string, fn func() (*PhaseResult, error)) (*PhaseResult, error) {
		start := e.now()
		res, err := fn()
		if e.metrics != nil {
			e.metrics.PhaseDuration.WithLabelValues(phase).Observe(e.now().Sub(start).Seconds())
		}
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", phase, err)
		}
		log.Info("phase completed", "phase", phase,
			"processed", res.Processed, "skipped", res.Skipped)
		result.Errors = append(result.Errors, res.Errors...)
		return res, nil
	}

	res, err := timed("projection", func() (*PhaseResult, error) {
		return e.ProjectCashFlows(ctx, asOf)
	})
	if err != nil {
		return nil, err
	}
	buckets, err := e.cashflows.CountByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("count buckets: %w", err)
	}
	result.BucketsProjected = buckets

	res, err = timed("pd_interpolation", func() (*PhaseResult, error) {
		return e.InterpolatePD(ctx, asOf)
	})
	if err != nil {
		return nil, err
	}
	result.PDSeriesBuilt = res.Processed

	if _, err = timed("alignment", func() (*PhaseResult, error) {
		return e.AlignBuckets(ctx, asOf, runID)
	}); err != nil {
		return nil, err
	}

	if _, err = timed("discounting", func() (*PhaseResult, error) {
		return e.ComputeDiscountFactors(ctx, asOf, runID)
	}); err != nil {
		return nil, err
	}

	if _, err = timed("exposure", func() (*PhaseResult, error) {
		return e.ComputeExposure(ctx, asOf, runID)
	}); err != nil {
		return nil, err
	}

	stageRes, err := timed("staging", func() (*PhaseResult, error) {
		computed, err := e.DetermineStage(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return e.ApplyCoolingPeriod(ctx, asOf, computed)
	})
	if err != nil {
		return nil, err
	}
	result.StagesDetermined = stageRes.Processed

	aggRes, err := timed("aggregation", func() (*PhaseResult, error) {
		return e.AggregateECL(ctx, asOf, runID)
	})
	if err != nil {
		return nil, err
	}
	result.ResultsWritten = aggRes.Processed

	rows, err := e.calc.CountByRun(ctx, asOf, runID)
	if err != nil {
		return nil, fmt.Errorf("count calc rows: %w", err)
	}
	result.CalcRowsWritten = rows

	return result, nil
}

// perAccountPhase runs fn for every account under the worker limit and
// collects processed/skipped counts. fn returns (rows written,
// skip reason, hard error); a non-empty skip reason records a skip.
func (e *Engine) perAccountPhase(ctx context.Context, asOf time.Time, phase string, fn func(context.Context, *domain.Account) (int, string, error)) (*PhaseResult, error) {
	accounts, err := e.accounts.GetByAsOfDate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	col := &collector{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, acct := range accounts {
		acct := acct
		g.Go(func() error {
			n, skip, err := fn(gctx, acct)
			if err != nil {
				return err
			}
			if skip != "" {
				logging.FromContext(gctx).Warn("skipping account",
					"phase", phase, "account", acct.AccountNumber, "reason", skip)
				col.skip("%s", skip)
				return nil
			}
			col.ok(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := col.result()
	if e.metrics != nil {
		e.metrics.AccountsProcessed.WithLabelValues(phase).Add(float64(res.Processed))
		e.metrics.AccountsSkipped.WithLabelValues(phase).Add(float64(res.Skipped))
	}
	return res, nil
}

// retryWrite wraps a bulk store write with the contention retry policy,
// counting every failed attempt toward the database error metric.
func (e *Engine) retryWrite(ctx context.Context, database, operation string, op func() error) error {
	countErr := func() {
		if e.metrics != nil {
			e.metrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
		}
	}
	err := storage.WithRetryNotify(ctx, op, func(error, time.Duration) {
		countErr()
	})
	if err != nil {
		countErr()
	}
	return err
}

// pdSeriesFor resolves the PD series and its periods-per-year for an
// account at the configured level.
func (e *Engine) pdSeriesFor(ctx context.Context, asOf time.Time, acct *domain.Account) ([]*domain.InterpolatedPD, int, error) {
	if e.pdLevel == domain.PDLevelAccount {
		rows, err := e.pds.GetForAccount(ctx, asOf, acct.AccountNumber)
		if err != nil {
			return nil, 0, err
		}
		if len(rows) == 0 {
			return nil, 0, fmt.Errorf("no pd series for account")
		}
		return rows, acct.AmortizationUnit.PeriodsPerYear(), nil
	}

	ts, err := e.termStructures.GetByID(ctx, acct.TermStructureID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, fmt.Errorf("term structure %s not found", acct.TermStructureID)
		}
		return nil, 0, err
	}

	basis := basisCodeFor(acct, ts)
	rows, err := e.pds.GetForTermStructure(ctx, asOf, ts.ID, basis)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no pd series for %s/%s", ts.ID, basis)
	}
	return rows, ts.Granularity.PeriodsPerYear(), nil
}

// basisCodeFor picks the credit-risk basis code matching the term
// structure kind: rating code for rating curves, delinquency band for
// delinquency curves.
func basisCodeFor(acct *domain.Account, ts *domain.PDTermStructure) string {
	if ts.Kind == domain.TermStructureDelinquency {
		return acct.DelinquencyBand
	}
	return acct.RatingCode
}
