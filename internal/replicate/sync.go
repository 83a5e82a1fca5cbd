package replicate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	baoerrors "github.com/systmms/baorepl/internal/errors"
	"github.com/systmms/baorepl/internal/logging"
)

// Phase names the six ordered replication phases.
type Phase string

const (
	PhaseHealthCheck     Phase = "health_check"
	PhaseClear           Phase = "clear"
	PhaseSyncEngines     Phase = "sync_engines"
	PhaseSyncAuthMethods Phase = "sync_auth_methods"
	PhaseSyncPolicies    Phase = "sync_policies"
	PhaseSyncSecrets     Phase = "sync_secrets"
)

// PhaseResult reports the outcome of one phase.
type PhaseResult struct {
	Phase     Phase
	Success   bool
	Processed int
	Failed    int
	Err       error // first error encountered
	Duration  time.Duration
}

// RunResult aggregates all phase results of one replication run.
type RunResult struct {
	Phases    int
	Results   []PhaseResult
	Aborted   bool // health check failed; nothing was mutated
	Cancelled bool // context cancelled between phases
}

// OverallSuccess reports whether every phase ran with zero failures.
func (r *RunResult) OverallSuccess() bool {
	if r.Aborted || r.Cancelled {
		return false
	}
	for _, pr := range r.Results {
		if !pr.Success {
			return false
		}
	}
	return len(r.Results) == r.Phases
}

// Options tunes one synchronizer.
type Options struct {
	// ExcludePaths are user-supplied prefixes skipped during
	// replication. Always unioned with the system-reserved set.
	ExcludePaths []string

	// DryRun logs every planned action without mutating the
	// secondary. Health checks and primary reads still happen.
	DryRun bool

	// Workers bounds parallel leaf copies in the secrets phase.
	Workers int
}

// Synchronizer drives a full replication run: health check, clear,
// then rebuild engines, auth methods, policies, and secret data on
// the secondary. Phases run strictly in order; failures inside a
// phase are contained to the entity that caused them.
//
// The primary is only ever read. The secondary's root token, the
// token auth method, and the reserved namespaces are never touched.
type Synchronizer struct {
	primary   API
	secondary API
	planner   *Planner
	walker    *Walker
	health    *HealthChecker
	excluder  *Excluder
	opts      Options
	logger    *logging.Logger
	metrics   *Metrics
}

// NewSynchronizer wires a synchronizer for one primary/secondary pair.
// The synchronizer owns both clients for the duration of a run; runs
// must not overlap.
func NewSynchronizer(primary, secondary API, opts Options, logger *logging.Logger) *Synchronizer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Synchronizer{
		primary:   primary,
		secondary: secondary,
		planner:   NewPlanner(logger),
		walker:    NewWalker(primary, logger),
		health:    NewHealthChecker(logger),
		excluder:  NewExcluder(opts.ExcludePaths),
		opts:      opts,
		logger:    logger,
		metrics:   NewMetrics(),
	}
}

// Run executes one full replication. The returned result always
// carries a PhaseResult for every phase that was attempted; when the
// health check fails the run is aborted with zero mutating calls.
func (s *Synchronizer) Run(ctx context.Context) *RunResult {
	result := &RunResult{Phases: 6}
	s.logger.Info("Starting full synchronization")

	health := s.timed(PhaseHealthCheck, func() PhaseResult {
		if err := s.health.Check(ctx, s.primary, s.secondary); err != nil {
			return PhaseResult{Err: err}
		}
		return PhaseResult{}
	})
	result.Results = append(result.Results, health)
	if !health.Success {
		s.logger.Error("Health check failed, aborting run: %v", health.Err)
		result.Aborted = true
		s.metrics.RecordRun(false)
		return result
	}

	phases := []struct {
		phase Phase
		run   func(context.Context) PhaseResult
	}{
		{PhaseClear, s.clearSecondary},
		{PhaseSyncEngines, func(ctx context.Context) PhaseResult {
			return s.syncCategory(ctx, CategoryEngine)
		}},
		{PhaseSyncAuthMethods, func(ctx context.Context) PhaseResult {
			return s.syncCategory(ctx, CategoryAuth)
		}},
		{PhaseSyncPolicies, func(ctx context.Context) PhaseResult {
			return s.syncCategory(ctx, CategoryPolicy)
		}},
		{PhaseSyncSecrets, s.syncSecrets},
	}

	for _, ph := range phases {
		if ctx.Err() != nil {
			s.logger.Warn("Run cancelled before phase %s", ph.phase)
			result.Cancelled = true
			break
		}
		pr := s.timed(ph.phase, func() PhaseResult { return ph.run(ctx) })
		result.Results = append(result.Results, pr)
		if pr.Success {
			s.logger.Info("Phase %s completed: %d processed", ph.phase, pr.Processed)
		} else {
			s.logger.Error("Phase %s completed with %d failures (first: %v)", ph.phase, pr.Failed, pr.Err)
		}
	}

	success := result.OverallSuccess()
	if success {
		s.logger.Info("Full synchronization completed successfully")
	} else {
		s.logger.Error("Full synchronization completed with errors")
	}
	s.metrics.RecordRun(success)
	return result
}

// timed runs one phase, stamps its name and duration, and derives the
// success flag.
func (s *Synchronizer) timed(phase Phase, run func() PhaseResult) PhaseResult {
	start := time.Now()
	pr := run()
	pr.Phase = phase
	pr.Duration = time.Since(start)
	pr.Success = pr.Err == nil && pr.Failed == 0
	s.metrics.RecordPhase(phase, pr.Duration)
	return pr
}

// clearSecondary removes every non-reserved engine, auth method, and
// policy on the secondary, in that fixed order. Best-effort: each
// failure is counted but clearing continues, and the run proceeds to
// the rebuild phases regardless. This is intentional; a half-cleared
// secondary plus a rebuild attempt yields strictly more replicated
// state than stopping here.
func (s *Synchronizer) clearSecondary(ctx context.Context) PhaseResult {
	s.logger.Info("Clearing secondary cluster")
	var pr PhaseResult

	for _, cat := range []Category{CategoryEngine, CategoryAuth, CategoryPolicy} {
		plan, err := s.planner.DisablePlan(ctx, s.secondary, cat)
		if err != nil {
			pr.Failed++
			if pr.Err == nil {
				pr.Err = err
			}
			s.logger.Error("Failed to plan %s cleanup: %v", cat, err)
			continue
		}

		if s.opts.DryRun {
			s.describePlan(plan)
			pr.Processed += len(plan.Actions)
			continue
		}

		res := s.planner.Apply(ctx, s.secondary, plan)
		s.metrics.RecordEntities(cat, res)
		pr.Processed += res.Processed
		pr.Failed += res.Failed
		if pr.Err == nil {
			pr.Err = res.FirstErr
		}
	}
	return pr
}

// syncCategory reproduces one category of primary entities on the
// secondary. Already-exists failures count as success so a re-run
// converges instead of erroring.
func (s *Synchronizer) syncCategory(ctx context.Context, cat Category) PhaseResult {
	s.logger.Info("Syncing %ss", cat)

	entities, err := s.planner.List(ctx, s.primary, cat)
	if err != nil {
		return PhaseResult{Failed: 1, Err: err}
	}

	if cat != CategoryPolicy {
		entities = s.filterExcludedMounts(entities)
	}
	plan := s.planner.CreatePlan(cat, entities)

	if s.opts.DryRun {
		s.describePlan(plan)
		return PhaseResult{Processed: len(plan.Actions)}
	}

	res := s.planner.Apply(ctx, s.secondary, plan)
	s.metrics.RecordEntities(cat, res)
	return PhaseResult{Processed: res.Processed, Failed: res.Failed, Err: res.FirstErr}
}

func (s *Synchronizer) filterExcludedMounts(entities []Entity) []Entity {
	kept := entities[:0]
	for _, e := range entities {
		if s.excluder.Excluded(e.Path + "/") {
			s.logger.Debug("Skipping excluded mount: %s", e.Path)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// syncSecrets walks every replicated engine mount on the primary and
// copies each leaf to the same path on the secondary. Leaf copies run
// in parallel up to Options.Workers; all copies complete before the
// phase returns. Excluded paths are skipped before the primary read.
func (s *Synchronizer) syncSecrets(ctx context.Context) PhaseResult {
	s.logger.Info("Syncing secrets")

	engines, err := s.planner.List(ctx, s.primary, CategoryEngine)
	if err != nil {
		return PhaseResult{Failed: 1, Err: err}
	}
	engines = s.filterExcludedMounts(engines)

	var (
		mu        sync.Mutex
		processed int
		failed    int
		firstErr  error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	var group errgroup.Group
	group.SetLimit(s.opts.Workers)

	var walkErr error
	for _, engine := range engines {
		s.logger.Info("Syncing secrets from mount: %s", engine.Path)

		nodeErrors, err := s.walker.Walk(ctx, engine.Path, func(leaf string) error {
			if s.excluder.Excluded(leaf) {
				s.logger.Debug("Skipping excluded path: %s", leaf)
				return nil
			}
			if s.opts.DryRun {
				s.logger.Info("(dry-run) would copy %s", leaf)
				record(nil)
				return nil
			}
			group.Go(func() error {
				record(s.copyLeaf(ctx, leaf))
				return nil
			})
			return nil
		})

		// Inaccessible subtrees are entity-level failures; the rest
		// of the namespace still replicated.
		for i := 0; i < nodeErrors; i++ {
			record(walkFailure{})
		}
		if err != nil {
			walkErr = err
			break
		}
	}

	_ = group.Wait()

	mu.Lock()
	defer mu.Unlock()
	if walkErr != nil {
		if firstErr == nil {
			firstErr = walkErr
		}
		if failed == 0 {
			failed++
		}
	}
	s.metrics.RecordSecrets(processed-failed, failed)
	return PhaseResult{Processed: processed, Failed: failed, Err: firstErr}
}

// copyLeaf reads one leaf from the primary and writes it verbatim to
// the same path on the secondary. A connectivity failure gets exactly
// one retry; anything else fails the leaf immediately.
func (s *Synchronizer) copyLeaf(ctx context.Context, path string) error {
	data, err := s.primary.ReadSecret(ctx, path)
	if err != nil && baoerrors.IsRetryable(err) {
		data, err = s.primary.ReadSecret(ctx, path)
	}
	if err != nil {
		s.logger.Error("Failed to read secret %s: %v", path, err)
		return err
	}
	if data == nil {
		// Deleted between listing and read; nothing to copy.
		s.logger.Warn("Secret vanished before read: %s", path)
		return nil
	}
	err = s.secondary.WriteSecret(ctx, path, data)
	if err != nil && baoerrors.IsRetryable(err) {
		err = s.secondary.WriteSecret(ctx, path, data)
	}
	if err != nil {
		s.logger.Error("Failed to write secret %s: %v", path, err)
		return err
	}
	s.logger.Debug("Copied secret: %s", path)
	return nil
}

func (s *Synchronizer) describePlan(plan *Plan) {
	for _, action := range plan.Actions {
		s.logger.Info("(dry-run) would %s", action)
	}
}

// walkFailure marks an unreadable internal node in the phase counts.
type walkFailure struct{}

func (walkFailure) Error() string { return "namespace listing failed" }
