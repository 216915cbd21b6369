// Package bnb implements the parallel branch-and-bound driver that turns a
// Problem/Relaxation pair into a provably optimal decision sequence, by
// repeatedly popping the fringe's most promising subproblem, compiling a
// restricted then (if needed) relaxed MDD over it via package mdd, and
// feeding the relaxed compile's cutset back onto the fringe.
//
// One coarse-grained mutex and condition variable guards the fringe, the
// bounds, the exploration counters, and the best solution found so far —
// the teacher's worker pool reaches for exactly this shape (a short
// critical section wrapping a long unit of per-worker work) for its goal
// evaluation; here the long unit of work is a full MDD compile rather than
// a goal step.
package bnb

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/goddo/internal/parallel"
	"github.com/gitrdm/goddo/internal/telemetry"
	"github.com/gitrdm/goddo/pkg/ddo"
	"github.com/gitrdm/goddo/pkg/ddo/mdd"
)

// Config configures one Solver. Zero values for NumWorkers and CutsetType
// resolve to runtime.NumCPU() and mdd.LastExactLayer respectively.
type Config struct {
	Problem    ddo.Problem
	Relaxation ddo.Relaxation

	Ranking     ddo.StateRanking
	WidthPolicy ddo.WidthHeuristic
	Cutoff      ddo.Cutoff
	Cache       *ddo.Cache
	Dominance   ddo.Dominance
	MustKeep    mdd.MustKeepFunc

	NumWorkers int
	CutsetType mdd.CutsetType

	// FringeFactory builds the fringe implementation; nil defaults to a
	// NoDupFringe over Ranking (the usual choice — duplicate states across
	// subproblems are wasted compiles).
	FringeFactory func(ddo.StateRanking) ddo.Fringe

	// OnProgress, if non-nil, is invoked (subject to internal throttling)
	// with a snapshot of the solver's current bounds each time a worker
	// finishes processing a subproblem. It must not block and must not call
	// back into the Solver.
	OnProgress func(ProgressSnapshot)
}

// ProgressSnapshot is a point-in-time view of the solve, suitable for a CLI
// progress bar.
type ProgressSnapshot struct {
	RunID     string
	BestLB    int64
	BestUB    int64
	Explored  int64
	Ongoing   int
	FringeLen int
}

// Completion is the terminal result of Maximize (§6 "Solver capability").
type Completion struct {
	IsExact      bool
	BestValue    *int64
	BestSolution []ddo.Decision
}

// ErrAborted describes a solve that stopped before proving optimality. The
// package declares it but Maximize does not return it: an early stop (a
// compile's Cutoff fired or ctx was cancelled) shows up as a Completion with
// IsExact false and whatever best_lb was found.
var ErrAborted = errors.New("bnb: solve aborted before proving optimality")

// Solver is the parallel branch-and-bound driver itself (§4.F).
type Solver struct {
	cfg   Config
	runID string

	mu        sync.Mutex
	cond      *sync.Cond
	fringe    ddo.Fringe
	ongoing   int
	explored  int64
	bestLB    int64
	bestUB    int64
	bestSol   []ddo.Decision
	abortErr  error
	workerUBs []int64 // per-worker tracker; ddo.MaxValue when idle

	stats        *parallel.ExecutionStats
	stallDetect  *parallel.StallDetector
	progressRate *parallel.RateLimiter
}

// New builds a Solver ready for Maximize. The Problem and Relaxation fields of
// cfg must be set; everything else has a workable default.
func New(cfg Config) *Solver {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.Ranking == nil {
		cfg.Ranking = ddo.NaturalRanking{}
	}
	if cfg.Cutoff == nil {
		cfg.Cutoff = ddo.CutoffNever{}
	}
	if cfg.Dominance == nil {
		cfg.Dominance = ddo.NoDominance{}
	}
	if cfg.FringeFactory == nil {
		cfg.FringeFactory = func(r ddo.StateRanking) ddo.Fringe { return ddo.NewNoDupFringe(r) }
	}

	s := &Solver{
		cfg:          cfg,
		runID:        uuid.NewString(),
		fringe:       cfg.FringeFactory(cfg.Ranking),
		bestLB:       ddo.MinValue,
		bestUB:       ddo.MaxValue,
		workerUBs:    make([]int64, cfg.NumWorkers),
		stats:        parallel.NewExecutionStats(),
		stallDetect:  parallel.NewStallDetector(30*time.Second, 5*time.Second),
		progressRate: parallel.NewRateLimiter(20),
	}
	s.cond = sync.NewCond(&s.mu)
	for i := range s.workerUBs {
		s.workerUBs[i] = ddo.MaxValue
	}
	return s
}

// SetPrimal seeds the solver with a known feasible solution before Maximize
// runs, so the search starts with a non-trivial lower bound (§6 "Solver
// capability: set_primal").
func (s *Solver) SetPrimal(value int64, solution []ddo.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.bestLB {
		s.bestLB = value
		s.bestSol = append([]ddo.Decision(nil), solution...)
	}
}

// BestLowerBound returns the best proven-feasible value found so far.
func (s *Solver) BestLowerBound() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestLB
}

// BestUpperBound returns the tightest proven upper bound on the optimum
// found so far.
func (s *Solver) BestUpperBound() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestUB
}

// Stats exposes the execution statistics collector for this solve.
func (s *Solver) Stats() *parallel.ExecutionStats { return s.stats }

// RunID is a unique identifier for this solve, included in every progress
// snapshot so a caller driving several solves concurrently can tell their
// progress streams apart.
func (s *Solver) RunID() string { return s.runID }

// Maximize runs the parallel branch-and-bound search to completion (or
// until ctx is cancelled / Cutoff fires) and returns the best solution
// found (§4.F, §6).
func (s *Solver) Maximize(ctx context.Context) Completion {
	defer s.stallDetect.Shutdown()
	defer s.progressRate.Close()

	root := ddo.SubProblem{
		State: s.cfg.Problem.InitialState(),
		Value: s.cfg.Problem.InitialValue(),
		Path:  nil,
		UB:    ddo.MaxValue,
		Depth: 0,
	}
	s.fringe.Push(root)
	s.stats.RecordSubproblemSubmitted()

	go s.logStallAlerts()

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < s.cfg.NumWorkers; id++ {
		id := id
		g.Go(func() error {
			s.worker(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
	s.stats.Finalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := Completion{IsExact: s.abortErr == nil}
	if s.bestSol != nil || s.bestLB > ddo.MinValue {
		v := s.bestLB
		result.BestValue = &v
		result.BestSolution = append([]ddo.Decision(nil), s.bestSol...)
	}
	return result
}

// logStallAlerts drains the stall detector's alert channel under
// GODDO_DEBUG, until Shutdown closes it when Maximize returns.
func (s *Solver) logStallAlerts() {
	for a := range s.stallDetect.Alerts() {
		telemetry.Log("run %s: worker %d stalled (%s): %s", s.runID, a.WorkerID, a.Description, a.Type)
	}
}

// workload is what a worker observes after locking the critical section,
// per §4.F.2 step 1.
type workload int

const (
	workloadPop workload = iota
	workloadComplete
	workloadAborted
	workloadStarved
)

// worker is one branch-and-bound worker's main loop (§4.F.2).
func (s *Solver) worker(ctx context.Context, id int) {
	diagram := mdd.New()

	for {
		if ctx.Err() != nil {
			s.mu.Lock()
			if s.abortErr == nil {
				s.abortErr = ctx.Err()
				s.fringe.Clear()
				s.cond.Broadcast()
			}
			s.mu.Unlock()
			return
		}
		sp, kind := s.acquireWork(id)
		switch kind {
		case workloadComplete, workloadAborted:
			return
		case workloadStarved:
			if ctx.Err() != nil {
				s.mu.Lock()
				if s.abortErr == nil {
					s.abortErr = ctx.Err()
					s.fringe.Clear()
					s.cond.Broadcast()
				}
				s.mu.Unlock()
				return
			}
			continue
		}

		s.stallDetect.RegisterWorker(id, "compiling subproblem")
		start := time.Now()
		err := s.processSubproblem(diagram, sp, id)
		s.stats.RecordSubproblemExpanded(time.Since(start))
		s.stallDetect.UnregisterWorker(id)

		s.mu.Lock()
		s.ongoing--
		s.workerUBs[id] = ddo.MaxValue
		if err != nil && s.abortErr == nil {
			s.abortErr = err
			s.fringe.Clear()
			s.stats.RecordSubproblemFailed(err)
		}
		s.cond.Broadcast()
		s.mu.Unlock()

		s.emitProgress()
	}
}

// acquireWork implements §4.F.2 step 1 under the critical section.
func (s *Solver) acquireWork(id int) (ddo.SubProblem, workload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.abortErr != nil {
			return ddo.SubProblem{}, workloadAborted
		}
		if s.ongoing == 0 && s.fringe.IsEmpty() {
			// Last worker to observe quiescence proves optimality (§4.F.5).
			s.bestUB = s.bestLB
			s.cond.Broadcast()
			return ddo.SubProblem{}, workloadComplete
		}
		if s.fringe.IsEmpty() {
			s.cond.Wait()
			continue
		}

		top, ok := s.peekTopLocked()
		if ok && top.UB <= s.bestLB {
			s.fringe.Clear()
			continue
		}

		sp, ok := s.fringe.Pop()
		if !ok {
			continue
		}
		s.ongoing++
		s.explored++
		s.workerUBs[id] = sp.UB
		s.stats.RecordFringeDepth(s.fringe.Len())
		return sp, workloadPop
	}
}

// peekTopLocked reports the fringe's current best subproblem without
// removing it, by popping and immediately re-pushing — acceptable since the
// critical section is already held and the fringe operations are O(log n).
func (s *Solver) peekTopLocked() (ddo.SubProblem, bool) {
	sp, ok := s.fringe.Pop()
	if !ok {
		return ddo.SubProblem{}, false
	}
	s.fringe.Push(sp)
	return sp, true
}

// processSubproblem implements §4.F.3.
func (s *Solver) processSubproblem(diagram *mdd.Diagram, sp ddo.SubProblem, workerID int) error {
	s.mu.Lock()
	bestLB := s.bestLB
	s.mu.Unlock()
	if sp.UB <= bestLB {
		return nil
	}

	maxWidth := 0
	if s.cfg.WidthPolicy != nil {
		maxWidth = s.cfg.WidthPolicy.MaxWidth(sp)
	}

	restrictedIn := mdd.CompileInput{
		CompilationType: ddo.Restricted,
		Problem:         s.cfg.Problem,
		Relaxation:      s.cfg.Relaxation,
		Ranking:         s.cfg.Ranking,
		Cache:           s.cfg.Cache,
		Dominance:       s.cfg.Dominance,
		Cutoff:          s.cfg.Cutoff,
		MaxWidth:        maxWidth,
		BestLB:          bestLB,
		Residual:        sp,
		CutsetType:      s.cfg.CutsetType,
		MustKeep:        s.cfg.MustKeep,
	}
	comp, err := diagram.Compile(restrictedIn)
	if err != nil {
		return err
	}
	if comp.BestValue != nil {
		s.publish(*comp.BestValue, diagram)
	}
	if diagram.IsExact() {
		return nil
	}

	s.mu.Lock()
	bestLB = s.bestLB
	s.mu.Unlock()

	relaxedIn := restrictedIn
	relaxedIn.CompilationType = ddo.Relaxed
	relaxedIn.BestLB = bestLB
	comp, err = diagram.Compile(relaxedIn)
	if err != nil {
		return err
	}
	if comp.BestValue != nil && (diagram.IsExact() || diagram.HasExactBestPath()) {
		s.publish(*comp.BestValue, diagram)
		return nil
	}

	s.mu.Lock()
	bestLB = s.bestLB
	s.mu.Unlock()

	diagram.DrainCutset(bestLB, func(child ddo.SubProblem) {
		if child.UB > sp.UB {
			child.UB = sp.UB
		}
		if child.UB <= bestLB {
			return
		}
		s.mu.Lock()
		s.fringe.Push(child)
		s.stats.RecordSubproblemSubmitted()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	return nil
}

// publish implements §4.F.4.
func (s *Solver) publish(value int64, diagram *mdd.Diagram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.bestLB {
		s.bestLB = value
		if sol, ok := diagram.BestSolution(); ok {
			s.bestSol = sol
		}
		s.cond.Broadcast()
	}
}

func (s *Solver) emitProgress() {
	if s.cfg.OnProgress == nil || !s.progressRate.Allow() {
		return
	}
	s.mu.Lock()
	snap := ProgressSnapshot{
		RunID:     s.runID,
		BestLB:    s.bestLB,
		BestUB:    s.bestUB,
		Explored:  s.explored,
		Ongoing:   s.ongoing,
		FringeLen: s.fringe.Len(),
	}
	s.mu.Unlock()
	s.cfg.OnProgress(snap)
}
