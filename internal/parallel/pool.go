// Package parallel provides monitoring and throttling utilities for the
// branch-and-bound driver's worker goroutines (package bnb): execution
// statistics, stall detection, and progress-event rate limiting. The driver
// itself owns the worker loop and the shared fringe directly rather than
// routing work through a task-channel pool — a fixed number of goroutines,
// each repeatedly locking a mutex, popping one subproblem, and unlocking
// before doing any real work, is the literal shape the B&B algorithm calls
// for, not a general-purpose scheduler.
package parallel

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ExecutionStats collects statistics for a single solve run: how many
// subproblems were processed, how long it took, and whether any subproblem
// failed along the way.
type ExecutionStats struct {
	mu sync.RWMutex

	StartTime          time.Time
	EndTime            time.Time
	TotalExecutionTime time.Duration

	SubproblemsSubmitted int64
	SubproblemsCompleted int64
	SubproblemsFailed    int64
	SubproblemsCancelled int64

	PeakWorkerCount    int
	AverageWorkerCount float64

	PeakFringeDepth    int
	AverageFringeDepth float64
	FringeDepthStdDev  float64

	SubproblemsPerSecond  float64
	AverageExpansionTime  time.Duration

	LastError  error
	ErrorCount int64

	GoroutineCount int

	workerCountHistory  []workerCountSample
	fringeDepthHistory  []fringeDepthSample
	expansionDurations  []time.Duration
}

type workerCountSample struct {
	timestamp time.Time
	count     int
}

type fringeDepthSample struct {
	timestamp time.Time
	depth     int
}

// NewExecutionStats creates a new, running statistics collector.
func NewExecutionStats() *ExecutionStats {
	return &ExecutionStats{
		StartTime:          time.Now(),
		workerCountHistory: make([]workerCountSample, 0, 1000),
		fringeDepthHistory: make([]fringeDepthSample, 0, 1000),
		expansionDurations: make([]time.Duration, 0, 1000),
	}
}

// RecordSubproblemSubmitted records that a subproblem was pushed onto the
// fringe (initial seed or a cutset node re-enqueued after a relaxed
// compile).
func (es *ExecutionStats) RecordSubproblemSubmitted() {
	atomic.AddInt64(&es.SubproblemsSubmitted, 1)
}

// RecordSubproblemExpanded records that a worker finished compiling one
// subproblem's residual diagram.
func (es *ExecutionStats) RecordSubproblemExpanded(duration time.Duration) {
	atomic.AddInt64(&es.SubproblemsCompleted, 1)
	es.mu.Lock()
	es.expansionDurations = append(es.expansionDurations, duration)
	es.mu.Unlock()
}

// RecordSubproblemFailed records that compiling a subproblem returned an
// error (for instance ErrCutoff when the Cutoff fired).
func (es *ExecutionStats) RecordSubproblemFailed(err error) {
	atomic.AddInt64(&es.SubproblemsFailed, 1)
	atomic.AddInt64(&es.ErrorCount, 1)
	es.mu.Lock()
	es.LastError = err
	es.mu.Unlock()
}

// RecordSubproblemCancelled records that a subproblem was dropped without
// expansion because the driver was already stopping (cutoff fired, or
// another worker proved it could no longer beat the incumbent).
func (es *ExecutionStats) RecordSubproblemCancelled() {
	atomic.AddInt64(&es.SubproblemsCancelled, 1)
}

// RecordWorkerCount records the current number of live worker goroutines.
func (es *ExecutionStats) RecordWorkerCount(count int) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if count > es.PeakWorkerCount {
		es.PeakWorkerCount = count
	}
	es.workerCountHistory = append(es.workerCountHistory, workerCountSample{time.Now(), count})
	if len(es.workerCountHistory) > 1000 {
		es.workerCountHistory = es.workerCountHistory[1:]
	}
}

// RecordFringeDepth records the fringe's size immediately after a push or
// pop, for tracking memory growth over the course of a solve.
func (es *ExecutionStats) RecordFringeDepth(depth int) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if depth > es.PeakFringeDepth {
		es.PeakFringeDepth = depth
	}
	es.fringeDepthHistory = append(es.fringeDepthHistory, fringeDepthSample{time.Now(), depth})
	if len(es.fringeDepthHistory) > 1000 {
		es.fringeDepthHistory = es.fringeDepthHistory[1:]
	}
}

// UpdateResourceUsage refreshes the live goroutine count.
func (es *ExecutionStats) UpdateResourceUsage() {
	es.mu.Lock()
	es.GoroutineCount = runtime.NumGoroutine()
	es.mu.Unlock()
}

// Finalize computes derived statistics once the solve has stopped.
func (es *ExecutionStats) Finalize() {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.EndTime = time.Now()
	es.TotalExecutionTime = es.EndTime.Sub(es.StartTime)

	if len(es.workerCountHistory) > 0 {
		total := 0
		for _, s := range es.workerCountHistory {
			total += s.count
		}
		es.AverageWorkerCount = float64(total) / float64(len(es.workerCountHistory))
	}

	if len(es.fringeDepthHistory) > 0 {
		depths := make([]float64, len(es.fringeDepthHistory))
		for i, s := range es.fringeDepthHistory {
			depths[i] = float64(s.depth)
		}
		mean, variance := stat.MeanVariance(depths, nil)
		es.AverageFringeDepth = mean
		es.FringeDepthStdDev = math.Sqrt(variance)
	}

	if len(es.expansionDurations) > 0 {
		total := time.Duration(0)
		for _, d := range es.expansionDurations {
			total += d
		}
		es.AverageExpansionTime = total / time.Duration(len(es.expansionDurations))
	}

	if es.TotalExecutionTime > 0 {
		es.SubproblemsPerSecond = float64(es.SubproblemsCompleted) / es.TotalExecutionTime.Seconds()
	}
}

// Snapshot returns a copy of the current statistics, safe to read
// concurrently with the live collector.
func (es *ExecutionStats) Snapshot() ExecutionStats {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return ExecutionStats{
		StartTime:            es.StartTime,
		EndTime:              es.EndTime,
		TotalExecutionTime:   es.TotalExecutionTime,
		SubproblemsSubmitted: atomic.LoadInt64(&es.SubproblemsSubmitted),
		SubproblemsCompleted: atomic.LoadInt64(&es.SubproblemsCompleted),
		SubproblemsFailed:    atomic.LoadInt64(&es.SubproblemsFailed),
		SubproblemsCancelled: atomic.LoadInt64(&es.SubproblemsCancelled),
		PeakWorkerCount:      es.PeakWorkerCount,
		AverageWorkerCount:   es.AverageWorkerCount,
		PeakFringeDepth:      es.PeakFringeDepth,
		AverageFringeDepth:   es.AverageFringeDepth,
		FringeDepthStdDev:    es.FringeDepthStdDev,
		SubproblemsPerSecond: es.SubproblemsPerSecond,
		AverageExpansionTime: es.AverageExpansionTime,
		LastError:            es.LastError,
		ErrorCount:           atomic.LoadInt64(&es.ErrorCount),
		GoroutineCount:       es.GoroutineCount,
	}
}

// String renders a human-readable summary, used by the CLI's verbose
// post-solve report.
func (es *ExecutionStats) String() string {
	s := es.Snapshot()

	var lastErr string
	if s.LastError != nil {
		lastErr = s.LastError.Error()
	} else {
		lastErr = "none"
	}

	return fmt.Sprintf("ExecutionStats{\n"+
		"  Duration: %v\n"+
		"  Subproblems: %d submitted, %d completed, %d failed, %d cancelled\n"+
		"  Workers: peak=%d, avg=%.1f\n"+
		"  Fringe: peak_depth=%d, avg_depth=%.1f, stddev_depth=%.1f\n"+
		"  Throughput: %.1f subproblems/sec, avg_expansion=%v\n"+
		"  Errors: %d total, last=%s\n"+
		"  Goroutines: %d\n"+
		"}",
		s.TotalExecutionTime,
		s.SubproblemsSubmitted, s.SubproblemsCompleted, s.SubproblemsFailed, s.SubproblemsCancelled,
		s.PeakWorkerCount, s.AverageWorkerCount,
		s.PeakFringeDepth, s.AverageFringeDepth, s.FringeDepthStdDev,
		s.SubproblemsPerSecond, s.AverageExpansionTime,
		s.ErrorCount, lastErr,
		s.GoroutineCount)
}

// StallDetector watches for workers that have gone quiet — a worker stuck
// inside a user-supplied Problem/Relaxation callback, or a driver-wide
// stall where every worker is blocked waiting on the fringe's mutex with
// nothing left to do but the solve hasn't reported completion. It mirrors
// the teacher's deadlock-detection approach: track last-seen timestamps per
// worker and alert when one goes stale, rather than trying to prove a true
// deadlock exists.
type StallDetector struct {
	mu sync.RWMutex

	timeoutDuration time.Duration
	checkInterval   time.Duration

	activeWorkers map[int]*workerInfo
	lastActivity  time.Time
	stallCount    int64

	shutdownChan chan struct{}
	stoppedChan  chan struct{}
	alertChan    chan StallAlert
	once         sync.Once
}

type workerInfo struct {
	id          int
	startTime   time.Time
	lastUpdate  time.Time
	description string
}

// StallAlert reports one detected stall.
type StallAlert struct {
	Type        StallAlertType
	WorkerID    int
	Description string
	Timestamp   time.Time
}

// StallAlertType discriminates the kind of stall a StallAlert reports.
type StallAlertType int

const (
	AlertWorkerStuck StallAlertType = iota
	AlertDriverStall
)

func (t StallAlertType) String() string {
	switch t {
	case AlertWorkerStuck:
		return "worker-stuck"
	case AlertDriverStall:
		return "driver-stall"
	default:
		return "unknown"
	}
}

// NewStallDetector creates a detector. A zero timeoutDuration defaults to
// 30s, a zero checkInterval to 5s.
func NewStallDetector(timeoutDuration, checkInterval time.Duration) *StallDetector {
	if timeoutDuration <= 0 {
		timeoutDuration = 30 * time.Second
	}
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}

	sd := &StallDetector{
		timeoutDuration: timeoutDuration,
		checkInterval:   checkInterval,
		activeWorkers:   make(map[int]*workerInfo),
		lastActivity:    time.Now(),
		shutdownChan:    make(chan struct{}),
		stoppedChan:     make(chan struct{}),
		alertChan:       make(chan StallAlert, 10),
	}
	go sd.monitor()
	return sd
}

// RegisterWorker marks worker id as having started work described by
// description (normally "compiling subproblem <n>").
func (sd *StallDetector) RegisterWorker(id int, description string) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.activeWorkers[id] = &workerInfo{id: id, startTime: time.Now(), lastUpdate: time.Now(), description: description}
	sd.lastActivity = time.Now()
}

// Touch refreshes worker id's last-seen timestamp.
func (sd *StallDetector) Touch(id int) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if w, ok := sd.activeWorkers[id]; ok {
		w.lastUpdate = time.Now()
	}
	sd.lastActivity = time.Now()
}

// UnregisterWorker marks worker id idle (waiting on the fringe, or exited).
func (sd *StallDetector) UnregisterWorker(id int) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	delete(sd.activeWorkers, id)
}

// Alerts returns the channel stall alerts are delivered on.
func (sd *StallDetector) Alerts() <-chan StallAlert { return sd.alertChan }

// StallCount reports how many stalls have been flagged so far.
func (sd *StallDetector) StallCount() int64 {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	return sd.stallCount
}

// Shutdown stops the monitor goroutine and closes the alert channel, so a
// consumer ranging over Alerts() terminates. Waits for the monitor to
// actually exit before closing alertChan, so a check() in flight can never
// send on a closed channel. Safe to call more than once.
func (sd *StallDetector) Shutdown() {
	sd.once.Do(func() {
		close(sd.shutdownChan)
		<-sd.stoppedChan
		close(sd.alertChan)
	})
}

func (sd *StallDetector) monitor() {
	defer close(sd.stoppedChan)
	ticker := time.NewTicker(sd.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sd.check()
		case <-sd.shutdownChan:
			return
		}
	}
}

func (sd *StallDetector) check() {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	now := time.Now()
	for id, w := range sd.activeWorkers {
		if now.Sub(w.lastUpdate) > sd.timeoutDuration {
			sd.emit(StallAlert{
				Type:        AlertWorkerStuck,
				WorkerID:    id,
				Description: fmt.Sprintf("worker %d stuck in %q for %v", id, w.description, now.Sub(w.startTime)),
				Timestamp:   now,
			})
			sd.stallCount++
		}
	}

	if now.Sub(sd.lastActivity) > sd.timeoutDuration*2 && len(sd.activeWorkers) > 0 {
		sd.emit(StallAlert{
			Type:        AlertDriverStall,
			Description: fmt.Sprintf("no worker activity for %v with %d workers still registered", now.Sub(sd.lastActivity), len(sd.activeWorkers)),
			Timestamp:   now,
		})
		sd.stallCount++
	}
}

func (sd *StallDetector) emit(a StallAlert) {
	select {
	case sd.alertChan <- a:
	default:
	}
}

// RateLimiter throttles progress-event emission so a fast solve doesn't
// flood the CLI's renderer with one update per subproblem.
type RateLimiter struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	shutdown chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a limiter allowing up to eventsPerSecond Wait
// returns per second. A non-positive eventsPerSecond defaults to 10.
func NewRateLimiter(eventsPerSecond int) *RateLimiter {
	if eventsPerSecond <= 0 {
		eventsPerSecond = 10
	}
	interval := time.Second / time.Duration(eventsPerSecond)
	rl := &RateLimiter{
		ticker:   time.NewTicker(interval),
		tokens:   make(chan struct{}, eventsPerSecond),
		shutdown: make(chan struct{}),
	}
	for i := 0; i < eventsPerSecond; i++ {
		rl.tokens <- struct{}{}
	}
	go rl.refill()
	return rl
}

func (rl *RateLimiter) refill() {
	for {
		select {
		case <-rl.ticker.C:
			select {
			case rl.tokens <- struct{}{}:
			default:
			}
		case <-rl.shutdown:
			rl.ticker.Stop()
			return
		}
	}
}

// Allow reports whether a progress event may be emitted right now, without
// blocking. It never holds up a worker goroutine.
func (rl *RateLimiter) Allow() bool {
	select {
	case <-rl.tokens:
		return true
	default:
		return false
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-rl.shutdown:
		return ErrLimiterShutdown
	}
}

// Close releases the limiter's background goroutine.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.shutdown) })
}

// ErrLimiterShutdown is returned by Wait after Close.
var ErrLimiterShutdown = fmt.Errorf("rate limiter has been shutdown")
