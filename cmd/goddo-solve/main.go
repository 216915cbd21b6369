// Command goddo-solve runs the parallel branch-and-bound solver (package
// bnb) over one of the bundled reference problems (package examples/*) and
// prints a styled progress stream and final summary, the way cmd/bw prints
// its own search/robot output with lipgloss-rendered sections instead of a
// full TUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/gitrdm/goddo/examples/knapsack"
	"github.com/gitrdm/goddo/examples/misp"
	"github.com/gitrdm/goddo/internal/telemetry"
	"github.com/gitrdm/goddo/pkg/bnb"
	"github.com/gitrdm/goddo/pkg/config"
	"github.com/gitrdm/goddo/pkg/ddo"
	"github.com/gitrdm/goddo/pkg/ddo/heuristics"
	"github.com/gitrdm/goddo/pkg/ddo/mdd"
	"github.com/gitrdm/goddo/pkg/viz"
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleValue   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleSummary = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("63"))
)

func main() {
	problemFlag := flag.String("problem", "knapsack", "reference problem to solve: knapsack|misp")
	sizeFlag := flag.Int("size", 20, "instance size (item/vertex count) when generating a random instance")
	seedFlag := flag.Int64("seed", 1, "random seed for instance generation")
	widthFlag := flag.Int("width", 0, "fixed max layer width (0 = tuning.default_width from config)")
	workersFlag := flag.Int("workers", 0, "worker goroutines (0 = tuning.workers from config, or NumCPU)")
	timeoutFlag := flag.Duration("timeout", 0, "abort the solve after this long (0 = tuning.cutoff_seconds from config, or no limit)")
	configFlag := flag.String("config", "", "path to a goddo.yaml tuning file (optional)")
	dotOutFlag := flag.String("dot-out", "", "write a DOT visualization of the relaxed root diagram to this path")
	svgOutFlag := flag.String("svg-out", "", "write an SVG visualization of the relaxed root diagram to this path")
	quietFlag := flag.Bool("quiet", false, "suppress progress output, print only the final summary")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("config: %v", err)))
		os.Exit(1)
	}

	width := *widthFlag
	if width <= 0 {
		width = cfg.Tuning.DefaultWidth
	}
	workers := *workersFlag
	if workers <= 0 {
		workers = cfg.Tuning.Workers
	}
	timeout := *timeoutFlag
	if timeout <= 0 {
		timeout = time.Duration(cfg.Tuning.CutoffSeconds) * time.Second
	}

	problem, relaxation, label, err := buildProblem(*problemFlag, *sizeFlag, *seedFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(err.Error()))
		os.Exit(1)
	}

	fmt.Println(styleHeader.Render(fmt.Sprintf("goddo-solve — %s", label)))
	fmt.Printf("%s %d   %s %d   %s %s\n",
		styleLabel.Render("width:"), width,
		styleLabel.Render("workers:"), effectiveWorkers(workers),
		styleLabel.Render("timeout:"), timeoutLabel(timeout))

	solverCfg := bnb.Config{
		Problem:     problem,
		Relaxation:  relaxation,
		Ranking:     heuristics.MaxValueRanking{},
		WidthPolicy: heuristics.NewFixedWidth(width),
		Cache:       ddo.NewCache(),
		NumWorkers:  workers,
	}
	if timeout > 0 {
		solverCfg.Cutoff = heuristics.NewTimeCutoff(timeout)
	}
	if !*quietFlag {
		solverCfg.OnProgress = printProgress
	}

	solver := bnb.New(solverCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, styleWarn.Render("\ninterrupted, stopping workers..."))
		cancel()
	}()

	start := time.Now()
	result := solver.Maximize(ctx)
	elapsed := time.Since(start)

	printSummary(result, solver, elapsed)

	if *dotOutFlag != "" || *svgOutFlag != "" {
		exportVisualization(problem, relaxation, width, result, *dotOutFlag, *svgOutFlag, label)
	}
}

func buildProblem(name string, size int, seed int64) (ddo.Problem, ddo.Relaxation, string, error) {
	rng := rand.New(rand.NewSource(seed))
	switch name {
	case "knapsack":
		p := randomKnapsack(rng, size)
		return p, knapsack.Relaxation{Problem: p}, fmt.Sprintf("knapsack (%d items)", size), nil
	case "misp":
		p := randomMISP(rng, size)
		return p, misp.Relaxation{Problem: p}, fmt.Sprintf("maximum-weight independent set (%d vertices)", size), nil
	default:
		return nil, nil, "", fmt.Errorf("unknown -problem %q (want knapsack|misp)", name)
	}
}

func randomKnapsack(rng *rand.Rand, n int) *knapsack.Problem {
	items := make([]knapsack.Item, n)
	var totalWeight int64
	for i := range items {
		items[i] = knapsack.Item{Profit: int64(1 + rng.Intn(100)), Weight: int64(1 + rng.Intn(50))}
		totalWeight += items[i].Weight
	}
	return &knapsack.Problem{Capacity: totalWeight / 2, Items: items}
}

func randomMISP(rng *rand.Rand, n int) *misp.Problem {
	weights := make([]int64, n)
	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
		weights[i] = int64(1 + rng.Intn(50))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < 0.15 {
				adj[i][j] = true
				adj[j][i] = true
			}
		}
	}
	return &misp.Problem{Graph: misp.Graph{Weights: weights, Adjacent: adj}}
}

func effectiveWorkers(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.NumCPU()
}

func timeoutLabel(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

var lastProgressAt time.Time

func printProgress(p bnb.ProgressSnapshot) {
	now := time.Now()
	if !lastProgressAt.IsZero() && now.Sub(lastProgressAt) < 150*time.Millisecond {
		return
	}
	lastProgressAt = now
	fmt.Printf("\r%s lb=%s ub=%s explored=%s fringe=%s workers=%d   ",
		styleLabel.Render("progress:"),
		styleValue.Render(boundLabel(p.BestLB)),
		boundLabel(p.BestUB),
		humanize.Comma(p.Explored),
		humanize.Comma(int64(p.FringeLen)),
		p.Ongoing)
}

func boundLabel(v int64) string {
	switch v {
	case ddo.MaxValue:
		return "+inf"
	case ddo.MinValue:
		return "-inf"
	default:
		return humanize.Comma(v)
	}
}

func printSummary(result bnb.Completion, solver *bnb.Solver, elapsed time.Duration) {
	fmt.Println()

	status := "OPTIMAL"
	if !result.IsExact {
		status = "ABORTED (best-known incumbent below)"
	}

	value := "infeasible"
	if result.BestValue != nil {
		value = humanize.Comma(*result.BestValue)
	}

	body := fmt.Sprintf(
		"%s  %s\n%s  %s\n%s  %s\n%s  %d decisions\n%s  %s",
		styleLabel.Render("status:"), status,
		styleLabel.Render("best value:"), styleValue.Render(value),
		styleLabel.Render("elapsed:"), elapsed.Round(time.Millisecond),
		styleLabel.Render("solution"), len(result.BestSolution),
		styleLabel.Render("run id:"), solver.RunID(),
	)
	fmt.Println(styleSummary.Render(body))

	telemetry.Log("solve finished: %s", solver.Stats())
}

// exportVisualization recompiles a single relaxed diagram over the whole
// problem at the proven best bound, purely for inspection — the live solve
// never keeps any one worker's diagram around since each worker reuses one
// mdd.Diagram across many subproblems (§4.F.2's per-worker diagram note).
func exportVisualization(problem ddo.Problem, relaxation ddo.Relaxation, width int, result bnb.Completion, dotPath, svgPath, title string) {
	bestLB := ddo.MinValue
	if result.BestValue != nil {
		bestLB = *result.BestValue
	}

	d := mdd.New()
	_, err := d.Compile(mdd.CompileInput{
		CompilationType: ddo.Relaxed,
		Problem:         problem,
		Relaxation:      relaxation,
		Ranking:         heuristics.MaxValueRanking{},
		Cache:           ddo.NewCache(),
		Dominance:       ddo.NoDominance{},
		Cutoff:          ddo.CutoffNever{},
		MaxWidth:        width,
		BestLB:          bestLB,
		Residual: ddo.SubProblem{
			State: problem.InitialState(),
			Value: problem.InitialValue(),
			UB:    ddo.MaxValue,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("visualization compile: %v", err)))
		return
	}

	graph := d.Export()
	if dotPath != "" {
		writeDot(graph, dotPath)
	}
	if svgPath != "" {
		writeSVG(graph, svgPath, title)
	}
}

func writeDot(g mdd.ExportGraph, path string) {
	out, err := viz.Dot(g, viz.DefaultOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("dot export: %v", err)))
		return
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("dot export: %v", err)))
		return
	}
	fmt.Printf("%s %s\n", styleLabel.Render("dot written to:"), path)
}

func writeSVG(g mdd.ExportGraph, path, title string) {
	err := viz.Render(g, viz.RenderOptions{Path: path, Title: title, Viz: viz.DefaultOptions()})
	if err != nil {
		fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("svg export: %v", err)))
		return
	}
	fmt.Printf("%s %s\n", styleLabel.Render("svg written to:"), path)
}
