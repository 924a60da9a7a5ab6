package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"log/slog"

	"github.com/cwbudde/hyperfit/internal/fitness"
	"github.com/cwbudde/hyperfit/internal/opt"
	"github.com/cwbudde/hyperfit/internal/problem"
	"github.com/cwbudde/hyperfit/internal/store"
)

var (
	problemPath string
	function    string
	dims        int
	iters       int
	popSize     int
	seed        int64
	workers     int
	backend     string
	runDataDir  string
	savePath    string
	noPlot      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Runs one optimization locally and prints the best point found.
The problem is defined either by flags or by a YAML problem file given
with --problem; when a problem file is used the other problem flags are
ignored. With --data the convergence trace and a final checkpoint are
written under the given directory.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&problemPath, "problem", "", "Problem definition YAML file")
	runCmd.Flags().StringVar(&function, "function", "sphere", "Fitness function name")
	runCmd.Flags().IntVar(&dims, "dims", problem.DefaultDims, "Problem dimensionality")
	runCmd.Flags().IntVar(&iters, "iters", problem.DefaultIters, "Max iterations")
	runCmd.Flags().IntVar(&popSize, "pop", problem.DefaultPop, "Population size")
	runCmd.Flags().Int64Var(&seed, "seed", problem.DefaultSeed, "Random seed")
	runCmd.Flags().IntVar(&workers, "workers", problem.DefaultWorkers, "Parallel evaluation workers (pso only)")
	runCmd.Flags().StringVar(&backend, "optimizer", "pso", "Optimizer backend: pso, mayfly")
	runCmd.Flags().StringVar(&runDataDir, "data", "", "Write trace and checkpoint under this directory")
	runCmd.Flags().StringVar(&savePath, "save-problem", "", "Write the resolved problem definition to this YAML file")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "Suppress the convergence plot")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	spec, err := resolveSpec()
	if err != nil {
		return err
	}

	slog.Info("Starting optimization",
		"function", spec.Function,
		"dims", spec.Dims,
		"optimizer", spec.Optimizer.Kind,
		"iters", spec.Optimizer.Iters,
	)

	fn, err := spec.BuildFunction()
	if err != nil {
		return err
	}
	record, err := spec.NewRecord()
	if err != nil {
		return err
	}
	optimizer, err := spec.BuildOptimizer(fn)
	if err != nil {
		return err
	}

	jobID := uuid.New().String()

	var traceWriter *store.TraceWriter
	if runDataDir != "" {
		traceWriter, err = store.NewTraceWriter(runDataDir, jobID, false)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer traceWriter.Close()
	}

	// Collect the per-iteration best cost for the plot; the mayfly
	// backend reports only its final result, so the plot is PSO-only.
	var costs []float64
	initialCost := math.Inf(1)
	if pso, ok := optimizer.(*opt.PSO); ok {
		pso.OnIteration = func(iter int, best []float64, cost float64) {
			if math.IsInf(cost, 1) {
				return // nothing admissible found yet
			}
			if math.IsInf(initialCost, 1) {
				initialCost = cost
			}
			costs = append(costs, cost)
			if traceWriter != nil {
				entry := store.TraceEntry{Iteration: iter, Cost: cost, Timestamp: time.Now()}
				if err := traceWriter.Write(entry); err != nil {
					slog.Warn("Failed to write trace entry", "error", err)
				}
			}
		}
	}

	start := time.Now()
	bestNorm, bestCost := optimizer.Run(opt.Bind(fn, record), spec.Dims)
	elapsed := time.Since(start)

	if math.IsInf(bestCost, 1) {
		return fmt.Errorf("no admissible point found in %d iterations", spec.Optimizer.Iters)
	}

	bestReal := make([]float64, len(bestNorm))
	if err := fitness.Denormalize(bestNorm, record.Min, record.Range, bestReal); err != nil {
		return err
	}

	totalEvals := spec.Optimizer.Iters * spec.Optimizer.Pop
	eps := float64(totalEvals) / elapsed.Seconds()

	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"initial_cost", initialCost,
		"final_cost", bestCost,
		"evals_per_second", fmt.Sprintf("%.0f", eps),
	)

	if !noPlot && len(costs) > 1 {
		fmt.Println(asciigraph.Plot(costs,
			asciigraph.Height(10),
			asciigraph.Caption(fmt.Sprintf("best cost over %d iterations", len(costs))),
		))
		fmt.Println()
	}

	fmt.Printf("%s (%s, %d dims): cost %.6g", spec.Function, spec.Optimizer.Kind, spec.Dims, bestCost)
	if !math.IsInf(initialCost, 1) {
		fmt.Printf(" (from %.6g)", initialCost)
	}
	fmt.Printf(", %.0f evals/sec\n", eps)
	fmt.Printf("best point: %s\n", formatPoint(bestReal))

	if runDataDir != "" {
		if err := saveRunCheckpoint(jobID, spec, bestNorm, bestReal, bestCost, initialCost); err != nil {
			return err
		}
		fmt.Printf("trace and checkpoint written under %s (job %s)\n", runDataDir, jobID)
	}

	if savePath != "" {
		if err := problem.Save(savePath, spec); err != nil {
			return err
		}
		fmt.Printf("problem definition written to %s\n", savePath)
	}

	return nil
}

// resolveSpec builds the problem definition from the --problem file or,
// absent one, from the individual flags.
func resolveSpec() (*problem.Spec, error) {
	if problemPath != "" {
		return problem.Load(problemPath)
	}
	spec := &problem.Spec{
		Function: function,
		Dims:     dims,
		Optimizer: problem.OptimizerSpec{
			Kind:    backend,
			Iters:   iters,
			Pop:     popSize,
			Seed:    seed,
			Workers: workers,
		},
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func saveRunCheckpoint(jobID string, spec *problem.Spec, bestNorm, bestReal []float64, bestCost, initialCost float64) error {
	fs, err := store.NewFSStore(runDataDir)
	if err != nil {
		return err
	}
	config := store.JobConfig{
		Function:  spec.Function,
		Dims:      spec.Dims,
		Min:       spec.Min,
		Range:     spec.Range,
		Optimizer: spec.Optimizer.Kind,
		Iters:     spec.Optimizer.Iters,
		PopSize:   spec.Optimizer.Pop,
		Seed:      spec.Optimizer.Seed,
		Workers:   spec.Optimizer.Workers,
	}
	if math.IsInf(initialCost, 1) {
		initialCost = bestCost // mayfly backend reports no trajectory
	}
	checkpoint := store.NewCheckpoint(jobID, bestNorm, bestReal, bestCost, initialCost, spec.Optimizer.Iters, config)
	if err := fs.SaveCheckpoint(jobID, checkpoint); err != nil {
		return err
	}
	return nil
}

func formatPoint(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
