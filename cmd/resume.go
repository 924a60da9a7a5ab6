package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"log/slog"

	"github.com/cwbudde/hyperfit/internal/fitness"
	"github.com/cwbudde/hyperfit/internal/opt"
	"github.com/cwbudde/hyperfit/internal/problem"
	"github.com/cwbudde/hyperfit/internal/store"
)

var (
	resumeDataDir string
	resumeIters   int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume an optimization from its checkpoint",
	Long: `Loads the checkpoint saved for a job and continues optimizing with the
same problem configuration. A checkpoint records the best point found,
not the swarm state, so resuming restarts the search and keeps whichever
result is better. The trace file is appended, preserving history across
resumes.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Iterations for the resumed run (0 = same as original)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	fs, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return err
	}
	checkpoint, err := fs.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint is not resumable: %w", err)
	}

	config := checkpoint.Config
	if resumeIters > 0 {
		config.Iters = resumeIters
	}
	if err := checkpoint.IsCompatible(config); err != nil {
		return err
	}

	spec := specFromJobConfig(config)
	// Re-running the original seed would retrace the same trajectory, so
	// the resumed run is offset by how far the job already got.
	spec.Optimizer.Seed += int64(checkpoint.Iteration)

	if err := spec.Validate(); err != nil {
		return err
	}

	slog.Info("Resuming job",
		"job_id", jobID,
		"function", spec.Function,
		"from_iteration", checkpoint.Iteration,
		"checkpoint_cost", checkpoint.BestCost,
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

	traceWriter, err := store.NewTraceWriter(resumeDataDir, jobID, true)
	if err != nil {
		slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		traceWriter = nil
	} else {
		defer traceWriter.Close()
	}

	baseIteration := checkpoint.Iteration
	if pso, ok := optimizer.(*opt.PSO); ok {
		pso.OnIteration = func(iter int, best []float64, cost float64) {
			if math.IsInf(cost, 1) || traceWriter == nil {
				return
			}
			entry := store.TraceEntry{Iteration: baseIteration + iter, Cost: cost, Timestamp: time.Now()}
			if err := traceWriter.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
	}

	start := time.Now()
	bestNorm, bestCost := optimizer.Run(opt.Bind(fn, record), spec.Dims)
	elapsed := time.Since(start)

	// Keep whichever result is better.
	if math.IsInf(bestCost, 1) || bestCost > checkpoint.BestCost {
		fmt.Printf("resumed run did not improve on checkpoint (%.6g), keeping it\n", checkpoint.BestCost)
		return nil
	}

	bestReal := make([]float64, len(bestNorm))
	if err := fitness.Denormalize(bestNorm, record.Min, record.Range, bestReal); err != nil {
		return err
	}

	updated := store.NewCheckpoint(
		jobID,
		bestNorm,
		bestReal,
		bestCost,
		checkpoint.InitialCost,
		baseIteration+config.Iters,
		config,
	)
	if err := fs.SaveCheckpoint(jobID, updated); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Resume complete",
		"job_id", jobID,
		"elapsed", elapsed,
		"previous_cost", checkpoint.BestCost,
		"best_cost", bestCost,
	)

	fmt.Printf("improved cost %.6g -> %.6g after %d more iterations\n",
		checkpoint.BestCost, bestCost, config.Iters)
	fmt.Printf("best point: %s\n", formatPoint(bestReal))

	return nil
}

// specFromJobConfig converts a stored job config back into a problem
// definition.
func specFromJobConfig(config store.JobConfig) *problem.Spec {
	return &problem.Spec{
		Function: config.Function,
		Dims:     config.Dims,
		Min:      config.Min,
		Range:    config.Range,
		Optimizer: problem.OptimizerSpec{
			Kind:    config.Optimizer,
			Iters:   config.Iters,
			Pop:     config.PopSize,
			Seed:    config.Seed,
			Workers: config.Workers,
		},
	}
}
