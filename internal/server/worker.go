package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/hyperfit/internal/fitness"
	"github.com/cwbudde/hyperfit/internal/opt"
	"github.com/cwbudde/hyperfit/internal/problem"
	"github.com/cwbudde/hyperfit/internal/store"
)

// specFromConfig converts a job config into a problem definition.
func specFromConfig(config JobConfig) *problem.Spec {
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

// runJob executes an optimization job in the background.
// If checkpointStore is not nil and the job has checkpointInterval > 0,
// periodic checkpoints are saved. A trace of best cost per iteration is
// written under dataDir when tracing is available for the backend.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, dataDir, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "function", job.Config.Function, "dims", job.Config.Dims)

	spec := specFromConfig(job.Config)
	if err := spec.Validate(); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	fn, err := spec.BuildFunction()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	record, err := spec.NewRecord()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	optimizer, err := spec.BuildOptimizer(fn)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	traceWriter, err := store.NewTraceWriter(dataDir, jobID, false)
	if err != nil {
		slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		traceWriter = nil
	} else {
		defer traceWriter.Close()
	}

	// The PSO backend reports per-iteration progress; hook job updates,
	// tracing, checkpointing and cancellation into it. The mayfly backend
	// runs opaquely and reports only its final result.
	if pso, ok := optimizer.(*opt.PSO); ok {
		interval := time.Duration(job.Config.CheckpointInterval) * time.Second
		lastCheckpoint := time.Now()

		pso.OnIteration = func(iter int, best []float64, cost float64) {
			if math.IsInf(cost, 1) {
				return // nothing admissible found yet
			}
			bestNorm := append([]float64(nil), best...)
			bestReal := make([]float64, len(bestNorm))
			if err := fitness.Denormalize(bestNorm, record.Min, record.Range, bestReal); err != nil {
				slog.Error("Failed to de-normalize best point", "job_id", jobID, "error", err)
				return
			}

			jm.UpdateJob(jobID, func(j *Job) {
				j.Iterations = iter
				j.BestNorm = bestNorm
				j.BestReal = bestReal
				j.BestCost = cost
				if iter == 0 {
					j.InitialCost = cost
				}
			})

			if traceWriter != nil {
				entry := store.TraceEntry{Iteration: iter, Cost: cost, Timestamp: time.Now()}
				if err := traceWriter.Write(entry); err != nil {
					slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
				}
			}

			if checkpointStore != nil && interval > 0 && time.Since(lastCheckpoint) >= interval {
				lastCheckpoint = time.Now()
				if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
					slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
				}
			}
		}
		pso.Stop = func() bool {
			select {
			case <-ctx.Done():
				return true
			default:
				return false
			}
		}
	}

	// Check for cancellation before starting the expensive part.
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()

	// Progress broadcasting is throttled by a monitor goroutine rather
	// than emitted per iteration.
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, start, progressDone)

	bestNorm, bestCost := optimizer.Run(opt.Bind(fn, record), spec.Dims)

	close(progressDone)
	elapsed := time.Since(start)

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	if math.IsInf(bestCost, 1) {
		err := fmt.Errorf("no admissible point found in %d iterations", job.Config.Iters)
		markJobFailed(jm, jobID, err)
		return err
	}

	bestReal := make([]float64, len(bestNorm))
	if err := fitness.Denormalize(bestNorm, record.Min, record.Range, bestReal); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestNorm = bestNorm
		j.BestReal = bestReal
		j.BestCost = bestCost
		j.Iterations = job.Config.Iters
		j.EndTime = &endTime
	}); err != nil {
		return err
	}

	if traceWriter != nil {
		if err := traceWriter.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
		}
	}

	// Final checkpoint so a completed run is resumable/inspectable.
	if checkpointStore != nil {
		if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	// Throughput in fitness evaluations per second.
	totalEvals := job.Config.Iters * job.Config.PopSize
	eps := float64(totalEvals) / elapsed.Seconds()

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"best_cost", bestCost,
		"evals_per_second", eps,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Iterations: job.Config.Iters,
		BestCost:   bestCost,
		EPS:        eps,
		Timestamp:  time.Now(),
	})

	return nil
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, startTime time.Time, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			elapsed := time.Since(startTime).Seconds()

			var eps float64
			if elapsed > 0 && job.Iterations > 0 {
				totalEvals := job.Iterations * job.Config.PopSize
				eps = float64(totalEvals) / elapsed
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      job.State,
				Iterations: job.Iterations,
				BestCost:   job.BestCost,
				EPS:        eps,
				Timestamp:  time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// saveCheckpoint saves a checkpoint for the given job
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Skip if no admissible point has been found yet
	if len(job.BestNorm) == 0 {
		slog.Debug("Skipping checkpoint, no best point yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		jobID,
		job.BestNorm,
		job.BestReal,
		job.BestCost,
		job.InitialCost,
		job.Iterations,
		job.Config,
	)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Checkpoint saved",
		"job_id", jobID,
		"iteration", job.Iterations,
		"best_cost", job.BestCost,
	)

	return nil
}
