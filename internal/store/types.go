package store

import (
	"fmt"
	"math"
	"time"
)

// JobConfig holds configuration for an optimization job (checkpoint copy).
// This avoids import cycles with the server package.
type JobConfig struct {
	Function           string    `json:"function"`
	Dims               int       `json:"dims"`
	Min                []float64 `json:"min,omitempty"`   // explicit domain override
	Range              []float64 `json:"range,omitempty"` // explicit domain override
	Optimizer          string    `json:"optimizer"`       // pso, mayfly
	Iters              int       `json:"iters"`
	PopSize            int       `json:"popSize"`
	Seed               int64     `json:"seed"`
	Workers            int       `json:"workers,omitempty"`
	CheckpointInterval int       `json:"checkpointInterval,omitempty"` // Checkpoint every N seconds (0 = disabled)
}

// Checkpoint represents a saved optimization state that can be resumed
// later. All fields are serialized to JSON for persistence.
//
// The checkpoint saves the best point found so far, in both normalized
// and real coordinates, but not the optimizer's internal state (swarm
// positions, velocities). Resuming therefore restarts the optimizer with
// a fresh population; the best cost can only improve, but convergence
// will differ slightly from an uninterrupted run. Saving full swarm state
// would tie the checkpoint format to each optimizer backend, which is not
// worth it for runs this cheap to reseed.
type Checkpoint struct {
	// JobID is the unique identifier for this optimization job.
	JobID string `json:"jobId"`

	// BestNorm is the best point in normalized unit-hypercube
	// coordinates, the optimizer's native representation.
	BestNorm []float64 `json:"bestNorm"`

	// BestReal is the same point de-normalized into the problem's real
	// domain.
	BestReal []float64 `json:"bestReal"`

	// BestCost is the fitness achieved by BestNorm. It is always finite:
	// a run that never found an admissible point has nothing worth
	// checkpointing.
	BestCost float64 `json:"bestCost"`

	// InitialCost is the best cost of the initial population, kept for
	// improvement tracking.
	InitialCost float64 `json:"initialCost"`

	// Iteration is the iteration count when this checkpoint was created.
	Iteration int `json:"iteration"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during
	// resume: a checkpoint only resumes onto the same problem geometry.
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the
// coordinate payload. Used for listing checkpoints efficiently.
type CheckpointInfo struct {
	JobID     string    `json:"jobId"`
	BestCost  float64   `json:"bestCost"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
	Function  string    `json:"function"`
	Dims      int       `json:"dims"`
	Optimizer string    `json:"optimizer"`
}

// NewCheckpoint creates a checkpoint from job state.
func NewCheckpoint(jobID string, bestNorm, bestReal []float64, bestCost, initialCost float64, iteration int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:       jobID,
		BestNorm:    bestNorm,
		BestReal:    bestReal,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Iteration:   iteration,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:     c.JobID,
		BestCost:  c.BestCost,
		Iteration: c.Iteration,
		Timestamp: c.Timestamp,
		Function:  c.Config.Function,
		Dims:      c.Config.Dims,
		Optimizer: c.Config.Optimizer,
	}
}

// Validate checks if the checkpoint has valid data.
// Returns an error if any required field is missing or invalid.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.BestNorm) == 0 {
		return &ValidationError{Field: "BestNorm", Reason: "cannot be empty"}
	}
	if len(c.BestReal) != len(c.BestNorm) {
		return &ValidationError{Field: "BestReal", Reason: "length must match BestNorm"}
	}
	if !isFinite(c.BestCost) {
		return &ValidationError{Field: "BestCost", Reason: "must be finite"}
	}
	if !isFinite(c.InitialCost) {
		return &ValidationError{Field: "InitialCost", Reason: "must be finite"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Function == "" {
		return &ValidationError{Field: "Config.Function", Reason: "cannot be empty"}
	}
	if c.Config.Optimizer == "" {
		return &ValidationError{Field: "Config.Optimizer", Reason: "cannot be empty"}
	}
	if c.Config.Dims <= 0 {
		return &ValidationError{Field: "Config.Dims", Reason: "must be positive"}
	}
	if c.Config.Iters <= 0 {
		return &ValidationError{Field: "Config.Iters", Reason: "must be positive"}
	}
	if c.Config.PopSize <= 0 {
		return &ValidationError{Field: "Config.PopSize", Reason: "must be positive"}
	}
	if len(c.BestNorm) != c.Config.Dims {
		return &ValidationError{
			Field:  "BestNorm",
			Reason: fmt.Sprintf("length mismatch: got %d coordinates for %d dims", len(c.BestNorm), c.Config.Dims),
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given
// config. Returns an error if the configs describe different problems.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Function != config.Function {
		return &CompatibilityError{
			Field:    "Function",
			Expected: c.Config.Function,
			Actual:   config.Function,
		}
	}
	if c.Config.Dims != config.Dims {
		return &CompatibilityError{
			Field:    "Dims",
			Expected: fmt.Sprintf("%d", c.Config.Dims),
			Actual:   fmt.Sprintf("%d", config.Dims),
		}
	}
	if c.Config.Optimizer != config.Optimizer {
		return &CompatibilityError{
			Field:    "Optimizer",
			Expected: c.Config.Optimizer,
			Actual:   config.Optimizer,
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
