package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our
// Optimizer interface. The library searches scalar bounds per run, which
// suits the normalized contract exactly: every dimension is [0,1].
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization over the unit hypercube.
func (m *MayflyAdapter) Run(eval func([]float64) float64, dim int) ([]float64, float64) {
	config := mayfly.NewDefaultConfig()

	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// Normalized search space: every dimension shares the same bounds.
	config.LowerBound = 0
	config.UpperBound = 1

	// Set random seed for reproducibility.
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Fall back to the cube center if the library rejects the config.
		center := make([]float64, dim)
		for i := range center {
			center[i] = 0.5
		}
		return center, eval(center)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost
}
