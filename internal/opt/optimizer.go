// Package opt hosts the optimizer side of the fitness contract. All
// optimizers here search the normalized unit hypercube; de-normalization
// into real coordinates happens inside the fitness functions, never here.
package opt

import (
	"fmt"

	"github.com/cwbudde/hyperfit/internal/fitness"
)

// Optimizer defines an optimization algorithm over [0,1]^dim.
type Optimizer interface {
	// Run minimizes eval over the unit hypercube.
	// eval: objective to minimize; may return fitness.Rejected for
	// inadmissible points.
	// dim: dimensionality of the search space.
	// Returns: best normalized point and its cost.
	Run(eval func([]float64) float64, dim int) ([]float64, float64)
}

// Bind adapts a fitness.Function and its parameter record to the plain
// closure optimizers consume. The record becomes the evaluation context of
// the returned closure, so a closure must not be shared across goroutines;
// parallel optimizers bind one closure per worker (see PSO.NewEval).
//
// A non-nil error from Evaluate is a broken precondition (dimension or
// extras mismatch), which no amount of searching can repair, so it panics.
func Bind(fn fitness.Function, p *fitness.Params) func([]float64) float64 {
	return func(x []float64) float64 {
		v, err := fn.Evaluate(x, p)
		if err != nil {
			panic(fmt.Sprintf("fitness contract violation: %v", err))
		}
		return v
	}
}
