// Package fitness defines the contract between a swarm optimizer and its
// pluggable objective functions. The optimizer works in a normalized unit
// hypercube; each function de-normalizes candidate points into its real
// domain through the shared parameter record, rejects out-of-range points
// with the Rejected sentinel, and records on the record whether the
// scientific computation actually ran.
package fitness

import "math"

// Rejected is the fitness returned for points outside the unit hypercube.
// It is positive infinity, so under the minimization convention a rejected
// point compares worse than any finite fitness and is never selected.
// Rejection is an expected, frequent outcome and is deliberately not an
// error.
var Rejected = math.Inf(1)

// Function is the pluggable unit of work invoked by the optimizer core.
//
// Evaluate must treat norm as read-only. On a valid point it writes the
// de-normalized coordinates into p.Real, sets p.Evaluated, and returns a
// finite fitness (lower is better). On an out-of-range point it clears
// p.Evaluated, leaves p.Real untouched, and returns Rejected with a nil
// error. A non-nil error is reserved for fatal contract violations
// (dimension or extras-type mismatch) and is raised before any
// computation; it is never used to signal an invalid point.
//
// Implementations must be callable concurrently across independent
// records. A single record is not safe for concurrent mutation.
type Function interface {
	Evaluate(norm []float64, p *Params) (float64, error)
}

// Func adapts a plain function to the Function interface.
type Func func(norm []float64, p *Params) (float64, error)

func (f Func) Evaluate(norm []float64, p *Params) (float64, error) {
	return f(norm, p)
}

// Kernel is the scientific part of a fitness function: the objective at a
// de-normalized point. The surrounding validate/map/flag discipline is
// supplied by Objective, so a kernel is free of coordinate bookkeeping.
// Kernels that carry configuration should close over their typed extras
// block, fixed at construction, rather than cast anything at call time.
type Kernel func(real []float64, p *Params) float64

// Objective wraps a Kernel with the full evaluation contract. Each call is
// a one-shot transition: validate, then either evaluate or reject.
type Objective struct {
	kernel Kernel
}

// NewObjective returns a Function that runs k on every admissible point.
func NewObjective(k Kernel) *Objective {
	return &Objective{kernel: k}
}

func (o *Objective) Evaluate(norm []float64, p *Params) (float64, error) {
	if len(norm) != p.Dims() {
		return Rejected, &DimensionError{Seq: "normalized", Got: len(norm), Want: p.Dims()}
	}
	if !InUnitCube(norm) {
		p.Evaluated = false
		return Rejected, nil
	}
	if err := Denormalize(norm, p.Min, p.Range, p.Real); err != nil {
		return Rejected, err
	}
	v := o.kernel(p.Real, p)
	p.Evaluated = true
	return v, nil
}
