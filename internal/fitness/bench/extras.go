package bench

import (
	"github.com/cwbudde/hyperfit/internal/fitness"
)

// ShiftExtras relocates a function's optimum by a per-dimension offset.
// The block is fixed at construction, so evaluation performs no type
// resolution at all.
type ShiftExtras struct {
	Offset []float64
}

func (*ShiftExtras) ExtrasName() string { return "bench.shift" }

// ShiftedSphere is the sphere function with its minimum moved to
// e.Offset. The extras block is captured by the kernel; attaching it to
// the record as well is optional and purely for diagnostics.
func ShiftedSphere(e *ShiftExtras) fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		var s float64
		for i, x := range real {
			d := x
			if i < len(e.Offset) {
				d = x - e.Offset[i]
			}
			s += d * d
		}
		return s
	})
}

// WeightExtras carries per-dimension weights for WeightedSphere. It must
// be attached to the evaluation record's extras slot and its length must
// match the record's dimensionality.
type WeightExtras struct {
	Weights []float64
}

func (*WeightExtras) ExtrasName() string { return "bench.weights" }

// WeightedSphere computes a weighted sum of squares. Unlike the other
// functions it resolves its configuration from the record at call time,
// through the checked extras accessor, so it doubles as the exercise of
// the record-stashed extras path: reading the slot against the wrong
// block type is a fatal contract error, not a crash.
type WeightedSphere struct{}

func (WeightedSphere) Evaluate(norm []float64, p *fitness.Params) (float64, error) {
	e, err := fitness.ExtrasAs[*WeightExtras](p)
	if err != nil {
		return fitness.Rejected, err
	}
	if len(e.Weights) != p.Dims() {
		return fitness.Rejected, &fitness.DimensionError{Seq: "weights", Got: len(e.Weights), Want: p.Dims()}
	}
	if len(norm) != p.Dims() {
		return fitness.Rejected, &fitness.DimensionError{Seq: "normalized", Got: len(norm), Want: p.Dims()}
	}
	if !fitness.InUnitCube(norm) {
		p.Evaluated = false
		return fitness.Rejected, nil
	}
	if err := fitness.Denormalize(norm, p.Min, p.Range, p.Real); err != nil {
		return fitness.Rejected, err
	}
	var s float64
	for i, x := range p.Real {
		s += e.Weights[i] * x * x
	}
	p.Evaluated = true
	return s, nil
}
