// Package bench provides standard test objectives from the optimization
// literature, wired into the fitness plugin contract. They exist to
// exercise optimizers and the coordinate discipline, not as science: each
// function is a plain kernel plus a conventional real-space domain that
// problem definitions use as their default bounds.
package bench

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/hyperfit/internal/fitness"
)

// Sphere is the elementary convex bowl, sum of squares, minimum 0 at the
// origin.
func Sphere() fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		return floats.Dot(real, real)
	})
}

// Rastrigin is highly multimodal with a regular lattice of local minima,
// global minimum 0 at the origin.
func Rastrigin() fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		s := 10.0 * float64(len(real))
		for _, x := range real {
			s += x*x - 10.0*math.Cos(2*math.Pi*x)
		}
		return s
	})
}

// Rosenbrock is the classic banana valley, minimum 0 at (1,...,1).
func Rosenbrock() fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		var s float64
		for i := 0; i < len(real)-1; i++ {
			a := 1 - real[i]
			b := real[i+1] - real[i]*real[i]
			s += a*a + 100*b*b
		}
		return s
	})
}

// Ackley has a nearly flat outer region and a deep central hole, minimum 0
// at the origin.
func Ackley() fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		d := float64(len(real))
		var s1, s2 float64
		for _, x := range real {
			s1 += x * x
			s2 += math.Cos(2 * math.Pi * x)
		}
		return -20.0*math.Exp(-0.2*math.Sqrt(s1/d)) - math.Exp(s2/d) + 20.0 + math.E
	})
}

// Schwefel places its global minimum far from the domain center, minimum
// near 0 at x_i = 420.9687.
func Schwefel() fitness.Function {
	return fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		s := 418.9829 * float64(len(real))
		for _, x := range real {
			s -= x * math.Sin(math.Sqrt(math.Abs(x)))
		}
		return s
	})
}

// domain is a conventional symmetric real-space domain, expressed as the
// min/range pair the parameter record wants.
type domain struct{ lo, hi float64 }

func (d domain) minRange(dims int) (min, rng []float64) {
	min = make([]float64, dims)
	rng = make([]float64, dims)
	for i := range min {
		min[i] = d.lo
		rng[i] = d.hi - d.lo
	}
	return min, rng
}

type entry struct {
	build func(dims int) fitness.Function
	dom   domain
}

var registry = map[string]entry{
	"sphere":          {func(int) fitness.Function { return Sphere() }, domain{-50, 50}},
	"rastrigin":       {func(int) fitness.Function { return Rastrigin() }, domain{-5.12, 5.12}},
	"rosenbrock":      {func(int) fitness.Function { return Rosenbrock() }, domain{-100, 100}},
	"ackley":          {func(int) fitness.Function { return Ackley() }, domain{-5, 5}},
	"schwefel":        {func(int) fitness.Function { return Schwefel() }, domain{-500, 500}},
	"weighted-sphere": {func(int) fitness.Function { return WeightedSphere{} }, domain{-50, 50}},
	"shifted-sphere":  {defaultShiftedSphere, domain{-50, 50}},
}

func defaultShiftedSphere(dims int) fitness.Function {
	return ShiftedSphere(&ShiftExtras{Offset: make([]float64, dims)})
}

// Names lists the registered benchmark functions, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named benchmark function for the given dimensionality.
func New(name string, dims int) (fitness.Function, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark function %q (known: %v)", name, Names())
	}
	if dims <= 0 {
		return nil, fmt.Errorf("benchmark %q: dims must be positive, got %d", name, dims)
	}
	return e.build(dims), nil
}

// DefaultExtras returns the extras block the named function expects to
// find on the evaluation record, or nil when it needs none. Only
// weighted-sphere resolves its block from the record; everything else is
// configured at construction.
func DefaultExtras(name string, dims int) fitness.Extras {
	if name != "weighted-sphere" {
		return nil
	}
	w := make([]float64, dims)
	for i := range w {
		w[i] = 1
	}
	return &WeightExtras{Weights: w}
}

// Domain returns the conventional real-space bounds of the named function
// as a min/range pair suitable for fitness.NewParams.
func Domain(name string, dims int) (min, rng []float64, err error) {
	e, ok := registry[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown benchmark function %q (known: %v)", name, Names())
	}
	min, rng = e.dom.minRange(dims)
	return min, rng, nil
}
