// Package problem loads and validates optimization problem definitions.
// A problem file names a fitness function, the search-space geometry and
// the optimizer settings; Build turns it into the live objects a run
// needs.
package problem

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/hyperfit/internal/fitness"
	"github.com/cwbudde/hyperfit/internal/fitness/bench"
	"github.com/cwbudde/hyperfit/internal/opt"
)

const (
	DefaultDims    = 2
	DefaultIters   = 200
	DefaultPop     = 30
	DefaultSeed    = 42
	DefaultWorkers = 1
)

// Spec is a problem definition as stored in YAML.
type Spec struct {
	Name     string  `yaml:"name,omitempty"`
	Function string  `yaml:"function"`
	Dims     int     `yaml:"dims"`
	// Min and Range override the function's conventional real-space
	// domain. Either both are given (length Dims, every range > 0) or
	// both are omitted.
	Min       []float64     `yaml:"min,omitempty"`
	Range     []float64     `yaml:"range,omitempty"`
	Optimizer OptimizerSpec `yaml:"optimizer"`
}

// OptimizerSpec selects and parameterizes the optimizer backend.
type OptimizerSpec struct {
	Kind    string `yaml:"kind"` // pso, mayfly
	Iters   int    `yaml:"iters"`
	Pop     int    `yaml:"pop"`
	Seed    int64  `yaml:"seed"`
	Workers int    `yaml:"workers,omitempty"` // pso only
}

// Default returns a runnable problem definition.
func Default() *Spec {
	return &Spec{
		Function: "sphere",
		Dims:     DefaultDims,
		Optimizer: OptimizerSpec{
			Kind:    "pso",
			Iters:   DefaultIters,
			Pop:     DefaultPop,
			Seed:    DefaultSeed,
			Workers: DefaultWorkers,
		},
	}
}

// Load reads a problem file, filling unset fields from Default.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	spec := Default()
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse problem file: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Save writes the problem definition to a YAML file.
func Save(path string, spec *Spec) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal problem: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write problem file: %w", err)
	}
	return nil
}

// Validate checks the definition without building anything.
func (s *Spec) Validate() error {
	if s.Dims <= 0 {
		return fmt.Errorf("problem: dims must be positive, got %d", s.Dims)
	}
	if _, err := bench.New(s.Function, s.Dims); err != nil {
		return fmt.Errorf("problem: %w", err)
	}
	if (s.Min == nil) != (s.Range == nil) {
		return fmt.Errorf("problem: min and range must be given together")
	}
	if s.Min != nil {
		if len(s.Min) != s.Dims {
			return &fitness.DimensionError{Seq: "min", Got: len(s.Min), Want: s.Dims}
		}
		if len(s.Range) != s.Dims {
			return &fitness.DimensionError{Seq: "range", Got: len(s.Range), Want: s.Dims}
		}
		for i, r := range s.Range {
			if !(r > 0) {
				return fmt.Errorf("problem: range[%d] = %v, must be > 0", i, r)
			}
		}
	}
	switch s.Optimizer.Kind {
	case "pso", "mayfly":
	default:
		return fmt.Errorf("problem: unknown optimizer %q (known: pso, mayfly)", s.Optimizer.Kind)
	}
	if s.Optimizer.Iters <= 0 || s.Optimizer.Pop <= 0 {
		return fmt.Errorf("problem: optimizer iters and pop must be positive")
	}
	return nil
}

// Domain resolves the real-space bounds: explicit min/range when given,
// otherwise the function's conventional domain.
func (s *Spec) Domain() (min, rng []float64, err error) {
	if s.Min != nil {
		return s.Min, s.Range, nil
	}
	return bench.Domain(s.Function, s.Dims)
}

// NewRecord mints a parameter record for one evaluation context. Call it
// once per concurrent evaluator; records must not be shared.
func (s *Spec) NewRecord() (*fitness.Params, error) {
	min, rng, err := s.Domain()
	if err != nil {
		return nil, err
	}
	p, err := fitness.NewParams(min, rng)
	if err != nil {
		return nil, err
	}
	p.Extras = bench.DefaultExtras(s.Function, s.Dims)
	return p, nil
}

// BuildFunction constructs the fitness function.
func (s *Spec) BuildFunction() (fitness.Function, error) {
	return bench.New(s.Function, s.Dims)
}

// BuildOptimizer constructs the optimizer backend. For PSO with workers,
// the returned optimizer binds one fresh record per worker goroutine.
func (s *Spec) BuildOptimizer(fn fitness.Function) (opt.Optimizer, error) {
	o := s.Optimizer
	switch o.Kind {
	case "pso":
		pso := opt.NewPSO(o.Iters, o.Pop, o.Seed)
		if o.Workers > 1 {
			pso.Workers = o.Workers
			spec := s
			pso.NewEval = func() func([]float64) float64 {
				p, err := spec.NewRecord()
				if err != nil {
					panic(fmt.Sprintf("problem: %v", err))
				}
				return opt.Bind(fn, p)
			}
		}
		return pso, nil
	case "mayfly":
		return opt.NewMayfly(o.Iters, o.Pop, o.Seed), nil
	default:
		return nil, fmt.Errorf("problem: unknown optimizer %q", o.Kind)
	}
}
