package fitness

import "fmt"

// Extras is the opaque extension slot of a parameter record. A concrete
// extras block is meaningful only to the fitness function that owns it;
// the optimizer core and unrelated functions treat the value as opaque
// and must not inspect it.
type Extras interface {
	// ExtrasName identifies the block in error messages and logs.
	ExtrasName() string
}

// Params is the shared parameter record passed by reference into every
// fitness evaluation. One record belongs to exactly one evaluation
// context: concurrent evaluations must each own their own record, though
// Min and Range may be shared read-only between records via NewRecordLike.
type Params struct {
	// Min and Range hold the per-dimension lower bound and width of the
	// real-world domain. They are fixed at construction and must not be
	// mutated afterwards.
	Min   []float64
	Range []float64

	// Real receives the de-normalized coordinates of the last point that
	// was actually evaluated. After a rejected call it keeps the contents
	// from the last valid evaluation (zero values if none occurred yet).
	Real []float64

	// Evaluated reports whether the scientific computation ran on the
	// most recent call. It is written on every call.
	Evaluated bool

	// Extras optionally carries a function-specific parameter block.
	Extras Extras
}

// NewParams builds a record for the domain [min[i], min[i]+rng[i]] per
// dimension. Every range must be strictly positive and both slices must
// have the same nonzero length.
func NewParams(min, rng []float64) (*Params, error) {
	if len(min) == 0 {
		return nil, fmt.Errorf("params: empty domain")
	}
	if len(rng) != len(min) {
		return nil, &DimensionError{Seq: "range", Got: len(rng), Want: len(min)}
	}
	for i, r := range rng {
		if !(r > 0) {
			return nil, fmt.Errorf("params: range[%d] = %v, must be > 0", i, r)
		}
	}
	return &Params{
		Min:   min,
		Range: rng,
		Real:  make([]float64, len(min)),
	}, nil
}

// NewRecordLike returns a fresh record sharing p's Min/Range slices but
// owning its own output buffer and flag. This is the cheap way to mint
// one record per worker when evaluations run in parallel.
func NewRecordLike(p *Params) *Params {
	return &Params{
		Min:    p.Min,
		Range:  p.Range,
		Real:   make([]float64, len(p.Min)),
		Extras: p.Extras,
	}
}

// Dims returns the dimensionality of the record's domain.
func (p *Params) Dims() int { return len(p.Min) }

// ExtrasAs returns the record's extras block as concrete type T. It never
// panics: a missing or differently typed block yields an *ExtrasTypeError.
// Functions that hold their typed block from construction need no call to
// this at all, which is the preferred shape.
func ExtrasAs[T Extras](p *Params) (T, error) {
	var zero T
	if p.Extras == nil {
		return zero, &ExtrasTypeError{Want: fmt.Sprintf("%T", zero)}
	}
	t, ok := p.Extras.(T)
	if !ok {
		return zero, &ExtrasTypeError{Want: fmt.Sprintf("%T", zero), Got: p.Extras.ExtrasName()}
	}
	return t, nil
}

// DimensionError reports disagreeing sequence lengths. It is a fatal
// precondition violation: nothing is truncated or padded to compensate.
type DimensionError struct {
	Seq  string // which sequence disagreed
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s has length %d, want %d", e.Seq, e.Got, e.Want)
}

// ExtrasTypeError reports an extras block read against the wrong concrete
// type. This is a programming-contract violation, not a data error.
type ExtrasTypeError struct {
	Want string
	Got  string // ExtrasName of the held block, empty if the slot is nil
}

func (e *ExtrasTypeError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("extras: no block attached, want %s", e.Want)
	}
	return fmt.Sprintf("extras: block %q does not have type %s", e.Got, e.Want)
}
