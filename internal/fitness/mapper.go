package fitness

import "gonum.org/v1/gonum/floats"

// Denormalize maps a point from the unit hypercube into real coordinates,
// out[i] = min[i] + norm[i]*rng[i], writing into the caller-supplied out
// buffer so repeated evaluations allocate nothing. It is a total affine
// transform: inputs outside [0,1] are mapped like any other value, which
// keeps the mapper usable for diagnostics; admissibility is InUnitCube's
// job. The only failure is a length disagreement between the four slices.
func Denormalize(norm, min, rng, out []float64) error {
	n := len(min)
	if len(rng) != n {
		return &DimensionError{Seq: "range", Got: len(rng), Want: n}
	}
	if len(norm) != n {
		return &DimensionError{Seq: "normalized", Got: len(norm), Want: n}
	}
	if len(out) != n {
		return &DimensionError{Seq: "output", Got: len(out), Want: n}
	}
	floats.MulTo(out, norm, rng)
	floats.Add(out, min)
	return nil
}

// Normalize is the inverse map, out[i] = (real[i]-min[i])/rng[i]. Callers
// use it to express externally supplied points in the optimizer's internal
// coordinates; the round trip through Denormalize reproduces the input up
// to floating-point error.
func Normalize(real, min, rng, out []float64) error {
	n := len(min)
	if len(rng) != n {
		return &DimensionError{Seq: "range", Got: len(rng), Want: n}
	}
	if len(real) != n {
		return &DimensionError{Seq: "real", Got: len(real), Want: n}
	}
	if len(out) != n {
		return &DimensionError{Seq: "output", Got: len(out), Want: n}
	}
	floats.SubTo(out, real, min)
	floats.Div(out, rng)
	return nil
}
