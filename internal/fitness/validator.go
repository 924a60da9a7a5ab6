package fitness

import "math"

// InUnitCube reports whether every component of x lies in the closed
// interval [0,1]. Boundary values 0 and 1 are admissible; NaN is not.
func InUnitCube(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}
