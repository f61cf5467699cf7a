// Package numeric implements the small set of scalar operations the FTRL
// solver needs, generic over float32 and float64 so a single source of
// truth serves both precisions instead of hand-duplicating every formula.
package numeric

import (
	"math"

	"github.com/chewxy/math32"
)

// Float is the set of precisions the solver supports. Feature dimension
// and sample counts stay as ordinary ints; only the accumulator and
// weight arithmetic is generic.
type Float interface {
	float32 | float64
}

const maxExp = 50

// SafeExp clamps x to [-50, 50] before exponentiating, bounding overflow
// so Sigmoid stays defined for any finite input.
func SafeExp[T Float](x T) T {
	if x > T(maxExp) {
		x = T(maxExp)
	} else if x < -T(maxExp) {
		x = -T(maxExp)
	}
	switch v := any(x).(type) {
	case float32:
		return T(math32.Exp(v))
	case float64:
		return T(math.Exp(v))
	default:
		panic("numeric: unreachable Float type")
	}
}

// Sqrt is the precision-appropriate square root, used by the per-feature
// sigma term in the FTRL update.
func Sqrt[T Float](x T) T {
	switch v := any(x).(type) {
	case float32:
		return T(math32.Sqrt(v))
	case float64:
		return T(math.Sqrt(v))
	default:
		panic("numeric: unreachable Float type")
	}
}

// Sigmoid is the logistic function, numerically bounded via SafeExp.
func Sigmoid[T Float](x T) T {
	return 1 / (1 + SafeExp(-x))
}

// minProb and maxProb bound predictions used in loss computation,
// per the spec's clamp of [1e-14, 1-1e-14].
const (
	minProb = 1e-14
	maxProb = 1 - 1e-14
)

// ClampProb clamps a prediction into [1e-14, 1-1e-14] so log-loss never
// sees log(0).
func ClampProb[T Float](p T) T {
	if p < T(minProb) {
		return T(minProb)
	}
	if p > T(maxProb) {
		return T(maxProb)
	}
	return p
}

// Machine epsilon for each supported precision, computed once rather than
// re-derived on every tolerance comparison in the update hot path.
const (
	epsilon32 = 1.1920929e-07
	epsilon64 = 2.220446049250313e-16
)

// Epsilon returns the machine epsilon for T, used by Equal/LessEqual.
func Epsilon[T Float]() T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return T(epsilon32)
	case float64:
		return T(epsilon64)
	default:
		panic("numeric: unreachable Float type")
	}
}

// Equal reports whether a and b are within machine epsilon of each other.
func Equal[T Float](a, b T) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < Epsilon[T]()
}

// LessEqual reports a <= b, treating values within machine epsilon as
// equal. Used by the l1-thresholding test in GetWeight.
func LessEqual[T Float](a, b T) bool {
	if Equal(a, b) {
		return true
	}
	return a < b
}

// Sign returns +1 if x >= 0, else -1, matching the FTRL weight derivation's
// sign(z) convention (zero is treated as non-negative).
func Sign[T Float](x T) T {
	if x < 0 {
		return -1
	}
	return 1
}
