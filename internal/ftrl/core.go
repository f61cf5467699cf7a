// Package ftrl implements the FTRL-Proximal weight derivation and the
// single-threaded base solver, plus the two on-disk model formats. The
// concurrent parameter-server and worker protocols build on CoreState
// from packages paramserver and worker; this package owns only the math
// and the file formats shared by both.
package ftrl

import "github.com/asyncftrl/ftrlgo/internal/numeric"

// Hyperparams are immutable for the lifetime of a training run.
type Hyperparams[T numeric.Float] struct {
	Alpha   T
	Beta    T
	L1      T
	L2      T
	Dropout T
	D       int // feature dimension
}

// CoreState is the shared shape embedded by both Solver (single-threaded)
// and, in package paramserver/worker, the concurrent server and
// per-worker snapshot. It groups the hyperparameters with the two dense
// accumulator arrays per spec.md §3 — composition standing in for the
// source's inheritance hierarchy (Design Note 1): no virtual dispatch,
// just a value both the server and the worker embed and operate on
// through their own protocol surface.
type CoreState[T numeric.Float] struct {
	Hyperparams[T]
	N []T // accumulated squared gradient, n[i] >= 0 always
	Z []T // accumulated regularized gradient proxy
}

// NewCoreState allocates a zeroed (n, z) pair of length D.
func NewCoreState[T numeric.Float](hp Hyperparams[T]) CoreState[T] {
	return CoreState[T]{
		Hyperparams: hp,
		N:           make([]T, hp.D),
		Z:           make([]T, hp.D),
	}
}

// GetWeight derives w_i from the current (n[i], z[i]) per spec.md §3:
//
//	s = sign(z[i])
//	if |z[i]| <= l1: w_i = 0
//	else:            w_i = (s*l1 - z[i]) / ((beta + sqrt(n[i]))/alpha + l2)
//
// The weight is never stored; every caller re-derives it on demand.
func (c *CoreState[T]) GetWeight(i int) T {
	z := c.Z[i]
	s := numeric.Sign(z)
	if numeric.LessEqual(s*z, c.L1) {
		return 0
	}
	return (s*c.L1 - z) / ((c.Beta + numeric.Sqrt(c.N[i]))/c.Alpha + c.L2)
}
