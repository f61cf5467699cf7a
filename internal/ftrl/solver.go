package ftrl

import (
	"math/rand"

	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// Solver is the single-threaded FTRL-Proximal base solver (spec.md §4.C).
// Every worker and the parameter server derive their own protocol on top
// of the same CoreState shape, but for a non-concurrent run Solver is
// the whole story.
type Solver[T numeric.Float] struct {
	CoreState[T]
	rng *rand.Rand // per-solver generator, never shared across goroutines
}

// New creates a solver with fresh, zeroed (n, z) arrays.
func New[T numeric.Float](hp Hyperparams[T]) *Solver[T] {
	return &Solver[T]{
		CoreState: NewCoreState(hp),
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// FromState wraps an existing CoreState in a Solver, sharing its N and Z
// slices rather than copying them. Used by the single-threaded training
// phase to drive a server's own state directly, with no staging step.
func FromState[T numeric.Float](c CoreState[T]) *Solver[T] {
	return &Solver[T]{
		CoreState: c,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// weighted is a touched feature recorded during the forward pass, carried
// into the backward pass so the weight used for the gradient matches the
// weight used for the score (spec.md §4.C rationale).
type weighted[T numeric.Float] struct {
	index int
	w     T
	value T
}

// Update performs one FTRL-Proximal step: forward pass to compute the
// prediction, backward pass to update (n, z) for every touched feature.
// Returns the pre-update prediction. x.Label supplies y.
func (s *Solver[T]) Update(x sample.Sample[T]) T {
	y := x.Label
	var wTx T
	touched := make([]weighted[T], 0, len(x.Features))

	for _, f := range x.Features {
		if s.Dropout > 0 && T(s.rng.Float64()) < s.Dropout {
			continue
		}
		i := int(f.Index)
		if i >= s.D {
			continue
		}
		w := s.GetWeight(i)
		wTx += w * f.Value
		touched = append(touched, weighted[T]{index: i, w: w, value: f.Value})
	}

	pred := numeric.Sigmoid(wTx)
	grad := pred - y

	for _, t := range touched {
		i := t.index
		gi := grad * t.value
		sigma := (numeric.Sqrt(s.N[i]+gi*gi) - numeric.Sqrt(s.N[i])) / s.Alpha
		s.Z[i] += gi - sigma*t.w
		s.N[i] += gi * gi
	}

	return pred
}

// Predict is the forward pass only: no dropout, no mutation.
func (s *Solver[T]) Predict(x sample.Sample[T]) T {
	var wTx T
	for _, f := range x.Features {
		i := int(f.Index)
		if i >= s.D {
			continue
		}
		wTx += s.GetWeight(i) * f.Value
	}
	return numeric.Sigmoid(wTx)
}
