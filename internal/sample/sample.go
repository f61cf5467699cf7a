// Package sample implements the streaming LIBSVM-style sparse sample
// reader that feeds training workers: a label plus an ordered list of
// (index, value) feature pairs, parsed line by line from a text stream.
package sample

import "github.com/asyncftrl/ftrlgo/internal/numeric"

// Feature is one (index, value) pair of a sparse sample. Index is uint32
// since feature dimensions are pre-mapped dense indices (spec's
// non-goal: no hashed/sparse dictionaries), so 32 bits is ample and
// halves the footprint of a feature list versus a native int index.
type Feature[T numeric.Float] struct {
	Index uint32
	Value T
}

// Sample is a label plus its sparse feature vector. Label is stored
// post-clamp: any parsed negative value has already become 0 by the time
// a Sample exists (spec.md §3, §9 open question — preserved, not fixed).
type Sample[T numeric.Float] struct {
	Label    T
	Features []Feature[T]
}

// Positive reports whether this sample's label should be treated as the
// positive class. Any y > 0 is positive; this is deliberately looser than
// y == 1, per the spec's resolution of the label-clamping open question.
func (s Sample[T]) Positive() bool {
	return s.Label > 0
}
