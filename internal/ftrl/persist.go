package ftrl

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// ErrFeatureCountZero is returned when a state file declares D == 0,
// a configuration error per spec.md §7.
var ErrFeatureCountZero = errors.New("ftrl: feature count is zero")

// ErrModelUnopenable is returned when a model or state file named by
// the caller cannot be opened, a configuration error per spec.md §7
// distinct from a malformed-but-present file.
var ErrModelUnopenable = errors.New("ftrl: model file unopenable")

const weightPrecision = 8

// SaveWeights writes the weights-only file: D lines, one derived weight
// per feature index, fixed format with weightPrecision digits after the
// decimal point.
func (c *CoreState[T]) SaveWeights(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ftrl: create %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < c.D; i++ {
		if _, err := fmt.Fprintf(w, "%.*f\n", weightPrecision, c.GetWeight(i)); err != nil {
			return fmt.Errorf("ftrl: write %q: %w", path, err)
		}
	}
	return w.Flush()
}

// SaveState writes the full-state file ("<path>.save"): a header line of
// hyperparameters, then D lines of n, then D lines of z.
func (c *CoreState[T]) SaveState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ftrl: create %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%d\t%v\n",
		c.Alpha, c.Beta, c.L1, c.L2, c.D, c.Dropout); err != nil {
		return fmt.Errorf("ftrl: write %q: %w", path, err)
	}
	for i := 0; i < c.D; i++ {
		if _, err := fmt.Fprintf(w, "%v\n", c.N[i]); err != nil {
			return fmt.Errorf("ftrl: write %q: %w", path, err)
		}
	}
	for i := 0; i < c.D; i++ {
		if _, err := fmt.Fprintf(w, "%v\n", c.Z[i]); err != nil {
			return fmt.Errorf("ftrl: write %q: %w", path, err)
		}
	}
	return w.Flush()
}

// SaveAll writes both the weights file at path and the state file at
// "<path>.save".
func (c *CoreState[T]) SaveAll(path string) error {
	if err := c.SaveWeights(path); err != nil {
		return err
	}
	return c.SaveState(path + ".save")
}

// LoadState loads a full-state file produced by SaveState, the only
// format accepted for a warm restart.
func LoadState[T numeric.Float](path string) (CoreState[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return CoreState[T]{}, fmt.Errorf("ftrl: open %q: %w: %w", path, ErrModelUnopenable, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var hp Hyperparams[T]
	if _, err := fmt.Fscan(r, &hp.Alpha, &hp.Beta, &hp.L1, &hp.L2, &hp.D, &hp.Dropout); err != nil {
		return CoreState[T]{}, fmt.Errorf("ftrl: read header of %q: %w", path, err)
	}
	if hp.D == 0 {
		return CoreState[T]{}, ErrFeatureCountZero
	}

	c := NewCoreState(hp)
	for i := 0; i < hp.D; i++ {
		if _, err := fmt.Fscan(r, &c.N[i]); err != nil {
			return CoreState[T]{}, fmt.Errorf("ftrl: read n[%d] of %q: %w", i, path, err)
		}
	}
	for i := 0; i < hp.D; i++ {
		if _, err := fmt.Fscan(r, &c.Z[i]); err != nil {
			return CoreState[T]{}, fmt.Errorf("ftrl: read z[%d] of %q: %w", i, path, err)
		}
	}

	return c, nil
}

// Model is the weights-only predictor: the external inference
// collaborator's view of a trained solver, holding nothing but the
// derived weight vector. It never touches n, z, or the hyperparameters —
// mirroring the original's separate LRModel type (original_source's
// ftrl_solver.h), kept here as the type persistence hands callers who
// only want to score samples, not continue training.
type Model[T numeric.Float] struct {
	weights []T
}

// LoadWeights reads a weights file produced by SaveWeights.
func LoadWeights[T numeric.Float](path string) (Model[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return Model[T]{}, fmt.Errorf("ftrl: open %q: %w: %w", path, ErrModelUnopenable, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var weights []T
	for {
		var w T
		if _, err := fmt.Fscan(r, &w); err != nil {
			break
		}
		weights = append(weights, w)
	}
	return Model[T]{weights: weights}, nil
}

// Predict computes sigmoid(w.x), silently skipping feature indices
// outside the loaded weight vector's length.
func (m Model[T]) Predict(x sample.Sample[T]) T {
	var wTx T
	for _, f := range x.Features {
		if int(f.Index) >= len(m.weights) {
			continue
		}
		wTx += m.weights[f.Index] * f.Value
	}
	return numeric.Sigmoid(wTx)
}
