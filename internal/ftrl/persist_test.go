package ftrl

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// TestWarmRestartRoundTrip implements spec.md §8 scenario 4: saving full
// state and loading it back must reproduce identical (n, z) and
// therefore identical predictions, continuing to learn from where the
// original solver left off.
func TestWarmRestartRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model")

	s := New(defaultHP(3))
	x := sample.Sample[float64]{Label: 1, Features: []sample.Feature[float64]{{Index: 0, Value: 1}, {Index: 2, Value: -2}}}
	for i := 0; i < 10; i++ {
		s.Update(x)
	}

	if err := s.SaveAll(path); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	restored, err := LoadState[float64](path + ".save")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	for i := range s.N {
		if s.N[i] != restored.N[i] {
			t.Errorf("n[%d] = %v after restore, want %v", i, restored.N[i], s.N[i])
		}
		if s.Z[i] != restored.Z[i] {
			t.Errorf("z[%d] = %v after restore, want %v", i, restored.Z[i], s.Z[i])
		}
	}
	if restored.Alpha != s.Alpha || restored.Beta != s.Beta || restored.L1 != s.L1 || restored.L2 != s.L2 || restored.D != s.D {
		t.Errorf("restored hyperparameters = %+v, want %+v", restored.Hyperparams, s.Hyperparams)
	}

	before := s.Predict(x)
	restoredSolver := &Solver[float64]{CoreState: restored, rng: s.rng}
	after := restoredSolver.Predict(x)
	if before != after {
		t.Errorf("predict after restore = %v, want %v (identical to pre-save)", after, before)
	}

	restoredSolver.Update(x)
	s.Update(x)
	for i := range s.N {
		if s.N[i] != restoredSolver.N[i] {
			t.Errorf("post-restore update diverged at n[%d]: %v vs %v", i, restoredSolver.N[i], s.N[i])
		}
	}
}

// TestWeightsFileMatchesGetWeight implements spec.md §8 invariant 2/3:
// the weights-only file must carry the same derived weight GetWeight
// would compute, round-tripped through formatting.
func TestWeightsFileMatchesGetWeight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights")

	s := New(defaultHP(2))
	x := sample.Sample[float64]{Label: 1, Features: []sample.Feature[float64]{{Index: 0, Value: 1}, {Index: 1, Value: 1}}}
	for i := 0; i < 5; i++ {
		s.Update(x)
	}

	if err := s.SaveWeights(path); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	model, err := LoadWeights[float64](path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	want := s.Predict(x)
	got := model.Predict(x)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("weights-only model predict = %v, want ~%v", got, want)
	}
}

func TestLoadStateRejectsZeroFeatureCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.save")
	hp := defaultHP(0)
	c := NewCoreState(hp)
	if err := c.SaveState(path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if _, err := LoadState[float64](path); err == nil {
		t.Error("LoadState with D=0 should fail")
	}
}
