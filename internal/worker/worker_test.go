package worker

import (
	"testing"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/paramserver"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

func testHP(d int) ftrl.Hyperparams[float64] {
	return ftrl.Hyperparams[float64]{Alpha: 0.1, Beta: 1, D: d}
}

func TestResetPullsServerState(t *testing.T) {
	server := paramserver.NewServer(testHP(5))
	server.N[2] = 9
	server.Z[2] = -4

	w := NewWorker(testHP(5), 3, 3)
	w.Reset(server)

	if w.N[2] != 9 || w.Z[2] != -4 {
		t.Errorf("worker snapshot after Reset: n=%v z=%v, want 9 and -4", w.N[2], w.Z[2])
	}
}

// TestUpdatePushesEveryPTouches mirrors fast_ftrl_solver.h's
// FtrlWorker<T>::Update exactly: a shard's step counter starts at 0, so
// its very first touch always satisfies step%P==0 and pushes
// immediately; the next push then lands P touches later.
func TestUpdatePushesEveryPTouches(t *testing.T) {
	server := paramserver.NewServer(testHP(1))
	w := NewWorker(testHP(1), 2, 100)
	w.Reset(server)

	x := sample.Sample[float64]{Label: 1, Features: []sample.Feature[float64]{{Index: 0, Value: 1}}}

	w.Update(x, server) // step[0] == 0: pushes immediately
	if server.N[0] == 0 {
		t.Errorf("server.N[0] = %v after the shard's first touch, expected an immediate push (step starts at 0)", server.N[0])
	}
	if w.NDelta[0] != 0 {
		t.Errorf("worker NDelta[0] = %v after push, want 0", w.NDelta[0])
	}
	pushedAfterFirst := server.N[0]

	w.Update(x, server) // step[0] == 1: 1%2 != 0, no push
	if server.N[0] != pushedAfterFirst {
		t.Errorf("server.N[0] changed on the shard's second touch with P=2, want no push yet")
	}
	if w.NDelta[0] == 0 {
		t.Errorf("worker NDelta[0] = 0 after an unpushed touch, want a staged delta")
	}

	w.Update(x, server) // step[0] == 2: 2%2 == 0, pushes again
	if server.N[0] == pushedAfterFirst {
		t.Errorf("server.N[0] unchanged on the shard's third touch, expected the P=2 boundary to push")
	}
}

func TestPushParamZeroesWorkerDeltas(t *testing.T) {
	server := paramserver.NewServer(testHP(3))
	w := NewWorker(testHP(3), 1000, 1000)
	w.Reset(server)
	w.NDelta[1] = 5
	w.ZDelta[1] = -2

	w.PushParam(server)

	if w.NDelta[1] != 0 || w.ZDelta[1] != 0 {
		t.Errorf("worker deltas after PushParam: n=%v z=%v, want 0 and 0", w.NDelta[1], w.ZDelta[1])
	}
	if server.N[1] != 5 || server.Z[1] != -2 {
		t.Errorf("server state after PushParam: n=%v z=%v, want 5 and -2", server.N[1], server.Z[1])
	}
}

// TestUpdateRefetchesEveryFTouches mirrors the same step-starts-at-0
// cadence for fetch: a shard's first touch always refreshes it from the
// server, then every F touches thereafter.
func TestUpdateRefetchesEveryFTouches(t *testing.T) {
	server := paramserver.NewServer(testHP(1))
	w := NewWorker(testHP(1), 100, 2)
	w.Reset(server)

	x := sample.Sample[float64]{Label: 1, Features: []sample.Feature[float64]{{Index: 0, Value: 1}}}
	w.Update(x, server) // step[0] == 0: fetches immediately (no-op here, server is still zero)

	// Mutate server state behind the worker's back; the next fetch
	// boundary should pick it up.
	server.N[0] = 42

	w.Update(x, server) // step[0] == 1: 1%2 != 0, no fetch yet
	if w.N[0] >= 42 {
		t.Fatalf("worker snapshot n[0] = %v, should not have refreshed yet (step[0]==1, F=2)", w.N[0])
	}

	w.Update(x, server) // step[0] == 2: 2%2 == 0, fetches before this touch's compute
	if w.N[0] < 42 {
		t.Errorf("worker snapshot n[0] = %v, expected to have refreshed to >= 42 at the F=2 boundary", w.N[0])
	}
}

func TestWorkerPredictMatchesLocalSnapshot(t *testing.T) {
	server := paramserver.NewServer(testHP(1))
	w := NewWorker(testHP(1), 3, 3)
	w.Reset(server)

	x := sample.Sample[float64]{Label: 1, Features: []sample.Feature[float64]{{Index: 0, Value: 1}}}
	if p := w.Predict(x); p != 0.5 {
		t.Errorf("idle predict = %v, want 0.5", p)
	}
}
