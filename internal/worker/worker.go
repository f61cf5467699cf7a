// Package worker implements the per-goroutine FTRL solver that fetches
// shard snapshots from a paramserver.Server, computes local updates
// against its own (n, z) snapshot, stages them as deltas, and pushes
// the deltas back on a fixed cadence (spec.md §4.E).
package worker

import (
	"math/rand"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/paramserver"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// Worker is one concurrent training line. Its CoreState is a local
// snapshot of the server's state, refreshed per shard as that shard is
// touched; NDelta and ZDelta accumulate this worker's own contribution
// since that shard's last push. Staleness of any one shard is bounded
// by F of this worker's own steps touching that shard — a worker that
// never touches a shard never refreshes or contends for it (spec.md
// §4.D/§5).
type Worker[T numeric.Float] struct {
	ftrl.CoreState[T]
	NDelta []T
	ZDelta []T

	step []uint32 // per-shard step counter, param_group_step_ in original_source's fast_ftrl_solver.h

	P, F int // push interval, fetch interval (in per-shard touches)

	rng *rand.Rand
}

// NewWorker builds a worker for a server with d features, pushing every
// p touches of a shard and fetching every f touches of a shard.
func NewWorker[T numeric.Float](hp ftrl.Hyperparams[T], p, f int) *Worker[T] {
	return &Worker[T]{
		CoreState: ftrl.NewCoreState(hp),
		NDelta:    make([]T, hp.D),
		ZDelta:    make([]T, hp.D),
		step:      make([]uint32, paramserver.ShardCount(hp.D)),
		P:         p,
		F:         f,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// Reset refreshes the worker's entire local snapshot from the server and
// clears its delta buffers and per-shard step counters, preparing it
// for a new training phase (spec.md §4.E: workers reset before every
// concurrent epoch phase).
func (w *Worker[T]) Reset(server *paramserver.Server[T]) {
	server.FetchAll(w.N, w.Z)
	for i := range w.NDelta {
		w.NDelta[i] = 0
		w.ZDelta[i] = 0
	}
	for g := range w.step {
		w.step[g] = 0
	}
}

type weighted[T numeric.Float] struct {
	index int
	w     T
	value T
}

// Update performs one FTRL step against the worker's local snapshot,
// staging the resulting delta rather than applying it to the server
// directly. The forward pass scores x against the worker's current
// snapshot untouched; the backward pass then walks each touched
// feature and, per its shard g = i / paramserver.ShardWidth, fetches
// that shard alone when step[g] is due for a refresh, applies the FTRL
// update, stages the delta, pushes that shard alone when step[g] is due
// for a flush, and advances step[g] — mirroring
// original_source/src/fast_ftrl_solver.h's FtrlWorker<T>::Update
// exactly, so two features that land in different shards never fetch
// or push the other's shard.
func (w *Worker[T]) Update(x sample.Sample[T], server *paramserver.Server[T]) T {
	y := x.Label
	var wTx T
	touched := make([]weighted[T], 0, len(x.Features))

	for _, f := range x.Features {
		if w.Dropout > 0 && T(w.rng.Float64()) < w.Dropout {
			continue
		}
		i := int(f.Index)
		if i >= w.D {
			continue
		}
		wt := w.GetWeight(i)
		wTx += wt * f.Value
		touched = append(touched, weighted[T]{index: i, w: wt, value: f.Value})
	}

	pred := numeric.Sigmoid(wTx)
	grad := pred - y

	for _, t := range touched {
		i := t.index
		g := paramserver.ShardOf(i)

		if w.F > 0 && int(w.step[g])%w.F == 0 {
			lo, hi := paramserver.ShardBounds(g, w.D)
			server.FetchGroup(lo, hi, w.N[lo:hi], w.Z[lo:hi])
		}

		gi := grad * t.value
		sigma := (numeric.Sqrt(w.N[i]+gi*gi) - numeric.Sqrt(w.N[i])) / w.Alpha
		dz := gi - sigma*t.w
		dn := gi * gi

		w.Z[i] += dz
		w.N[i] += dn
		w.ZDelta[i] += dz
		w.NDelta[i] += dn

		if w.P > 0 && int(w.step[g])%w.P == 0 {
			lo, hi := paramserver.ShardBounds(g, w.D)
			server.PushGroup(lo, hi, w.NDelta[lo:hi], w.ZDelta[lo:hi])
		}

		w.step[g]++
	}

	return pred
}

// PushParam flushes every shard's staged deltas into the server,
// regardless of that shard's step count — used at the end of a
// worker's pass over its share of the data so nothing staged since the
// last periodic push is lost.
func (w *Worker[T]) PushParam(server *paramserver.Server[T]) {
	for g := 0; g < len(w.step); g++ {
		lo, hi := paramserver.ShardBounds(g, w.D)
		server.PushGroup(lo, hi, w.NDelta[lo:hi], w.ZDelta[lo:hi])
	}
}

// Predict is a read-only forward pass against the worker's local
// snapshot; it neither fetches nor mutates anything.
func (w *Worker[T]) Predict(x sample.Sample[T]) T {
	var wTx T
	for _, f := range x.Features {
		i := int(f.Index)
		if i >= w.D {
			continue
		}
		wTx += w.GetWeight(i) * f.Value
	}
	return numeric.Sigmoid(wTx)
}
