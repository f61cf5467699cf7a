// Package paramserver implements the sharded, concurrently accessed
// parameter store that workers fetch from and push deltas into. Each
// shard owns its own mutex so that disjoint feature ranges never
// contend (spec.md §4.D).
package paramserver

import (
	"fmt"
	"sync"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// ShardWidth is the number of consecutive feature indices covered by
// one lock. A feature dimension of D needs ceil(D/ShardWidth) locks.
const ShardWidth = 10

// Server holds the authoritative (n, z) state shared by every worker.
// It embeds ftrl.CoreState by value rather than by inheritance
// (Design Note 1): the server is a CoreState plus a shard-locking
// protocol on top, nothing more.
type Server[T numeric.Float] struct {
	ftrl.CoreState[T]
	locks []sync.Mutex
}

// ShardCount returns the number of locks/groups a feature dimension of
// d needs: ceil(d/ShardWidth).
func ShardCount(d int) int {
	return (d + ShardWidth - 1) / ShardWidth
}

// NewServer allocates a fresh, zeroed server for hp.D features.
func NewServer[T numeric.Float](hp ftrl.Hyperparams[T]) *Server[T] {
	return &Server[T]{
		CoreState: ftrl.NewCoreState(hp),
		locks:     make([]sync.Mutex, ShardCount(hp.D)),
	}
}

// LoadServer restores a server from a state file written by CoreState's
// SaveState, for resuming a previous run (spec.md §6: "start-from").
func LoadServer[T numeric.Float](path string) (*Server[T], error) {
	c, err := ftrl.LoadState[T](path)
	if err != nil {
		return nil, fmt.Errorf("paramserver: load %q: %w", path, err)
	}
	return &Server[T]{
		CoreState: c,
		locks:     make([]sync.Mutex, ShardCount(c.D)),
	}, nil
}

// ShardOf returns the lock/group index covering feature i, the
// worker-side g = i / kParamGroupSize of original_source's
// fast_ftrl_solver.h.
func ShardOf(i int) int {
	return i / ShardWidth
}

// ShardBounds returns the half-open [lo, hi) feature range of shard s
// clamped to d, the total feature dimension.
func ShardBounds(s, d int) (lo, hi int) {
	lo = s * ShardWidth
	hi = lo + ShardWidth
	if hi > d {
		hi = d
	}
	return lo, hi
}

// FetchGroup copies the server's current n and z for every feature
// index in [lo, hi) into dstN, dstZ, locking only the shards that range
// touches. dstN and dstZ must be pre-sized to hi-lo.
func (s *Server[T]) FetchGroup(lo, hi int, dstN, dstZ []T) {
	firstShard, lastShard := ShardOf(lo), ShardOf(hi-1)
	for shard := firstShard; shard <= lastShard; shard++ {
		s.locks[shard].Lock()
		sLo, sHi := ShardBounds(shard, s.D)
		for i := max(lo, sLo); i < min(hi, sHi); i++ {
			dstN[i-lo] = s.N[i]
			dstZ[i-lo] = s.Z[i]
		}
		s.locks[shard].Unlock()
	}
}

// FetchAll copies the server's entire n and z arrays into dstN, dstZ,
// which must be pre-sized to s.D. Used by a worker's Reset, where the
// worker needs the full picture rather than one shard group.
func (s *Server[T]) FetchAll(dstN, dstZ []T) {
	for shard := range s.locks {
		s.locks[shard].Lock()
		lo, hi := ShardBounds(shard, s.D)
		copy(dstN[lo:hi], s.N[lo:hi])
		copy(dstZ[lo:hi], s.Z[lo:hi])
		s.locks[shard].Unlock()
	}
}

// Predict scores x against the server's current weights without
// locking any shard: safe for read-only evaluation once training has
// quiesced, but not a point-in-time-consistent read against a server
// still being written to concurrently.
func (s *Server[T]) Predict(x sample.Sample[T]) T {
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

// PushGroup adds deltaN, deltaZ (each length hi-lo) into the server's n
// and z for [lo, hi), then zeroes deltaN and deltaZ in place. Zeroing
// the caller's own buffers is part of the contract: the worker that
// just pushed must not accumulate the same delta twice.
func (s *Server[T]) PushGroup(lo, hi int, deltaN, deltaZ []T) {
	firstShard, lastShard := ShardOf(lo), ShardOf(hi-1)
	for shard := firstShard; shard <= lastShard; shard++ {
		s.locks[shard].Lock()
		sLo, sHi := ShardBounds(shard, s.D)
		for i := max(lo, sLo); i < min(hi, sHi); i++ {
			s.N[i] += deltaN[i-lo]
			s.Z[i] += deltaZ[i-lo]
			deltaN[i-lo] = 0
			deltaZ[i-lo] = 0
		}
		s.locks[shard].Unlock()
	}
}
