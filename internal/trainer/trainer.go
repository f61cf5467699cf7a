// Package trainer drives one or more epochs over a training file,
// dispatching to a single-threaded or concurrent phase per epoch and
// reporting progress through a caller-supplied callback (spec.md §4.F).
package trainer

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/paramserver"
	"github.com/asyncftrl/ftrlgo/internal/sample"
	"github.com/asyncftrl/ftrlgo/internal/worker"
)

// Progress is reported once per epoch.
type Progress struct {
	Epoch    int
	Samples  int
	LogLoss  float64
	Accuracy float64
}

// ProgressFunc receives one Progress per completed epoch.
type ProgressFunc func(Progress)

// Config gathers everything Train needs for one run.
type Config[T numeric.Float] struct {
	TrainPath string
	TestPath  string // optional; empty skips held-out evaluation
	ModelPath string // where SaveAll writes after the final epoch
	StartFrom string // optional; a ".save" file to warm-restart from

	Hyperparams ftrl.Hyperparams[T]

	Epochs   int
	Threads  int // 0 uses runtime.NumCPU(); 1 runs the serial trainer; >1 runs the parallel trainer
	SyncStep int // push/fetch interval for workers (spec default 3)

	// LineCount is the number of lines in TrainPath, as reported by
	// sample.ScanProblemInfo. It is what BurnIn's fraction is taken
	// against; left at 0, BurnIn has nothing to apply to and no burn-in
	// pass runs regardless of BurnIn's value.
	LineCount int

	// BurnIn is the fraction of TrainPath's lines to run through a
	// single-threaded warm-up pass before the first epoch's parallel
	// phase releases the worker pool (spec.md §4.F, original_source's
	// FastFtrlTrainer::TrainImpl: burn_in_cnt = burn_in_ * line_cnt).
	// BurnIn == 1 consumes the entire first epoch as burn-in and skips
	// the parallel phase for that epoch entirely.
	BurnIn T

	UseCache bool

	Progress ProgressFunc
}

// Train runs Config.Epochs epochs over TrainPath, building the server
// from StartFrom if given or from scratch otherwise, and writes the
// final model to ModelPath. It returns the trained server so callers
// (tests, cmd/ftrl-train) can inspect it without a round trip through
// disk.
func Train[T numeric.Float](cfg Config[T]) (*paramserver.Server[T], error) {
	var server *paramserver.Server[T]
	var err error
	if cfg.StartFrom != "" {
		server, err = paramserver.LoadServer[T](cfg.StartFrom)
		if err != nil {
			return nil, fmt.Errorf("trainer: warm start: %w", err)
		}
	} else {
		if cfg.Hyperparams.D == 0 {
			return nil, fmt.Errorf("trainer: %w", ftrl.ErrFeatureCountZero)
		}
		server = paramserver.NewServer(cfg.Hyperparams)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	syncStep := cfg.SyncStep
	if syncStep <= 0 {
		syncStep = 3
	}

	// server.Hyperparams is authoritative even on a warm start, where it
	// came from the loaded state file rather than cfg.Hyperparams.
	hp := server.Hyperparams

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		f, err := os.Open(cfg.TrainPath)
		if err != nil {
			return nil, fmt.Errorf("trainer: open %q: %w", cfg.TrainPath, err)
		}

		var samples int
		if threads == 1 {
			samples, err = runSerialEpoch(server, f, hp)
		} else {
			burnInCutoff := 0
			skipParallel := false
			if epoch == 0 && cfg.BurnIn > 0 {
				burnInCutoff = int(cfg.BurnIn * T(cfg.LineCount))
				skipParallel = numeric.Equal(cfg.BurnIn, T(1))
			}
			samples, err = runParallelEpoch(server, f, hp, threads, syncStep, burnInCutoff, skipParallel)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("trainer: epoch %d: %w", epoch, err)
		}

		if cfg.Progress != nil {
			p := Progress{Epoch: epoch, Samples: samples}
			if cfg.TestPath != "" {
				loss, acc, evalErr := Evaluate(server, cfg.TestPath, threads)
				if evalErr != nil {
					return nil, fmt.Errorf("trainer: evaluate epoch %d: %w", epoch, evalErr)
				}
				p.LogLoss, p.Accuracy = loss, acc
			}
			cfg.Progress(p)
		}
	}

	if cfg.ModelPath != "" {
		if err := server.SaveAll(cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("trainer: save model: %w", err)
		}
	}

	return server, nil
}

// runSerialEpoch drives a single-threaded solver directly against the
// server's own state: with one thread there is nothing to shard or
// stage, so the solver operates on the server's arrays in place.
func runSerialEpoch[T numeric.Float](server *paramserver.Server[T], f *os.File, hp ftrl.Hyperparams[T]) (int, error) {
	s := ftrl.FromState(server.CoreState)
	r := sample.New[T](f)
	n := 0
	for {
		x, ok := r.ReadSample()
		if !ok {
			break
		}
		s.Update(x)
		n++
	}
	return n, nil
}

// runParallelEpoch optionally runs a single-threaded burn-in pass over
// the first burnInCutoff lines of the file directly against the
// server's own state (spec.md §4.F, original_source's
// FastFtrlTrainer::TrainImpl: burn_in_cnt = burn_in_ * line_cnt), then,
// unless skipParallel says the burn-in pass already consumed the whole
// epoch, resets every worker from the server and fans threads workers
// out over the shared multi-producer reader.
func runParallelEpoch[T numeric.Float](server *paramserver.Server[T], f *os.File, hp ftrl.Hyperparams[T], threads, syncStep, burnInCutoff int, skipParallel bool) (int, error) {
	r := sample.New[T](f)
	total := 0

	if burnInCutoff > 0 {
		s := ftrl.FromState(server.CoreState)
		for i := 0; i < burnInCutoff; i++ {
			x, ok := r.ReadSample()
			if !ok {
				break
			}
			s.Update(x)
			total++
		}
		if skipParallel {
			return total, nil
		}
	}

	workers := make([]*worker.Worker[T], threads)
	for i := range workers {
		workers[i] = worker.NewWorker(hp, syncStep, syncStep)
		workers[i].Reset(server)
	}

	var g errgroup.Group
	var counts = make([]int, threads)
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			n := 0
			for {
				x, ok := r.ReadSampleShared()
				if !ok {
					break
				}
				w.Update(x, server)
				n++
			}
			w.PushParam(server)
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	for _, c := range counts {
		total += c
	}
	return total, nil
}

// LogrusProgress adapts a *logrus.Logger into a ProgressFunc, logging
// one structured line per epoch.
func LogrusProgress(log *logrus.Logger) ProgressFunc {
	return func(p Progress) {
		log.WithFields(logrus.Fields{
			"epoch":    p.Epoch,
			"samples":  p.Samples,
			"logloss":  p.LogLoss,
			"accuracy": p.Accuracy,
		}).Info("epoch complete")
	}
}
