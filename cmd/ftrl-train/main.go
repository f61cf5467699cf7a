// Command ftrl-train trains an FTRL-Proximal logistic regression model
// over a libsvm-style sparse training file, optionally evaluating
// against a held-out test file after every epoch.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/sample"
	"github.com/asyncftrl/ftrlgo/internal/trainer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ftrl-train:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ftrl-train", flag.ContinueOnError)
	train := fs.String("train", "", "path to the training file (required)")
	test := fs.String("test", "", "path to a held-out test file, evaluated after every epoch")
	model := fs.String("model", "", "path to write the trained model")
	startFrom := fs.String("start-from", "", "path to a .save state file to warm-restart from")
	epoch := fs.Int("epoch", 1, "number of epochs")
	alpha := fs.Float64("alpha", 0.1, "FTRL learning rate")
	beta := fs.Float64("beta", 1.0, "FTRL learning rate damping term")
	l1 := fs.Float64("l1", 0, "L1 regularization strength")
	l2 := fs.Float64("l2", 0, "L2 regularization strength")
	dropout := fs.Float64("dropout", 0, "per-feature dropout probability")
	syncStep := fs.Int("sync-step", 3, "worker push/fetch interval in per-shard touches")
	burnIn := fs.Float64("burn-in", 0, "fraction of the training file to run single-threaded before the first epoch's parallel phase (1 skips the parallel phase for that epoch)")
	threads := fs.Int("threads", 1, "number of concurrent training workers")
	double := fs.Bool("double", false, "use float64 accumulators instead of float32")
	cache := fs.Bool("cache", true, "trust/write a sibling .cache file for problem dimensions")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *train == "" {
		return fmt.Errorf("-train is required")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *double {
		return runTyped[float64](*train, *test, *model, *startFrom, *epoch, *alpha, *beta, *l1, *l2, *dropout, *syncStep, *burnIn, *threads, *cache, log)
	}
	return runTyped[float32](*train, *test, *model, *startFrom, *epoch, *alpha, *beta, *l1, *l2, *dropout, *syncStep, *burnIn, *threads, *cache, log)
}

func runTyped[T numeric.Float](trainPath, testPath, modelPath, startFrom string, epochs int, alpha, beta, l1, l2, dropout float64, syncStep int, burnIn float64, threads int, cache bool, log *logrus.Logger) error {
	n, d, err := sample.ScanProblemInfo[T](trainPath, max(threads, 1), cache)
	if err != nil {
		return fmt.Errorf("scan training file: %w", err)
	}

	cfg := trainer.Config[T]{
		TrainPath: trainPath,
		TestPath:  testPath,
		ModelPath: modelPath,
		StartFrom: startFrom,
		Hyperparams: ftrl.Hyperparams[T]{
			Alpha:   T(alpha),
			Beta:    T(beta),
			L1:      T(l1),
			L2:      T(l2),
			Dropout: T(dropout),
			D:       d,
		},
		Epochs:    epochs,
		Threads:   threads,
		SyncStep:  syncStep,
		LineCount: n,
		BurnIn:    T(burnIn),
		UseCache:  cache,
		Progress:  trainer.LogrusProgress(log),
	}

	if _, err := trainer.Train(cfg); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}
