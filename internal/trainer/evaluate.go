package trainer

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/paramserver"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

// Evaluate scores every sample in path against the server's current
// weights, fanning the read out across threads goroutines on the
// shared multi-producer reader, and returns the mean log-loss and
// accuracy over the whole file. A prediction is called positive when
// p >= 0.5; a label is positive when label > 0, per spec.md §9.
// cmd/ftrl-predict counts accuracy differently: it calls a prediction
// positive when p > 0.5 and compares the 0/1 result to the label exactly.
func Evaluate[T numeric.Float](server *paramserver.Server[T], path string, threads int) (logLoss, accuracy float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("trainer: open %q: %w", path, err)
	}
	defer f.Close()

	if threads <= 0 {
		threads = 1
	}

	r := sample.New[T](f)

	var (
		mu           sync.Mutex
		totalLoss    float64
		totalCorrect int
		totalSamples int
	)

	var g errgroup.Group
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			var loss float64
			var correct, n int
			for {
				x, ok := r.ReadSampleShared()
				if !ok {
					break
				}
				p := server.Predict(x)
				loss += sampleLogLoss(x.Label, p)
				if (p >= 0.5) == (x.Label > 0) {
					correct++
				}
				n++
			}
			mu.Lock()
			totalLoss += loss
			totalCorrect += correct
			totalSamples += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	if totalSamples == 0 {
		return 0, 0, nil
	}
	return totalLoss / float64(totalSamples), float64(totalCorrect) / float64(totalSamples), nil
}

func sampleLogLoss[T numeric.Float](label, pred T) float64 {
	p := numeric.ClampProb(pred)
	pf := float64(p)
	if label > 0 {
		return -math.Log(pf)
	}
	return -math.Log(1 - pf)
}
