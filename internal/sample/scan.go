package sample

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"golang.org/x/sync/errgroup"
)

// ScanProblemInfo scans path once to determine (lineCount, featureCount),
// the feature count being one past the largest feature index seen. The
// scan fans out across threads goroutines reading the shared reader's
// multi-producer path, merging each goroutine's running maximum under a
// single mutex at the end rather than on every sample.
//
// When useCache is true and a sibling "<path>.cache" file exists, its
// contents are trusted and the data file is never opened. When useCache
// is true and no cache file exists, one is written after the scan
// completes — but only then: a cache miss followed by a successful scan
// earns a cache file; a cache hit never triggers a rewrite.
func ScanProblemInfo[T numeric.Float](path string, threads int, useCache bool) (lineCount, featureCount int, err error) {
	cachePath := path + ".cache"

	if useCache {
		if n, d, ok := readCache(cachePath); ok {
			return n, d, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("sample: open %q: %w", path, err)
	}
	defer f.Close()

	if threads <= 0 {
		threads = 1
	}

	r := New[T](f)

	var (
		totalLines int
		maxIndex   = -1
	)
	var g errgroup.Group
	var mu sync.Mutex
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			localLines := 0
			localMax := -1
			for {
				s, ok := r.ReadSampleShared()
				if !ok {
					break
				}
				localLines++
				for _, feat := range s.Features {
					if int(feat.Index) > localMax {
						localMax = int(feat.Index)
					}
				}
			}
			mu.Lock()
			totalLines += localLines
			if localMax > maxIndex {
				maxIndex = localMax
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	lineCount = totalLines
	featureCount = maxIndex + 1

	if useCache {
		writeCache(cachePath, lineCount, featureCount)
	}

	return lineCount, featureCount, nil
}

func readCache(path string) (lineCount, featureCount int, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	var n, d int
	if _, err := fmt.Fscan(bufio.NewReader(f), &n, &d); err != nil {
		return 0, 0, false
	}
	return n, d, true
}

func writeCache(path string, lineCount, featureCount int) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d %d\n", lineCount, featureCount)
}
