package sample

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestParserRobustness implements spec.md §8 scenario 3.
func TestParserRobustness(t *testing.T) {
	input := "1 0:1 1:2\n0 2:1\ngarbage\n1 0:bad 3:4\n0\n"
	r := New[float64](strings.NewReader(input))

	var got []Sample[float64]
	for {
		s, ok := r.ReadSample()
		if !ok {
			break
		}
		got = append(got, s)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d: %+v", len(got), got)
	}

	// Line 4 ("1 0:bad 3:4") should keep only the (3,4) token.
	line4 := got[2]
	if len(line4.Features) != 1 || line4.Features[0].Index != 3 || line4.Features[0].Value != 4 {
		t.Errorf("line 4 features = %+v, want [{3 4}]", line4.Features)
	}

	// Line 5 ("0") should parse with y=0 and no features.
	line5 := got[3]
	if line5.Label != 0 || len(line5.Features) != 0 {
		t.Errorf("line 5 = %+v, want label=0 features=[]", line5)
	}
}

func TestNegativeLabelClampedToZero(t *testing.T) {
	r := New[float64](strings.NewReader("-5 0:1\n"))
	s, ok := r.ReadSample()
	if !ok {
		t.Fatal("expected a sample")
	}
	if s.Label != 0 {
		t.Errorf("label = %v, want 0", s.Label)
	}
}

func TestReadSampleSharedDisjointLines(t *testing.T) {
	const nLines = 200
	var sb strings.Builder
	for i := 0; i < nLines; i++ {
		sb.WriteString("1 0:1\n")
	}
	r := New[float64](strings.NewReader(sb.String()))

	results := make(chan int, 4)
	for g := 0; g < 4; g++ {
		go func() {
			count := 0
			for {
				_, ok := r.ReadSampleShared()
				if !ok {
					break
				}
				count++
			}
			results <- count
		}()
	}

	total := 0
	for i := 0; i < 4; i++ {
		total += <-results
	}
	if total != nLines {
		t.Errorf("total lines read across goroutines = %d, want %d", total, nLines)
	}
}

// TestScanProblemInfoAndCache implements spec.md §8 scenario 5.
func TestScanProblemInfoAndCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.txt")
	content := "1 0:1 4:2\n0 2:1\n1 9:3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	n, d, err := ScanProblemInfo[float64](path, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("line count = %d, want 3", n)
	}
	if d != 10 {
		t.Errorf("feature count = %d, want 10 (max index 9 + 1)", d)
	}

	cachePath := path + ".cache"
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("expected cache file to be written: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	n2, d2, err := ScanProblemInfo[float64](path, 2, true)
	if err != nil {
		t.Fatalf("rescan with cache should not touch the missing data file: %v", err)
	}
	if n2 != n || d2 != d {
		t.Errorf("cached rescan = (%d,%d), want (%d,%d)", n2, d2, n, d)
	}
}
