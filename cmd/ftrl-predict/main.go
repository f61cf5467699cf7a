// Command ftrl-predict scores a test file against a saved weights file,
// writing one prediction per line and reporting accuracy and mean
// log-likelihood to stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/asyncftrl/ftrlgo/internal/ftrl"
	"github.com/asyncftrl/ftrlgo/internal/numeric"
	"github.com/asyncftrl/ftrlgo/internal/sample"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ftrl-predict:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ftrl-predict", flag.ContinueOnError)
	test := fs.String("test", "", "path to the test file (required)")
	model := fs.String("model", "", "path to a weights file written by ftrl-train (required)")
	output := fs.String("output", "", "path to write one prediction per line (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *test == "" || *model == "" || *output == "" {
		return fmt.Errorf("-test, -model, and -output are all required")
	}

	m, err := ftrl.LoadWeights[float64](*model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	in, err := os.Open(*test)
	if err != nil {
		return fmt.Errorf("open test file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	r := sample.New[float64](in)
	var count, correct int
	var loss float64

	for {
		x, ok := r.ReadSample()
		if !ok {
			break
		}
		pred := m.Predict(x)
		clamped := numeric.ClampProb[float64](pred)
		if _, err := fmt.Fprintf(w, "%f\n", clamped); err != nil {
			return fmt.Errorf("write prediction: %w", err)
		}

		count++
		predLabel := 0.0
		if pred > 0.5 {
			predLabel = 1
		}
		if predLabel == x.Label {
			correct++
		}
		if x.Label > 0 {
			loss += -math.Log(clamped)
		} else {
			loss += -math.Log(1 - clamped)
		}
	}

	if count > 0 {
		fmt.Printf("Accuracy = %.2f%% (%d/%d)\n", float64(correct)/float64(count)*100, correct, count)
		fmt.Printf("Log-likelihood = %f\n", loss/float64(count))
	}
	return nil
}
