package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adushin/queryguard/internal/corpus"
)

// #region main

func main() {
	seed := flag.Int64("seed", 123, "generation seed for the training corpus")
	outPath := flag.String("out", "", "output corpus JSON path (stdout if empty)")
	flag.Parse()

	if err := run(*seed, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

// exportSample mirrors corpus.Sample with JSON tags for external tooling.
type exportSample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type export struct {
	Seed    int64          `json:"seed"`
	Count   int            `json:"count"`
	Samples []exportSample `json:"samples"`
}

func run(seed int64, outPath string) error {
	samples := corpus.Build(seed)

	out := export{Seed: seed, Count: len(samples), Samples: make([]exportSample, len(samples))}
	for i, s := range samples {
		out.Samples[i] = exportSample{Text: s.Text, Label: s.Label}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}

	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %d samples to %s (%d bytes)\n", len(samples), outPath, len(data))
	return nil
}

// #endregion export
