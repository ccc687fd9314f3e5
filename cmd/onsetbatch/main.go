// Command onsetbatch runs the onset detection pipeline over a batch
// file or a tick-by-tick stdin stream, emitting confirmed events as
// line-oriented JSON on stdout. Wiring order (ingest -> pipeline ->
// output) follows cmd/orderflow/main.go's pattern, adapted to a
// single-shot batch CLI using cobra, the way sawpanic/cryptorun's
// cmd/cryptorun and cloudmanic/massive's cmd/ws_stocks.go build their
// entry points.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"onsetdetect/internal/config"
	"onsetdetect/internal/ingest"
	"onsetdetect/internal/logging"
	"onsetdetect/internal/model"
	"onsetdetect/internal/pipeline"
)

const (
	exitClean     = 0
	exitConfigErr = 2
	exitMalformed = 3
)

var (
	configPath string
	streamMode bool
	showStats  bool
)

func main() {
	root := &cobra.Command{
		Use:   "onsetbatch [input]",
		Short: "Run the onset detection pipeline over a tick file or stdin stream",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.Flags().BoolVar(&streamMode, "stream", false, "read ticks from stdin one at a time instead of a named file")
	root.Flags().BoolVar(&showStats, "stats", false, "emit summary event counts to stderr on completion")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logging.Default("onsetbatch")

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(exitConfigErr)
	}

	in, closeIn, err := openInput(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "input error:", err)
		os.Exit(exitMalformed)
	}
	defer closeIn()

	reader := ingest.NewReplayReader(in)
	enc := json.NewEncoder(os.Stdout)

	// Batch mode drives one Pipeline per symbol directly, in a single
	// goroutine: input order is already fixed by the file, so there is
	// no parallelism to gain and this keeps output deterministic.
	pipelines := map[string]*pipeline.Pipeline{}

	counts := map[model.EventType]int{}

	for {
		t, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "malformed input:", err)
			os.Exit(exitMalformed)
		}

		p, ok := pipelines[t.Symbol]
		if !ok {
			p = pipeline.New(t.Symbol, cfg, log)
			pipelines[t.Symbol] = p
		}

		evs, err := p.Push(t)
		if err != nil {
			log.Warn().Err(err).Str("symbol", t.Symbol).Int64("ts", t.Ts).Msg("bad tick dropped")
			continue
		}
		for _, e := range evs {
			counts[eventType(e)]++
			if ce, ok := e.(*model.ConfirmedEvent); ok {
				if err := enc.Encode(ce); err != nil {
					return fmt.Errorf("writing event: %w", err)
				}
			}
		}
	}

	if showStats {
		for _, et := range []model.EventType{model.EventCandidate, model.EventConfirmed, model.EventRejectedRefractory} {
			fmt.Fprintf(os.Stderr, "%s: %d\n", et, counts[et])
		}
	}
	os.Exit(exitClean)
	return nil
}

func eventType(e model.Event) model.EventType {
	switch v := e.(type) {
	case *model.CandidateEvent:
		return v.Type
	case *model.ConfirmedEvent:
		return v.Type
	case *model.RejectedRefractoryEvent:
		return v.Type
	default:
		return ""
	}
}

// openInput resolves the positional input argument (or --stream mode)
// to a readable stream. With --stream set, or no positional argument
// given, input is read from stdin; otherwise the named file is opened,
// with "-" also meaning stdin.
func openInput(args []string) (io.Reader, func() error, error) {
	if streamMode || len(args) == 0 {
		return os.Stdin, func() error { return nil }, nil
	}
	path := args[0]
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	var raw config.Config
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return config.Config{}, err
	}
	cfg := raw.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
