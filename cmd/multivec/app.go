package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/backend/memory"
	"github.com/viant/multivec/backend/milvus"
	"github.com/viant/multivec/backend/sqlite"
	"github.com/viant/multivec/bench"
	"github.com/viant/multivec/config"
	"github.com/viant/multivec/container"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/internal/logging"
	"github.com/viant/multivec/maxsim"
)

const usage = "usage: multivec <load|search|recall> [flags]"

type app struct {
	cfg    *config.Config
	logger *logging.Logger
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errs.InvalidArgument("multivec", usage)
	}
	command := args[0]
	switch command {
	case "load", "search", "recall":
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		return errs.InvalidArgument("multivec", "unknown command %q; %s", command, usage)
	}

	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.Flags(flags)
	if err := flags.Parse(args[1:]); err != nil {
		return errs.Wrap(errs.ErrInvalidArgument, "multivec", err)
	}
	cfg, err := config.Load("", flags)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArgument, "multivec", err)
	}
	logger, err := logging.NewWriter(stderr, cfg.LogFormat, level)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArgument, "multivec", err)
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout}
	switch command {
	case "load":
		return a.load(ctx)
	case "search":
		return a.search(ctx)
	default:
		return a.recall()
	}
}

// openBackend connects to the configured backend kind.
func (a *app) openBackend(ctx context.Context) (backend.Backend, error) {
	switch a.cfg.Backend {
	case config.BackendSQLite:
		return sqlite.Open(ctx, a.cfg.SQLiteDSN(), a.cfg.SQLite())
	case config.BackendMilvus:
		return milvus.Connect(ctx, a.cfg.Milvus())
	default:
		return memory.New(memory.WithMetric(a.cfg.MetricValue()), memory.WithSchema(a.cfg.Schema())), nil
	}
}

// loadCorpus streams the configured corpus container into b.
func (a *app) loadCorpus(ctx context.Context, b backend.Loader) (int64, error) {
	if a.cfg.Corpus == "" {
		return 0, errs.InvalidArgument("multivec: load", "corpus is required")
	}
	f, err := container.Open(a.cfg.Corpus, a.cfg.ChunkSize)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return backend.Load(ctx, b, a.cfg.Collection, f, a.cfg.BatchSize, a.logger.WithPath(a.cfg.Corpus))
}

func (a *app) load(ctx context.Context) error {
	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if a.cfg.Backend == config.BackendMemory {
		a.logger.Warn("memory backend does not outlive the process; load only validates the corpus")
	}
	n, err := a.loadCorpus(ctx, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "loaded %d vectors into %s (%s)\n", n, a.cfg.Collection, a.cfg.Backend)
	return nil
}

func (a *app) search(ctx context.Context) error {
	if a.cfg.Queries == "" {
		return errs.InvalidArgument("multivec: search", "queries is required")
	}
	mode := a.cfg.ModeValue()
	src := maxsim.Sources{Collection: a.cfg.Collection, Schema: a.cfg.Schema()}

	switch mode {
	case maxsim.ModeInMemory:
		if a.cfg.Corpus == "" {
			return errs.InvalidArgument("multivec: search", "in-memory mode requires a corpus")
		}
		w, err := bench.LoadInMemory(ctx, a.cfg.Corpus, a.cfg.Queries, a.cfg.ChunkSize)
		if err != nil {
			return err
		}
		src.Corpus = w.Corpus.Docs
		return a.rank(ctx, mode, src, w)
	default:
		b, err := a.openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		if a.cfg.Backend == config.BackendMemory {
			if _, err := a.loadCorpus(ctx, b); err != nil {
				return err
			}
		}
		src.Searcher = b
		w, err := bench.LoadInMemory(ctx, "", a.cfg.Queries, a.cfg.ChunkSize)
		if err != nil {
			return err
		}
		return a.rank(ctx, mode, src, w)
	}
}

func (a *app) rank(ctx context.Context, mode maxsim.Mode, src maxsim.Sources, w *bench.Workload) error {
	ranker, err := maxsim.New(ctx, mode, src, a.cfg.Options())
	if err != nil {
		return err
	}
	results, runErr := bench.Run(ctx, ranker, w.Queries, a.cfg.TopK, a.logger)
	if runErr != nil && len(results) == 0 {
		return runErr
	}

	out := a.cfg.Results
	var truth [][]int64
	if out == "" && mode == maxsim.ModeInMemory {
		out = a.cfg.GroundTruth
	} else {
		if out == "" {
			out = modeResultsPath(a.cfg.GroundTruth, mode)
		}
		if truth, err = readOptionalTruth(a.cfg.GroundTruth); err != nil {
			return err
		}
	}
	if err := bench.WriteGroundTruthFile(out, bench.IDs(results)); err != nil {
		return err
	}
	summary := bench.Summarize(results, a.cfg.TopK, truth)
	summary.Mode = mode.String()
	if mode == maxsim.ModeDelegated {
		summary.Backend = a.cfg.Backend
	}
	if err := a.report(summary); err != nil {
		return err
	}
	return runErr
}

func (a *app) recall() error {
	if a.cfg.Results == "" {
		return errs.InvalidArgument("multivec: recall", "results is required")
	}
	truth, err := bench.ReadGroundTruthFile(a.cfg.GroundTruth)
	if err != nil {
		return err
	}
	got, err := bench.ReadGroundTruthFile(a.cfg.Results)
	if err != nil {
		return err
	}
	mean, err := bench.MeanRecall(truth, got)
	if err != nil {
		return err
	}
	return a.report(bench.Summary{Queries: len(got), TopK: a.cfg.TopK, MeanRecall: &mean})
}

// report writes the summary to the configured report file, or to stdout.
func (a *app) report(s bench.Summary) error {
	if a.cfg.Report != "" {
		if err := bench.WriteReportFile(a.cfg.Report, s); err != nil {
			return err
		}
		a.logger.Info("report written", "path", a.cfg.Report)
		return nil
	}
	return bench.WriteReport(a.stdout, s)
}

// modeResultsPath derives the default result file from the ground-truth path,
// e.g. ground_truth.txt becomes ground_truth_delegated.txt.
func modeResultsPath(groundTruth string, mode maxsim.Mode) string {
	if groundTruth == "" {
		groundTruth = "ground_truth.txt"
	}
	ext := filepath.Ext(groundTruth)
	return strings.TrimSuffix(groundTruth, ext) + "_" + mode.String() + ext
}

// readOptionalTruth returns nil when no ground-truth file exists yet.
func readOptionalTruth(path string) ([][]int64, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return bench.ReadGroundTruthFile(path)
}
