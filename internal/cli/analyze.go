package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/gzhole/scriptshield/internal/analyzer"
	"github.com/gzhole/scriptshield/internal/fileinfo"
	"github.com/gzhole/scriptshield/internal/logger"
	"github.com/gzhole/scriptshield/internal/risk"
	"github.com/gzhole/scriptshield/internal/store"
)

var (
	analyzeJSON    bool
	analyzeStore   bool
	analyzeFailOn  string
	analyzeTimeout time.Duration
	analyzeWorkers int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Statically analyze one or more shell scripts",
	Long: `Analyze shell scripts without executing them and print the report.

On a terminal a short summary is printed per file; otherwise (or with --json)
the full JSON report is written to stdout.

Examples:
  scriptshield analyze install.sh
  scriptshield analyze --json *.sh > report.json
  scriptshield analyze --fail-on suspicious deploy/*.sh   # non-zero exit in CI`,
	Args: cobra.MinimumNArgs(1),
	RunE: analyzeCommand,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Always print the JSON report")
	analyzeCmd.Flags().BoolVar(&analyzeStore, "store", false, "Persist results in the local result store")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "", "Exit non-zero if any script is rated at least this category (suspicious, malicious)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "Per-file analysis timeout (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Number of files analyzed in parallel (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

// fileReport is one analyzed path.
type fileReport struct {
	Path    string
	ID      string
	Result  *analyzer.Result
	Elapsed time.Duration
}

type batchOptions struct {
	Workers int
	Timeout time.Duration
}

func analyzeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	var threshold risk.Category
	if analyzeFailOn != "" {
		threshold, err = risk.ParseCategory(analyzeFailOn)
		if err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
	}

	engine, err := newEngine(cfg, zl)
	if err != nil {
		return err
	}

	opts := batchOptions{Workers: cfg.Analysis.Workers, Timeout: cfg.Analysis.Timeout}
	if analyzeWorkers > 0 {
		opts.Workers = analyzeWorkers
	}
	if analyzeTimeout > 0 {
		opts.Timeout = analyzeTimeout
	}

	reports, err := analyzeFiles(cmd.Context(), engine, args, opts)
	if err != nil {
		return err
	}

	recordReports(cfg.LogPath, cfg.Store.Path, analyzeStore, reports, zl)

	out := cmd.OutOrStdout()
	if !analyzeJSON && isTerminal(out) {
		writeSummary(out, reports)
	} else if err := writeJSON(out, reports); err != nil {
		return err
	}

	if threshold != "" {
		if n := countAtLeast(reports, threshold); n > 0 {
			return fmt.Errorf("%d of %d scripts rated %s or worse", n, len(reports), threshold)
		}
	}
	return nil
}

// analyzeFiles runs the engine over paths with at most opts.Workers files
// in flight. A file that exceeds its timeout gets an error result; only
// cancellation of ctx aborts the batch. Reports keep the order of paths.
func analyzeFiles(ctx context.Context, engine *analyzer.Engine, paths []string, opts batchOptions) ([]fileReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]fileReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			fctx := gctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, opts.Timeout)
				defer cancel()
			}

			start := time.Now()
			res, err := engine.AnalyzeFile(fctx, path)
			elapsed := time.Since(start)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("%s: %w", path, err)
				}
				res = timedOut(opts.Timeout)
			}

			reports[i] = fileReport{Path: path, ID: uuid.New().String(), Result: res, Elapsed: elapsed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func timedOut(limit time.Duration) *analyzer.Result {
	return &analyzer.Result{
		Timestamp: fileinfo.ISOTime(time.Now().UTC()) + "+00:00",
		Error:     fmt.Sprintf("analysis timed out after %s", limit),
	}
}

// recordReports writes one audit event per report and, when persist is
// set, stores each result. Failures here are logged, not returned: the
// analysis output is still valid.
func recordReports(auditPath, storePath string, persist bool, reports []fileReport, zl *zap.Logger) {
	audit, err := logger.New(auditPath)
	if err != nil {
		zl.Warn("audit log unavailable", zap.String("path", auditPath), zap.Error(err))
	} else {
		defer audit.Close()
	}

	var st *store.Store
	if persist {
		st, err = store.Open(storePath)
		if err != nil {
			zl.Warn("result store unavailable", zap.String("path", storePath), zap.Error(err))
		} else {
			defer st.Close()
		}
	}

	for _, r := range reports {
		if audit != nil {
			if err := audit.Log(logger.NewAnalysisEvent(r.ID, "cli", r.Result, r.Elapsed)); err != nil {
				zl.Warn("audit log write", zap.String("path", r.Path), zap.Error(err))
			}
		}
		if st != nil {
			data, err := json.Marshal(r.Result)
			if err == nil {
				err = st.Put(r.ID, r.Result.SHA256(), data)
			}
			if err != nil {
				zl.Warn("store result", zap.String("path", r.Path), zap.Error(err))
			}
		}
		zl.Debug("analyzed",
			zap.String("path", r.Path),
			zap.String("analysis_id", r.ID),
			zap.Duration("elapsed", r.Elapsed),
		)
	}
}

// writeJSON prints a single report as one indented result, several as an
// array of results.
func writeJSON(w io.Writer, reports []fileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0].Result)
	}
	results := make([]*analyzer.Result, len(reports))
	for i, r := range reports {
		results[i] = r.Result
	}
	return enc.Encode(results)
}

func writeSummary(w io.Writer, reports []fileReport) {
	for _, r := range reports {
		res := r.Result
		if res.Fatal() {
			fmt.Fprintf(w, "%s %s\n     Error: %s\n\n", categoryIcon(""), r.Path, res.Error)
			continue
		}
		a := res.RiskAssessment
		fmt.Fprintf(w, "%s %s  %s (%.2f%%, %s)\n", categoryIcon(a.Category), r.Path, a.Category, a.RiskScorePercentage, a.Severity)
		if families := res.Families(); len(families) > 0 {
			fmt.Fprintf(w, "     Threats: %s\n", strings.Join(families, ", "))
		}
		if len(a.FailedStages) > 0 {
			fmt.Fprintf(w, "     Failed stages: %s\n", strings.Join(a.FailedStages, ", "))
		}
		fmt.Fprintf(w, "     %s\n", a.Recommendation)
		if res.HiddenChars > 0 {
			fmt.Fprintf(w, "     Hidden characters: %d\n", res.HiddenChars)
		}
		fmt.Fprintln(w)
	}
}

// countAtLeast counts reports rated at threshold or worse. Fatal results
// count as Indeterminate.
func countAtLeast(reports []fileReport, threshold risk.Category) int {
	n := 0
	for _, r := range reports {
		category := risk.Indeterminate
		if a := r.Result.RiskAssessment; a != nil {
			category = a.Category
		}
		if category.AtLeast(threshold) {
			n++
		}
	}
	return n
}

func categoryIcon(c risk.Category) string {
	switch c {
	case risk.Malicious:
		return "\xf0\x9f\x9b\x91" // stop sign
	case risk.Suspicious:
		return "\xf0\x9f\x94\x8d" // magnifying glass
	case risk.Safe:
		return "\xe2\x9c\x85" // check mark
	default:
		return "\xe2\x9d\x93" // question mark
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
