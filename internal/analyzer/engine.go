package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gzhole/scriptshield/internal/fileinfo"
	"github.com/gzhole/scriptshield/internal/risk"
	"github.com/gzhole/scriptshield/internal/threat"
)

// DefaultMaxSize bounds how much of a script is read for analysis.
const DefaultMaxSize int64 = 10 << 20

// ErrTooLarge is returned for scripts above the engine's size limit.
var ErrTooLarge = errors.New("script exceeds maximum size")

// Engine runs the analysis pipeline. It is safe for concurrent use: the
// catalog is the only shared state and it is read only.
type Engine struct {
	catalog  *threat.Catalog
	registry *Registry
	maxSize  int64
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSize sets the size limit. Non-positive values keep the default.
func WithMaxSize(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over catalog. A nil catalog means the
// built-in one.
func NewEngine(catalog *threat.Catalog, opts ...Option) *Engine {
	detector := threat.NewDetector(catalog)
	e := &Engine{
		catalog:  detector.Catalog(),
		registry: NewRegistry(DefaultStages(detector)...),
		maxSize:  DefaultMaxSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the threat catalog the engine scores against.
func (e *Engine) Catalog() *threat.Catalog {
	return e.catalog
}

// MaxSize returns the size limit in bytes.
func (e *Engine) MaxSize() int64 {
	return e.maxSize
}

// Analyze runs every stage on in and fuses the risk assessment. Stage
// failures are recorded in their sections. If ctx is done before the run
// completes, Analyze returns the context error and no result.
func (e *Engine) Analyze(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ac := &AnalysisContext{
		Input: in,
		Result: &Result{
			Timestamp:    e.timestamp(),
			HiddenChars:  in.Decoded.HiddenTotal,
			DroppedBytes: in.Decoded.Dropped,
		},
	}

	failures, err := e.registry.RunAll(ctx, ac)
	if err != nil {
		return nil, err
	}
	ac.Result.Failures = failures

	var failed []string
	for _, f := range failures {
		if riskInputs[f.Stage] {
			failed = append(failed, f.Stage)
		}
	}

	assessment := risk.Fuse(risk.Signals{
		ThreatScore:      ac.Threats.Score,
		IndicatorsFound:  len(ac.Threats.Matches),
		BehaviorCount:    ac.Behavior.RiskBehaviorCount,
		BehaviorsChecked: ac.Behavior.TotalBehaviorsChecked,
		FailedStages:     failed,
	})
	ac.Result.RiskAssessment = &assessment

	return ac.Result, nil
}

// AnalyzeBytes analyzes an in-memory script.
func (e *Engine) AnalyzeBytes(ctx context.Context, name string, raw []byte) (*Result, error) {
	if int64(len(raw)) > e.maxSize {
		return nil, fmt.Errorf("%d bytes: %w", len(raw), ErrTooLarge)
	}
	return e.Analyze(ctx, NewInput(raw, name))
}

// AnalyzeFile reads and analyzes the script at path. A file that cannot be
// read yields a fatal result carrying the error, not a Go error; only
// cancellation is returned as an error.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := e.readFile(path)
	if err != nil {
		return e.fatal(path, err), nil
	}
	in := NewInput(raw, path)
	in.Path = path
	return e.Analyze(ctx, in)
}

func (e *Engine) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, e.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(raw)) > e.maxSize {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrTooLarge, e.maxSize)
	}
	return raw, nil
}

func (e *Engine) fatal(path string, err error) *Result {
	res := &Result{Timestamp: e.timestamp(), Error: err.Error()}
	if md, statErr := fileinfo.Stat(path, nil); statErr == nil {
		res.Metadata = Ok(md)
	}
	return res
}

func (e *Engine) timestamp() string {
	return fileinfo.ISOTime(e.now().UTC()) + "+00:00"
}
