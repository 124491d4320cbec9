package analyzer

import (
	"context"
	"encoding/json"

	"github.com/gzhole/scriptshield/internal/behavior"
	"github.com/gzhole/scriptshield/internal/commands"
	"github.com/gzhole/scriptshield/internal/decode"
	"github.com/gzhole/scriptshield/internal/extract"
	"github.com/gzhole/scriptshield/internal/fileinfo"
	"github.com/gzhole/scriptshield/internal/risk"
	"github.com/gzhole/scriptshield/internal/threat"
)

// Stage is one step of the analysis pipeline. Each stage reads the input
// from the AnalysisContext and writes its own section of the result.
type Stage interface {
	// Name returns the stage identifier (e.g., "metadata", "threats").
	Name() string

	// Run computes the stage's section. A returned error is recorded in the
	// section; it does not stop the other stages.
	Run(ctx context.Context, ac *AnalysisContext) error

	// Fail records msg as the stage's section error.
	Fail(ac *AnalysisContext, msg string)
}

// Input is a single script to analyze. It is built once and never mutated.
type Input struct {
	Raw      []byte
	Decoded  decode.Text
	FileName string
	Path     string // empty for scripts that were never on disk
}

// NewInput decodes raw for analysis.
func NewInput(raw []byte, fileName string) Input {
	return Input{Raw: raw, Decoded: decode.Bytes(raw), FileName: fileName}
}

// Text returns the decoded script text.
func (in Input) Text() string {
	return in.Decoded.Text
}

// AnalysisContext carries the input and the result under construction
// through every stage.
type AnalysisContext struct {
	Input  Input
	Result *Result

	// Enrichments read by risk fusion.
	Threats  threat.Report
	Behavior behavior.Report
}

// Section is a result section that either holds a value or the error that
// prevented computing it.
type Section[T any] struct {
	Value T
	Err   string
}

// Ok wraps a computed value.
func Ok[T any](v T) *Section[T] {
	return &Section[T]{Value: v}
}

// Failed records a section error.
func Failed[T any](msg string) *Section[T] {
	return &Section[T]{Err: msg}
}

// OK reports whether the section holds a value.
func (s *Section[T]) OK() bool {
	return s != nil && s.Err == ""
}

// MarshalJSON writes the value, or {"error": msg} for a failed section.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	if s.Err != "" {
		return json.Marshal(sectionError{Error: s.Err})
	}
	return json.Marshal(s.Value)
}

type sectionError struct {
	Error string `json:"error"`
}

// ThreatSection is the threat_indicators list. Its failure form is a
// one-element list holding the error.
type ThreatSection struct {
	Section[[]threat.Match]
}

// OK reports whether the section holds a value.
func (s *ThreatSection) OK() bool {
	return s != nil && s.Err == ""
}

func (s ThreatSection) MarshalJSON() ([]byte, error) {
	if s.Err != "" {
		return json.Marshal([]sectionError{{Error: s.Err}})
	}
	if s.Value == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Value)
}

// Result is the full analysis report.
type Result struct {
	Metadata           *Section[fileinfo.Metadata] `json:"metadata,omitempty"`
	Hashes             *Section[fileinfo.Hashes]   `json:"hashes,omitempty"`
	StringsAnalysis    *Section[extract.Report]    `json:"strings_analysis,omitempty"`
	CommandsDetected   *Section[commands.Detected] `json:"commands_detected,omitempty"`
	ThreatIndicators   *ThreatSection              `json:"threat_indicators,omitempty"`
	BehavioralAnalysis *Section[behavior.Report]   `json:"behavioral_analysis,omitempty"`
	RiskAssessment     *risk.Assessment            `json:"risk_assessment,omitempty"`
	Timestamp          string                      `json:"timestamp"`

	// Error is set when no analysis could run at all.
	Error string `json:"error,omitempty"`

	// Not serialized; surfaced to logs.
	Failures     []Failure `json:"-"`
	ThreatScore  int       `json:"-"`
	HiddenChars  int       `json:"-"`
	DroppedBytes int       `json:"-"`
}

// Fatal reports whether the result carries no analysis.
func (r *Result) Fatal() bool {
	return r.Error != ""
}

// SHA256 returns the content digest, or "" when hashing did not run.
func (r *Result) SHA256() string {
	if !r.Hashes.OK() {
		return ""
	}
	return r.Hashes.Value.SHA256
}

// FileName returns the analyzed file's base name, if known.
func (r *Result) FileName() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.Value.Filename
}

// SizeBytes returns the analyzed size, if known.
func (r *Result) SizeBytes() int64 {
	if r.Metadata == nil {
		return 0
	}
	return r.Metadata.Value.SizeBytes
}

// Families returns the ids of the threat families that matched.
func (r *Result) Families() []string {
	if !r.ThreatIndicators.OK() {
		return nil
	}
	out := make([]string, 0, len(r.ThreatIndicators.Value))
	for _, m := range r.ThreatIndicators.Value {
		out = append(out, m.Type)
	}
	return out
}

// Failure is a stage that did not produce its section.
type Failure struct {
	Stage   string
	Message string
}
