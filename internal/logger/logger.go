package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gzhole/scriptshield/internal/analyzer"
	"github.com/gzhole/scriptshield/internal/redact"
)

// defaultMaxLogBytes is the size at which the audit log is rotated to
// <path>.1 when it is opened.
const defaultMaxLogBytes = 10 << 20

// AuditEvent is one analysis, as recorded in the JSONL audit log.
type AuditEvent struct {
	Timestamp    string   `json:"timestamp"`
	AnalysisID   string   `json:"analysis_id"`
	Source       string   `json:"source"` // "cli" or "http"
	Filename     string   `json:"filename,omitempty"`
	SHA256       string   `json:"sha256,omitempty"`
	SizeBytes    int64    `json:"size_bytes"`
	Category     string   `json:"category,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	RiskScore    float64  `json:"risk_score"`
	ThreatScore  int      `json:"threat_score"`
	Families     []string `json:"families,omitempty"`
	Evidence     []string `json:"evidence,omitempty"`
	FailedStages []string `json:"failed_stages,omitempty"`
	HiddenChars  int      `json:"hidden_chars,omitempty"`
	DroppedBytes int      `json:"dropped_bytes,omitempty"`
	Error        string   `json:"error,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// Flagged reports whether the analysis rated anything other than Safe.
func (e AuditEvent) Flagged() bool {
	return e.Category != "" && e.Category != "Safe"
}

// NewAnalysisEvent summarizes res for the audit log. Evidence holds the
// first sample of each matched family.
func NewAnalysisEvent(id, source string, res *analyzer.Result, elapsed time.Duration) AuditEvent {
	e := AuditEvent{
		Timestamp:    res.Timestamp,
		AnalysisID:   id,
		Source:       source,
		Filename:     res.FileName(),
		SHA256:       res.SHA256(),
		SizeBytes:    res.SizeBytes(),
		ThreatScore:  res.ThreatScore,
		Families:     res.Families(),
		HiddenChars:  res.HiddenChars,
		DroppedBytes: res.DroppedBytes,
		Error:        res.Error,
		DurationMS:   elapsed.Milliseconds(),
	}
	if a := res.RiskAssessment; a != nil {
		e.Category = string(a.Category)
		e.Severity = string(a.Severity)
		e.RiskScore = a.RiskScorePercentage
		e.FailedStages = a.FailedStages
	}
	if res.ThreatIndicators.OK() {
		for _, m := range res.ThreatIndicators.Value {
			if len(m.Samples) > 0 {
				e.Evidence = append(e.Evidence, m.Samples[0])
			}
		}
	}
	if e.Error == "" && len(res.Failures) > 0 {
		f := res.Failures[0]
		e.Error = fmt.Sprintf("%s: %s", f.Stage, f.Message)
	}
	return e
}

type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

// New opens the audit log for appending, rotating it first if it has grown
// past the size limit.
func New(path string) (*AuditLogger, error) {
	if info, err := os.Stat(path); err == nil && info.Size() >= defaultMaxLogBytes {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, fmt.Errorf("rotate audit log: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &AuditLogger{file: file}, nil
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Samples and file names come from untrusted scripts.
	event.Filename = redact.Redact(event.Filename)
	event.Evidence = redact.RedactAll(event.Evidence)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
