// Package behavior evaluates a fixed set of boolean behavior predicates
// over script text and reports simple line-repetition metrics.
package behavior

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

// ArchThreshold is the number of architecture-token occurrences a script
// must exceed to count as multi-architecture targeting.
const ArchThreshold = 3

// RepetitionFactor is how many times larger than the unique line count the
// total line count must be before a script counts as repetitive.
const RepetitionFactor = 1.5

// Flag is one evaluated predicate.
type Flag struct {
	Name string
	Set  bool
}

// Flags is the ordered predicate list. It serializes as a JSON object that
// keeps predicate order.
type Flags []Flag

// Get reports the value of the named predicate.
func (f Flags) Get(name string) (set, ok bool) {
	for _, fl := range f {
		if fl.Name == name {
			return fl.Set, true
		}
	}
	return false, false
}

// Count is the number of predicates that evaluated true.
func (f Flags) Count() int {
	n := 0
	for _, fl := range f {
		if fl.Set {
			n++
		}
	}
	return n
}

func (f Flags) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fl := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fl.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		if fl.Set {
			buf.WriteString(":true")
		} else {
			buf.WriteString(":false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Metrics describes line repetition in the script.
type Metrics struct {
	TotalLines      int     `json:"total_lines"`
	UniqueLines     int     `json:"unique_lines"`
	RepetitionRatio float64 `json:"repetition_ratio"`
}

// Report is the behavioral_analysis section.
type Report struct {
	Behaviors             Flags   `json:"behaviors"`
	RiskBehaviorCount     int     `json:"risk_behavior_count"`
	TotalBehaviorsChecked int     `json:"total_behaviors_checked"`
	CodeMetrics           Metrics `json:"code_metrics"`
}

type predicate struct {
	name string
	eval func(text string, m Metrics) bool
}

func matches(expr string) func(string, Metrics) bool {
	re := regexp.MustCompile(expr)
	return func(text string, _ Metrics) bool { return re.MatchString(text) }
}

var archToken = regexp.MustCompile(`(?i)(x86_64|mips|arm|i[3-6]86)`)

// Case sensitivity differs per predicate and is part of the contract.
var predicates = []predicate{
	{"has_network_activity", matches(`(?i)curl|wget|nc|telnet`)},
	{"modifies_system_files", matches(`/etc/|/usr/|/var/`)},
	{"uses_encoding", matches(`(?i)base64|xxd|openssl enc`)},
	{"creates_persistence", matches(`(?i)crontab|systemctl|\.bashrc|\.profile`)},
	{"escalates_privileges", matches(`(?i)sudo|su\s|chmod.*777`)},
	{"hides_processes", matches(`nohup|disown|&\s*$`)},
	{"downloads_files", matches(`(?i)curl.*-[Oo]|wget.*-O`)},
	{"executes_remote_code", matches(`(?i)(curl|wget).*\|.*(bash|sh)`)},
	{"immediate_execution", matches(`chmod.*\d{3}.*\./`)},
	{"multi_architecture_targeting", func(text string, _ Metrics) bool {
		return len(archToken.FindAllStringIndex(text, -1)) > ArchThreshold
	}},
	{"covers_tracks", matches(`(?i)rm.*-rf.*\.\*|history.*-c`)},
	{"has_repetitive_patterns", func(_ string, m Metrics) bool {
		return float64(m.TotalLines) > float64(m.UniqueLines)*RepetitionFactor
	}},
}

// Names returns the predicate names in evaluation order.
func Names() []string {
	out := make([]string, len(predicates))
	for i, p := range predicates {
		out[i] = p.name
	}
	return out
}

// Analyze evaluates every predicate against text.
func Analyze(text string) Report {
	m := lineMetrics(text)

	flags := make(Flags, len(predicates))
	for i, p := range predicates {
		flags[i] = Flag{Name: p.name, Set: p.eval(text, m)}
	}

	return Report{
		Behaviors:             flags,
		RiskBehaviorCount:     flags.Count(),
		TotalBehaviorsChecked: len(flags),
		CodeMetrics:           m,
	}
}

func lineMetrics(text string) Metrics {
	lines := strings.Split(text, "\n")
	unique := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		unique[l] = struct{}{}
	}
	ratio := float64(len(lines)) / float64(max(len(unique), 1))
	return Metrics{
		TotalLines:      len(lines),
		UniqueLines:     len(unique),
		RepetitionRatio: math.Round(ratio*100) / 100,
	}
}
