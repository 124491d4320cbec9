// Package risk fuses the threat score and the behavior count into a single
// percentage, a category and a recommendation.
package risk

import (
	"fmt"
	"math"
	"strings"
)

// Category is the coarse classification of a script.
type Category string

const (
	Safe          Category = "Safe"
	Suspicious    Category = "Suspicious"
	Malicious     Category = "Malicious"
	Indeterminate Category = "Indeterminate"
)

// Severity accompanies the category.
type Severity string

const (
	Low      Severity = "low"
	Warning  Severity = "warning"
	Critical Severity = "critical"
	Unknown  Severity = "unknown"
)

// Fusion weights and category thresholds.
const (
	ThreatWeight   = 0.6
	BehaviorWeight = 0.4

	MaliciousThreshold  = 60.0
	SuspiciousThreshold = 35.0

	// DefaultBehaviorsChecked is assumed when the behavior report does not
	// say how many predicates it evaluated.
	DefaultBehaviorsChecked = 12
)

// rank orders categories for threshold comparisons.
var rank = map[Category]int{
	Safe:          0,
	Suspicious:    1,
	Malicious:     2,
	Indeterminate: 3,
}

// AtLeast reports whether c is as severe as other. Indeterminate is
// treated as worse than Malicious.
func (c Category) AtLeast(other Category) bool {
	return rank[c] >= rank[other]
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	for c := range rank {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Signals are the inputs to fusion.
type Signals struct {
	ThreatScore      int
	IndicatorsFound  int
	BehaviorCount    int
	BehaviorsChecked int

	// FailedStages names the analysis stages whose output was unavailable.
	// Any failure of an input stage makes the assessment indeterminate.
	FailedStages []string
}

// Assessment is the risk_assessment section.
type Assessment struct {
	RiskScorePercentage   float64  `json:"risk_score_percentage"`
	Category              Category `json:"category"`
	Severity              Severity `json:"severity"`
	ThreatScore           int      `json:"threat_score"`
	ThreatIndicatorsFound int      `json:"threat_indicators_found"`
	BehavioralScore       float64  `json:"behavioral_score"`
	Recommendation        string   `json:"recommendation"`
	FailedStages          []string `json:"failed_stages,omitempty"`
}

// Fuse computes the assessment. It is a pure function of s.
func Fuse(s Signals) Assessment {
	if len(s.FailedStages) > 0 {
		return indeterminate(s.FailedStages)
	}

	// The raw score is reported as-is; only its share of the fusion is capped.
	threatPct := math.Min(float64(max(s.ThreatScore, 0)), 100)

	total := s.BehaviorsChecked
	if total <= 0 {
		total = DefaultBehaviorsChecked
	}
	behaviorPct := float64(min(max(s.BehaviorCount, 0), total)) / float64(total) * 100

	final := threatPct*ThreatWeight + behaviorPct*BehaviorWeight
	category, severity := Classify(final)

	return Assessment{
		RiskScorePercentage:   round2(final),
		Category:              category,
		Severity:              severity,
		ThreatScore:           s.ThreatScore,
		ThreatIndicatorsFound: s.IndicatorsFound,
		BehavioralScore:       round2(behaviorPct),
		Recommendation:        Recommendation(category, final),
	}
}

// Classify maps a fused score to its category and severity.
func Classify(score float64) (Category, Severity) {
	switch {
	case score >= MaliciousThreshold:
		return Malicious, Critical
	case score >= SuspiciousThreshold:
		return Suspicious, Warning
	default:
		return Safe, Low
	}
}

// Recommendation returns the human guidance for category at score.
func Recommendation(category Category, score float64) string {
	switch category {
	case Malicious:
		return fmt.Sprintf("CRITICAL: This file exhibits highly malicious behavior (Score: %.1f%%). "+
			"Do NOT execute. Isolate immediately and conduct deep forensic analysis. "+
			"Likely malware/botnet dropper.", score)
	case Suspicious:
		return fmt.Sprintf("WARNING: This file shows suspicious patterns (Score: %.1f%%). "+
			"Review manually before execution. Consider sandbox analysis.", score)
	case Indeterminate:
		return "UNKNOWN: Analysis was incomplete, so no risk score could be computed. " +
			"Treat this file as untrusted and do not execute it until it has been analyzed successfully."
	default:
		return fmt.Sprintf("This file appears relatively safe (Score: %.1f%%). "+
			"However, always exercise caution with unknown scripts.", score)
	}
}

func indeterminate(failed []string) Assessment {
	stages := append([]string(nil), failed...)
	return Assessment{
		Category:       Indeterminate,
		Severity:       Unknown,
		Recommendation: Recommendation(Indeterminate, 0),
		FailedStages:   stages,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
