package risk

import (
	"strings"
	"testing"
)

func TestFuse_DownloadChmodRun(t *testing.T) {
	a := Fuse(Signals{ThreatScore: 22, IndicatorsFound: 3, BehaviorCount: 4, BehaviorsChecked: 12})

	if a.RiskScorePercentage != 26.53 {
		t.Errorf("risk = %v, want 26.53", a.RiskScorePercentage)
	}
	if a.ThreatScore != 22 || a.BehavioralScore != 33.33 {
		t.Errorf("threat/behavior = %v/%v, want 22/33.33", a.ThreatScore, a.BehavioralScore)
	}
	if a.Category != Safe || a.Severity != Low {
		t.Errorf("got %s/%s, want Safe/low", a.Category, a.Severity)
	}
	if a.ThreatIndicatorsFound != 3 {
		t.Errorf("indicators = %d, want 3", a.ThreatIndicatorsFound)
	}
	if !strings.Contains(a.Recommendation, "(Score: 26.5%)") {
		t.Errorf("recommendation should carry the one-decimal score: %q", a.Recommendation)
	}
}

func TestFuse_Categories(t *testing.T) {
	tests := []struct {
		name     string
		signals  Signals
		category Category
		severity Severity
		prefix   string
	}{
		{"clean", Signals{}, Safe, Low, "This file appears relatively safe (Score: 0.0%)"},
		{"suspicious", Signals{ThreatScore: 50, BehaviorCount: 2, BehaviorsChecked: 12}, Suspicious, Warning, "WARNING: "},
		{"malicious at threshold", Signals{ThreatScore: 100, BehaviorsChecked: 12}, Malicious, Critical, "CRITICAL: "},
		{"malicious max", Signals{ThreatScore: 250, BehaviorCount: 12, BehaviorsChecked: 12}, Malicious, Critical, "CRITICAL: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Fuse(tt.signals)
			if a.Category != tt.category || a.Severity != tt.severity {
				t.Errorf("got %s/%s, want %s/%s", a.Category, a.Severity, tt.category, tt.severity)
			}
			if !strings.HasPrefix(a.Recommendation, tt.prefix) {
				t.Errorf("recommendation %q, want prefix %q", a.Recommendation, tt.prefix)
			}
		})
	}
}

func TestFuse_ThreatClampedAt100(t *testing.T) {
	a := Fuse(Signals{ThreatScore: 999, BehaviorCount: 12, BehaviorsChecked: 12})
	if a.RiskScorePercentage != 100 {
		t.Errorf("expected fused score clamped to 100, got %v", a.RiskScorePercentage)
	}
	if a.ThreatScore != 999 {
		t.Errorf("threat_score must be the raw detector score, got %d", a.ThreatScore)
	}
}

func TestFuse_DefaultBehaviorsChecked(t *testing.T) {
	a := Fuse(Signals{BehaviorCount: 6})
	if a.BehavioralScore != 50 {
		t.Errorf("expected 6 of 12 = 50, got %v", a.BehavioralScore)
	}
}

func TestFuse_ScoreRange(t *testing.T) {
	for threat := 0; threat <= 200; threat += 7 {
		for count := 0; count <= 12; count++ {
			a := Fuse(Signals{ThreatScore: threat, BehaviorCount: count, BehaviorsChecked: 12})
			if a.RiskScorePercentage < 0 || a.RiskScorePercentage > 100 {
				t.Fatalf("threat=%d count=%d: risk %v out of range", threat, count, a.RiskScorePercentage)
			}
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	prev := Safe
	for s := 0.0; s <= 100; s += 0.25 {
		c, _ := Classify(s)
		if !c.AtLeast(prev) {
			t.Fatalf("category decreased from %s to %s at %v", prev, c, s)
		}
		prev = c
	}

	if c, _ := Classify(34.99); c != Safe {
		t.Errorf("34.99 = %s, want Safe", c)
	}
	if c, _ := Classify(35); c != Suspicious {
		t.Errorf("35 = %s, want Suspicious", c)
	}
	if c, _ := Classify(59.99); c != Suspicious {
		t.Errorf("59.99 = %s, want Suspicious", c)
	}
	if c, _ := Classify(60); c != Malicious {
		t.Errorf("60 = %s, want Malicious", c)
	}
}

func TestFuse_Indeterminate(t *testing.T) {
	failed := []string{"threats"}
	a := Fuse(Signals{ThreatScore: 80, BehaviorCount: 10, BehaviorsChecked: 12, FailedStages: failed})

	if a.Category != Indeterminate || a.Severity != Unknown {
		t.Errorf("got %s/%s, want Indeterminate/unknown", a.Category, a.Severity)
	}
	if a.RiskScorePercentage != 0 || a.ThreatScore != 0 || a.BehavioralScore != 0 {
		t.Errorf("indeterminate assessment must carry zero scores: %+v", a)
	}
	if len(a.FailedStages) != 1 || a.FailedStages[0] != "threats" {
		t.Errorf("failed stages = %v", a.FailedStages)
	}
	if !strings.Contains(a.Recommendation, "untrusted") {
		t.Errorf("recommendation should warn: %q", a.Recommendation)
	}

	failed[0] = "mutated"
	if a.FailedStages[0] != "threats" {
		t.Error("assessment must not alias the caller's slice")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("malicious")
	if err != nil || c != Malicious {
		t.Errorf("got %q, %v", c, err)
	}
	if _, err := ParseCategory("evil"); err == nil {
		t.Error("expected error for unknown category")
	}
	if !Indeterminate.AtLeast(Malicious) || Safe.AtLeast(Suspicious) {
		t.Error("unexpected category ordering")
	}
}
