package analyzer

import (
	"context"
	"testing"
)

type recordStage struct {
	name string
	log  *[]string
	err  error
}

func (s recordStage) Name() string { return s.name }

func (s recordStage) Run(context.Context, *AnalysisContext) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

func (s recordStage) Fail(_ *AnalysisContext, msg string) {
	*s.log = append(*s.log, s.name+" failed: "+msg)
}

func TestRegistry_RunAll_Order(t *testing.T) {
	var log []string
	r := NewRegistry(
		recordStage{name: "a", log: &log},
		recordStage{name: "b", log: &log},
		recordStage{name: "c", log: &log},
	)

	failures, err := r.RunAll(context.Background(), &AnalysisContext{Result: &Result{}})
	if err != nil || len(failures) != 0 {
		t.Fatalf("failures=%v err=%v", failures, err)
	}
	if got := len(log); got != 3 || log[0] != "a" || log[2] != "c" {
		t.Errorf("run order = %v", log)
	}
}

func TestRegistry_RunAll_PanicIsContained(t *testing.T) {
	var log []string
	r := NewRegistry(
		panicStage{recordStage{name: "boom", log: &log}},
		recordStage{name: "after", log: &log},
	)

	failures, err := r.RunAll(context.Background(), &AnalysisContext{Result: &Result{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failures) != 1 || failures[0].Stage != "boom" {
		t.Fatalf("failures = %+v", failures)
	}
	if failures[0].Message != "boom stage panicked: boom" {
		t.Errorf("message = %q", failures[0].Message)
	}
	want := []string{"boom failed: boom stage panicked: boom", "after"}
	if len(log) != 2 || log[0] != want[0] || log[1] != want[1] {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestRegistry_RunAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var log []string
	r := NewRegistry(
		cancelStage{recordStage{name: "first", log: &log}, cancel},
		recordStage{name: "second", log: &log},
	)

	if _, err := r.RunAll(ctx, &AnalysisContext{Result: &Result{}}); err == nil {
		t.Fatal("expected context error")
	}
	if len(log) != 1 {
		t.Errorf("stages after cancellation must not run: %v", log)
	}
}

type cancelStage struct {
	recordStage
	cancel context.CancelFunc
}

func (s cancelStage) Run(ctx context.Context, ac *AnalysisContext) error {
	err := s.recordStage.Run(ctx, ac)
	s.cancel()
	return err
}

func TestDefaultStages(t *testing.T) {
	names := []string{StageMetadata, StageHashes, StageStrings, StageCommands, StageThreats, StageBehavior}
	stages := NewEngine(nil).registry.Stages()
	if len(stages) != len(names) {
		t.Fatalf("got %d stages", len(stages))
	}
	for i, s := range stages {
		if s.Name() != names[i] {
			t.Errorf("stage %d = %s, want %s", i, s.Name(), names[i])
		}
	}
}
