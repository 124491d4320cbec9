package analyzer

import (
	"context"
	"fmt"

	"github.com/gzhole/scriptshield/internal/threat"
)

// Registry is an ordered collection of stages. It runs them in sequence,
// threading the AnalysisContext through each one. A stage that errors or
// panics records the failure in its own section and the run continues.
type Registry struct {
	stages []Stage
}

// NewRegistry creates a registry. Stages run in the order provided.
func NewRegistry(stages ...Stage) *Registry {
	return &Registry{stages: stages}
}

// DefaultStages returns the built-in pipeline over detector.
func DefaultStages(detector *threat.Detector) []Stage {
	return []Stage{
		metadataStage{},
		hashesStage{},
		stringsStage{},
		commandsStage{},
		threatsStage{detector: detector},
		behaviorStage{},
	}
}

// RunAll executes every stage. It returns the stages that failed, or the
// context error if ctx was done before the run completed.
func (r *Registry) RunAll(ctx context.Context, ac *AnalysisContext) ([]Failure, error) {
	var failures []Failure

	for _, s := range r.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := runStage(ctx, s, ac)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.Fail(ac, err.Error())
		failures = append(failures, Failure{Stage: s.Name(), Message: err.Error()})
	}

	return failures, nil
}

// Stages returns the registered stages in run order.
func (r *Registry) Stages() []Stage {
	return r.stages
}

func runStage(ctx context.Context, s Stage, ac *AnalysisContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s stage panicked: %v", s.Name(), rec)
		}
	}()
	return s.Run(ctx, ac)
}
