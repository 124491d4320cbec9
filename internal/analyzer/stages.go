package analyzer

import (
	"context"
	"strings"

	"github.com/gzhole/scriptshield/internal/behavior"
	"github.com/gzhole/scriptshield/internal/commands"
	"github.com/gzhole/scriptshield/internal/extract"
	"github.com/gzhole/scriptshield/internal/fileinfo"
	"github.com/gzhole/scriptshield/internal/threat"
)

// Stage names.
const (
	StageMetadata = "metadata"
	StageHashes   = "hashes"
	StageStrings  = "strings"
	StageCommands = "commands"
	StageThreats  = "threats"
	StageBehavior = "behavior"
)

// riskInputs are the stages whose failure leaves the risk assessment
// indeterminate.
var riskInputs = map[string]bool{
	StageStrings:  true,
	StageThreats:  true,
	StageBehavior: true,
}

type metadataStage struct{}

func (metadataStage) Name() string { return StageMetadata }

func (metadataStage) Run(_ context.Context, ac *AnalysisContext) error {
	in := ac.Input
	var md fileinfo.Metadata
	if in.Path != "" {
		var err error
		if md, err = fileinfo.Stat(in.Path, in.Raw); err != nil {
			return err
		}
	} else {
		md = fileinfo.FromBytes(in.FileName, in.Raw)
	}
	if fileinfo.IsShell(md.FileType) || strings.HasPrefix(md.FileType, "Unknown") {
		md.ShellSyntax = fileinfo.ParseShell(in.Text())
	}
	ac.Result.Metadata = Ok(md)
	return nil
}

func (metadataStage) Fail(ac *AnalysisContext, msg string) {
	ac.Result.Metadata = Failed[fileinfo.Metadata](msg)
}

type hashesStage struct{}

func (hashesStage) Name() string { return StageHashes }

func (hashesStage) Run(_ context.Context, ac *AnalysisContext) error {
	ac.Result.Hashes = Ok(fileinfo.Hash(ac.Input.Raw))
	return nil
}

func (hashesStage) Fail(ac *AnalysisContext, msg string) {
	ac.Result.Hashes = Failed[fileinfo.Hashes](msg)
}

type stringsStage struct{}

func (stringsStage) Name() string { return StageStrings }

func (stringsStage) Run(_ context.Context, ac *AnalysisContext) error {
	ac.Result.StringsAnalysis = Ok(extract.Analyze(ac.Input.Raw))
	return nil
}

func (stringsStage) Fail(ac *AnalysisContext, msg string) {
	ac.Result.StringsAnalysis = Failed[extract.Report](msg)
}

type commandsStage struct{}

func (commandsStage) Name() string { return StageCommands }

func (commandsStage) Run(_ context.Context, ac *AnalysisContext) error {
	ac.Result.CommandsDetected = Ok(commands.Detect(ac.Input.Text()))
	return nil
}

func (commandsStage) Fail(ac *AnalysisContext, msg string) {
	ac.Result.CommandsDetected = Failed[commands.Detected](msg)
}

type threatsStage struct {
	detector *threat.Detector
}

func (threatsStage) Name() string { return StageThreats }

func (s threatsStage) Run(ctx context.Context, ac *AnalysisContext) error {
	report, err := s.detector.Detect(ctx, ac.Input.Text())
	if err != nil {
		return err
	}
	ac.Threats = report
	ac.Result.ThreatIndicators = &ThreatSection{Section: Section[[]threat.Match]{Value: report.Matches}}
	ac.Result.ThreatScore = report.Score
	return nil
}

func (threatsStage) Fail(ac *AnalysisContext, msg string) {
	ac.Threats = threat.Report{}
	ac.Result.ThreatIndicators = &ThreatSection{Section: Section[[]threat.Match]{Err: msg}}
	ac.Result.ThreatScore = 0
}

type behaviorStage struct{}

func (behaviorStage) Name() string { return StageBehavior }

func (behaviorStage) Run(_ context.Context, ac *AnalysisContext) error {
	ac.Behavior = behavior.Analyze(ac.Input.Text())
	ac.Result.BehavioralAnalysis = Ok(ac.Behavior)
	return nil
}

func (behaviorStage) Fail(ac *AnalysisContext, msg string) {
	ac.Behavior = behavior.Report{}
	ac.Result.BehavioralAnalysis = Failed[behavior.Report](msg)
}
