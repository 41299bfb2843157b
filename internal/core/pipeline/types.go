// Package pipeline holds the value types of a deployment run: stage names,
// stage outcomes and the append-only run log. It contains no I/O.
package pipeline

import "time"

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one step of the deployment pipeline.
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageBuild     Stage = "build"
	StageMigrate   Stage = "migrate"
	StageLaunch    Stage = "launch"
	StageReadiness Stage = "readiness"
	StageHealth    Stage = "health"
	StageSeed      Stage = "seed"
	StageSummary   Stage = "summary"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StagePreflight,
	StageBuild,
	StageMigrate,
	StageLaunch,
	StageReadiness,
	StageHealth,
	StageSeed,
	StageSummary,
}

// =============================================================================
// Outcomes
// =============================================================================

// Status is the result of a single stage.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailure     Status = "failure"
	StatusSkipped     Status = "skipped"
	StatusSoftFailure Status = "soft_failure"
)

// Halts reports whether the status stops the pipeline.
func (s Status) Halts() bool {
	return s == StatusFailure
}

// StageOutcome records how a stage completed.
type StageOutcome struct {
	Stage    Stage
	Status   Status
	ExitCode int
	Message  string
	Err      error
	Duration time.Duration
}

// Success returns a successful outcome.
func Success(stage Stage) StageOutcome {
	return StageOutcome{Stage: stage, Status: StatusSuccess}
}

// Skipped returns a skipped outcome with the reason in Message.
func Skipped(stage Stage, reason string) StageOutcome {
	return StageOutcome{Stage: stage, Status: StatusSkipped, Message: reason}
}

// Failure returns a hard failure outcome. Exit code is always ExitFailure.
func Failure(stage Stage, err error) StageOutcome {
	return StageOutcome{Stage: stage, Status: StatusFailure, ExitCode: ExitFailure, Err: err}
}

// SoftFailure returns a failure that does not affect the run's exit code.
func SoftFailure(stage Stage, err error) StageOutcome {
	return StageOutcome{Stage: stage, Status: StatusSoftFailure, Err: err}
}

// =============================================================================
// Run
// =============================================================================

// Exit codes surfaced to the invoking shell.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Run is the ordered log of one invocation. It is never persisted.
type Run struct {
	ID          string
	Environment string
	StartedAt   time.Time
	Outcomes    []StageOutcome
}

// NewRun starts an empty run log.
func NewRun(id, environment string, startedAt time.Time) *Run {
	return &Run{
		ID:          id,
		Environment: environment,
		StartedAt:   startedAt,
	}
}

// Record appends an outcome and reports whether the pipeline may continue.
func (r *Run) Record(o StageOutcome) bool {
	r.Outcomes = append(r.Outcomes, o)
	return !o.Status.Halts()
}

// Status is StatusFailure if any recorded stage failed hard, else StatusSuccess.
func (r *Run) Status() Status {
	if r.Failed() != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// ExitCode maps the overall status to a process exit code.
func (r *Run) ExitCode() int {
	if f := r.Failed(); f != nil {
		return f.ExitCode
	}
	return ExitSuccess
}

// Failed returns the first hard failure, or nil.
func (r *Run) Failed() *StageOutcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Status.Halts() {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// Outcome returns the recorded outcome for a stage.
func (r *Run) Outcome(stage Stage) (StageOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// Ran reports whether a stage produced any outcome.
func (r *Run) Ran(stage Stage) bool {
	_, ok := r.Outcome(stage)
	return ok
}
