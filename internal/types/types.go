package types

import "time"

// Status is the outcome of a single scenario
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
)

// ArtifactKind classifies files produced during a run
type ArtifactKind string

const (
	KindScreenshot ArtifactKind = "screenshot"
	KindReport     ArtifactKind = "report"
)

// Check is a named boolean assertion made against the rendered page
type Check struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Artifact is a file written while a scenario ran
type Artifact struct {
	Name string       `json:"name" yaml:"name"`
	Path string       `json:"path" yaml:"path"`
	Kind ArtifactKind `json:"kind" yaml:"kind"`
}

// ScenarioResult is the recorded outcome of one scenario
type ScenarioResult struct {
	Scenario  string        `json:"scenario" yaml:"scenario"`
	Status    Status        `json:"status" yaml:"status"`
	Checks    []Check       `json:"checks" yaml:"checks"`
	Artifacts []Artifact    `json:"artifacts" yaml:"artifacts"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// DeriveStatus computes the status from the scenario error and its checks.
// An error wins over failed checks.
func DeriveStatus(err error, checks []Check) Status {
	if err != nil {
		return StatusErrored
	}
	for _, c := range checks {
		if !c.Passed {
			return StatusFailed
		}
	}
	return StatusPassed
}

// FailedChecks returns the checks that did not pass
func (r ScenarioResult) FailedChecks() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// RunResult groups every scenario executed in one invocation
type RunResult struct {
	ID         string           `json:"id" yaml:"id"`
	BaseURL    string           `json:"base_url" yaml:"base_url"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Scenarios  []ScenarioResult `json:"scenarios" yaml:"scenarios"`
}

// Passed reports whether every scenario passed. An empty run counts as passed.
func (r RunResult) Passed() bool {
	for _, s := range r.Scenarios {
		if s.Status != StatusPassed {
			return false
		}
	}
	return true
}

// Counts returns the number of scenarios per status
func (r RunResult) Counts() map[Status]int {
	counts := map[Status]int{StatusPassed: 0, StatusFailed: 0, StatusErrored: 0}
	for _, s := range r.Scenarios {
		counts[s.Status]++
	}
	return counts
}
