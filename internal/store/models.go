package store

import (
	"time"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

// RunSummary is one row of the run history listing
type RunSummary struct {
	ID         string
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time
	Passed     int
	Failed     int
	Errored    int
}

// Total is the number of scenarios in the run
func (r RunSummary) Total() int { return r.Passed + r.Failed + r.Errored }

// OK reports whether every scenario of the run passed
func (r RunSummary) OK() bool { return r.Failed == 0 && r.Errored == 0 }

// Failure is the most recent non-passing result of a scenario
type Failure struct {
	RunID      string
	FinishedAt time.Time
	Result     types.ScenarioResult
}
