package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	ok := Check{Name: "ok", Passed: true}
	bad := Check{Name: "bad", Passed: false}

	assert.Equal(t, StatusPassed, DeriveStatus(nil, nil))
	assert.Equal(t, StatusPassed, DeriveStatus(nil, []Check{ok, ok}))
	assert.Equal(t, StatusFailed, DeriveStatus(nil, []Check{ok, bad}))
	assert.Equal(t, StatusErrored, DeriveStatus(errors.New("boom"), []Check{bad}))
	assert.Equal(t, StatusErrored, DeriveStatus(errors.New("boom"), nil))
}

func TestRunResultPassed(t *testing.T) {
	run := RunResult{}
	assert.True(t, run.Passed())

	run.Scenarios = []ScenarioResult{{Scenario: "chat", Status: StatusPassed}}
	assert.True(t, run.Passed())

	run.Scenarios = append(run.Scenarios, ScenarioResult{Scenario: "mobile", Status: StatusFailed})
	assert.False(t, run.Passed())

	counts := run.Counts()
	assert.Equal(t, 1, counts[StatusPassed])
	assert.Equal(t, 1, counts[StatusFailed])
	assert.Equal(t, 0, counts[StatusErrored])
}

func TestFailedChecks(t *testing.T) {
	r := ScenarioResult{Checks: []Check{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Detail: "x=12"},
	}}
	failed := r.FailedChecks()
	if assert.Len(t, failed, 1) {
		assert.Equal(t, "b", failed[0].Name)
	}
}
