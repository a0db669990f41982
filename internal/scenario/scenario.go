// Package scenario holds the verification flows. Each flow is an independent
// script that opens its own browser sessions, drives the chat UI and records
// checks and screenshots.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

// ErrUnknown is returned for a scenario name that is not registered
var ErrUnknown = errors.New("unknown scenario")

// Scenario is one verification flow
type Scenario interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Env) error
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	if _, dup := registry[s.Name()]; dup {
		panic("scenario registered twice: " + s.Name())
	}
	registry[s.Name()] = s
}

func init() {
	register(chatFlow{})
	register(checkmarksFlow{})
	register(featuresFlow{})
	register(frontendFlow{})
	register(mobileFlow{})
	register(responsiveFlow{})
}

// All returns every registered scenario sorted by name
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the registered scenario names, sorted
func Names() []string {
	var names []string
	for _, s := range All() {
		names = append(names, s.Name())
	}
	return names
}

// Lookup finds a scenario by name
func Lookup(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknown, name, Names())
	}
	return s, nil
}

// Resolve looks up every name, failing on the first unknown one. An empty
// list selects all scenarios.
func Resolve(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return All(), nil
	}
	seen := make(map[string]bool)
	var out []Scenario
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		s, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Execute runs s in env and converts the outcome into a result. A scenario
// error is recorded, not returned: on error a diagnostic screenshot is taken
// from every session the scenario opened, and all sessions are closed.
func Execute(ctx context.Context, s Scenario, env *Env) types.ScenarioResult {
	started := time.Now()
	log := env.Log
	log.Info("Starting")

	err := runSafely(ctx, s, env)
	if err != nil {
		log.Errorf("Scenario error: %v", err)
		env.captureErrors()
	}
	env.Close()

	res := types.ScenarioResult{
		Scenario:  s.Name(),
		Checks:    env.Checks(),
		Artifacts: env.Artifacts(),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	res.Status = types.DeriveStatus(err, res.Checks)
	if err != nil {
		res.Error = err.Error()
	}
	log.WithField("status", res.Status).Infof("Finished in %s", res.Duration.Round(time.Millisecond))
	return res
}

func runSafely(ctx context.Context, s Scenario, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario panicked: %v", r)
		}
	}()
	return s.Run(ctx, env)
}
