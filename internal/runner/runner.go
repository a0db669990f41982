// Package runner executes a suite of scenarios against the target
// application and handles everything that happens with the results.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/chatcheck/internal/artifact"
	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/fixture"
	"github.com/ibeckermayer/chatcheck/internal/notifier"
	"github.com/ibeckermayer/chatcheck/internal/report"
	"github.com/ibeckermayer/chatcheck/internal/scenario"
	"github.com/ibeckermayer/chatcheck/internal/store"
	"github.com/ibeckermayer/chatcheck/internal/types"
)

// ReportFile is the name of the HTML report inside a run directory
const ReportFile = "report.html"

// sessionMaxAge is how long a captured fixture login is reused
const sessionMaxAge = 24 * time.Hour

// Browser is a running browser that scenarios open sessions in
type Browser interface {
	scenario.SessionOpener
	Close()
}

// Launcher starts the browser for one run
type Launcher interface {
	Launch(ctx context.Context, cfg config.BrowserConfig) (Browser, error)
}

// ChromeLauncher launches Chrome through chromedp
type ChromeLauncher struct {
	Log logrus.FieldLogger
}

// Launch implements Launcher
func (l ChromeLauncher) Launch(ctx context.Context, cfg config.BrowserConfig) (Browser, error) {
	b, err := browser.Launch(ctx, cfg, l.Log)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Result is a finished run and where its files went
type Result struct {
	Run *types.RunResult
	// Dir is the run's artifact directory
	Dir string
	// ReportPath is the HTML report, empty if it could not be written
	ReportPath string
	// Notified is set when a failure email went out
	Notified bool
}

// Runner holds the suite state.
type Runner struct {
	mu sync.RWMutex

	// Immutable after creation.
	fs       afero.Fs
	store    *store.Store
	launcher Launcher
	sender   notifier.Sender
	resolve  func([]string) ([]scenario.Scenario, error)
	builder  *report.Builder
	log      logrus.FieldLogger

	// Mutable fields - use getSnapshot() for concurrent access.
	config   *config.Config
	fixtures *fixture.Fixtures
	notifier *notifier.Notifier
}

// snapshot holds fields that may be replaced by ReloadConfig.
type snapshot struct {
	config   *config.Config
	fixtures *fixture.Fixtures
	notifier *notifier.Notifier
}

func (r *Runner) getSnapshot() snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot{
		config:   r.config,
		fixtures: r.fixtures,
		notifier: r.notifier,
	}
}

// Option customizes a Runner
type Option func(*Runner)

// WithFs writes artifacts to fs instead of the OS filesystem
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithLauncher replaces the Chrome launcher
func WithLauncher(l Launcher) Option {
	return func(r *Runner) { r.launcher = l }
}

// WithSender sends failure notifications through s regardless of the
// configured provider
func WithSender(s notifier.Sender) Option {
	return func(r *Runner) { r.sender = s }
}

// New creates a runner. st may be nil, in which case runs are not recorded.
func New(cfg *config.Config, st *store.Store, log logrus.FieldLogger, opts ...Option) (*Runner, error) {
	builder, err := report.New()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		fs:      afero.NewOsFs(),
		store:   st,
		resolve: scenario.Resolve,
		builder: builder,
		log:     log.WithField("component", "runner"),
	}
	r.launcher = ChromeLauncher{Log: r.log}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.apply(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Config returns the configuration currently in use
func (r *Runner) Config() *config.Config {
	return r.getSnapshot().config
}

// ReloadConfig reloads the configuration from path and swaps it in. Runs
// already in progress keep the old configuration.
func (r *Runner) ReloadConfig(path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := r.apply(cfg); err != nil {
		return err
	}

	r.log.Info("Configuration reloaded")
	return nil
}

func (r *Runner) apply(cfg *config.Config) error {
	var n *notifier.Notifier
	if cfg.Email.Enabled {
		if r.sender != nil {
			n = notifier.New(r.sender)
		} else {
			var err error
			if n, err = notifier.NewFromConfig(cfg.Email); err != nil {
				return err
			}
		}
	}
	sessions := fixture.NewSessionStore(cfg.Fixtures.SessionFile, sessionMaxAge)

	r.mu.Lock()
	r.config = cfg
	r.fixtures = fixture.New(cfg, sessions, r.log)
	r.notifier = n
	r.mu.Unlock()
	return nil
}

// Run executes the named scenarios, or the configured selection when names
// is empty. Unknown names fail before the browser starts. A failing scenario
// does not stop the others; the returned error only reports problems
// running the suite or handling its results.
func (r *Runner) Run(ctx context.Context, names []string) (*Result, error) {
	s := r.getSnapshot()
	cfg := s.config

	if len(names) == 0 {
		names = cfg.Run.Scenarios
	}
	scenarios, err := r.resolve(names)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	w, err := artifact.NewWriter(r.fs, cfg.Run.ArtifactsDir, started)
	if err != nil {
		return nil, err
	}

	r.log.Infof("Running %d scenarios against %s", len(scenarios), cfg.Target.BaseURL)
	b, err := r.launcher.Launch(ctx, cfg.Browser)
	if err != nil {
		return nil, err
	}

	results := make([]types.ScenarioResult, len(scenarios))
	var g errgroup.Group
	g.SetLimit(max(cfg.Run.Parallel, 1))
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Scenario.Std())
			defer cancel()
			env := scenario.NewEnv(sc.Name(), cfg, b, w, s.fixtures, r.log)
			results[i] = scenario.Execute(sctx, sc, env)
			return nil
		})
	}
	_ = g.Wait()
	b.Close()

	run := &types.RunResult{
		ID:         uuid.NewString(),
		BaseURL:    cfg.Target.BaseURL,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Scenarios:  results,
	}
	counts := run.Counts()
	r.log.WithFields(logrus.Fields{
		"run":     run.ID,
		"passed":  counts[types.StatusPassed],
		"failed":  counts[types.StatusFailed],
		"errored": counts[types.StatusErrored],
	}).Info("Run finished")

	res := &Result{Run: run, Dir: w.Dir()}
	return res, r.finish(s, w, res)
}

// finish records and publishes a finished run. Every step is attempted even
// when an earlier one fails.
func (r *Runner) finish(s snapshot, w *artifact.Writer, res *Result) error {
	cfg := s.config
	run := res.Run
	var errs []error

	rep, err := r.builder.Build(run, w.Dir())
	if err != nil {
		errs = append(errs, fmt.Errorf("build report: %w", err))
	} else if a, err := w.Report(ReportFile, []byte(rep.HTMLBody)); err != nil {
		errs = append(errs, err)
	} else {
		res.ReportPath = a.Path
	}

	var buf bytes.Buffer
	if err := report.WriteSummary(&buf, run, cfg.Run.ReportFormat); err != nil {
		errs = append(errs, fmt.Errorf("write summary: %w", err))
	} else if _, err := w.Report(report.SummaryFile(cfg.Run.ReportFormat), buf.Bytes()); err != nil {
		errs = append(errs, err)
	}

	if r.store != nil {
		if err := r.store.SaveRun(run); err != nil {
			errs = append(errs, fmt.Errorf("save run: %w", err))
		}
		if n, err := r.Prune(cfg.Store.RetentionDays); err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			r.log.Infof("Pruned %d old runs", n)
		}
	}

	if s.notifier != nil && rep != nil {
		sent, err := s.notifier.NotifyFailure(rep, cfg.Email.ToAddr)
		if err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
		res.Notified = sent
	}

	return errors.Join(errs...)
}

// Prune drops runs older than days from the history. days <= 0 keeps
// everything.
func (r *Runner) Prune(days int) (int64, error) {
	if r.store == nil || days <= 0 {
		return 0, nil
	}
	n, err := r.store.Prune(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}
