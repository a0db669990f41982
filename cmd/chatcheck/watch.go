package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/chatcheck/internal/report"
	"github.com/ibeckermayer/chatcheck/internal/runner"
	"github.com/ibeckermayer/chatcheck/internal/scheduler"
)

// suiteTimeout bounds one scheduled suite run
const suiteTimeout = 30 * time.Minute

// pruneAt is when the nightly history prune runs
const pruneAt = "03:00"

func getWatchCmd(c *rootCommand) *cobra.Command {
	var (
		schedule string
		now      bool
	)
	cmd := &cobra.Command{
		Use:   "watch [scenario...]",
		Short: "Run the suite on a cron schedule",
		Long: `Run the suite on a cron schedule until interrupted.

  The schedule comes from schedule.cron unless --schedule is given. Old runs
  are pruned from the history every night. Send SIGHUP to reload the config
  file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("schedule") {
				cfg.Schedule.Cron = schedule
			} else {
				schedule = ""
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := runner.New(cfg, st, c.logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sched, err := scheduler.New(ctx, cfg.Schedule.Timezone, suiteTimeout, c.logger)
			if err != nil {
				return err
			}

			w := &watcher{
				runner:     r,
				sched:      sched,
				names:      args,
				schedule:   schedule,
				configPath: c.configPath,
				out:        c.stdout,
				log:        c.logger,
			}
			if err := w.addJobs(); err != nil {
				return err
			}
			if now {
				if err := sched.RunNow(scheduler.SuiteJob, w.suite); err != nil {
					c.logger.Errorf("Initial run failed: %v", err)
				}
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			return w.loop(ctx, hup)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression overriding schedule.cron")
	cmd.Flags().BoolVar(&now, "now", false, "run the suite once before waiting for the schedule")
	return cmd
}

// watcher ties the suite and housekeeping jobs to a scheduler
type watcher struct {
	runner *runner.Runner
	sched  *scheduler.Scheduler
	names  []string
	// schedule overrides schedule.cron when set, across reloads too
	schedule   string
	configPath string
	out        io.Writer
	log        logrus.FieldLogger
}

func (w *watcher) cronSpec() string {
	if w.schedule != "" {
		return w.schedule
	}
	return w.runner.Config().Schedule.Cron
}

func (w *watcher) addJobs() error {
	if err := w.sched.AddSuiteJob(w.cronSpec(), w.suite); err != nil {
		return err
	}
	return w.sched.AddDailyJob(scheduler.PruneJob, pruneAt, w.prune)
}

func (w *watcher) suite(ctx context.Context) error {
	res, err := w.runner.Run(ctx, w.names)
	if res != nil {
		report.PrintConsole(w.out, res.Run)
	}
	return err
}

func (w *watcher) prune(context.Context) error {
	n, err := w.runner.Prune(w.runner.Config().Store.RetentionDays)
	if err == nil && n > 0 {
		w.log.Infof("Pruned %d old runs", n)
	}
	return err
}

// reload re-reads the config file and reschedules the suite
func (w *watcher) reload() error {
	if err := w.runner.ReloadConfig(w.configPath); err != nil {
		return err
	}
	return w.sched.AddSuiteJob(w.cronSpec(), w.suite)
}

// loop runs the scheduler until ctx ends. Running jobs share ctx, so they
// are cancelled with it rather than waited out.
func (w *watcher) loop(ctx context.Context, hup <-chan os.Signal) error {
	w.sched.Start()
	for _, job := range w.sched.ListJobs() {
		w.log.Infof("Next %s run at %s", job.Name, job.NextRun.Format(time.RFC3339))
	}

	for {
		select {
		case <-ctx.Done():
			<-w.sched.Stop().Done()
			return nil
		case <-hup:
			if err := w.reload(); err != nil {
				w.log.Errorf("Reload failed, keeping current schedule: %v", err)
			}
		}
	}
}
