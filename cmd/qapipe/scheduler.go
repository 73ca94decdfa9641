package main

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"qapipe/internal/config"
	"qapipe/internal/notify"
	"qapipe/internal/pipeline"
	"qapipe/internal/schedule"
	"qapipe/pkg/logx"
)

// swappableRunner routes scheduled operations to the current orchestrator.
// The daemon swaps in a fresh orchestrator when the config file changes; the
// read lock is held for a whole run, so swap waits for runs in flight and the
// replaced store is only closed once nothing uses it.
type swappableRunner struct {
	mu       sync.RWMutex
	orch     *pipeline.Orchestrator
	cleanup  func()
	notifier *notify.Notifier
}

// swap installs a new orchestrator and releases the previous one's resources.
func (r *swappableRunner) swap(orch *pipeline.Orchestrator, cleanup func()) {
	r.mu.Lock()
	old := r.cleanup
	r.orch = orch
	r.cleanup = cleanup
	r.mu.Unlock()

	if old != nil {
		old()
	}
}

func (r *swappableRunner) close() {
	r.swap(nil, nil)
}

func (r *swappableRunner) RunTraining(ctx context.Context) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ok := r.orch.RunTraining(ctx)
	if !ok {
		r.notifier.RunFailed(ctx, string(schedule.OpTraining), nil)
	}
	return ok
}

func (r *swappableRunner) RunFullPipeline(ctx context.Context) pipeline.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := r.orch.RunFullPipeline(ctx)
	if !report.Success {
		r.notifier.RunFailed(ctx, string(schedule.OpFullPipeline), &report)
	}
	return report
}

func (r *swappableRunner) RunMonitoring(ctx context.Context) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ok := r.orch.RunMonitoring(ctx)
	if !ok {
		r.notifier.RunFailed(ctx, string(schedule.OpMonitoring), nil)
	}
	return ok
}

func cmdStartScheduler(ctx context.Context, mgr *config.Manager, logSvc *logx.Service, log logx.Logger) error {
	cfg := mgr.Get()

	orch, cleanup, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	notifier, err := notify.New(cfg.Alerts, log.With(logx.String("component", "notify")))
	if err != nil {
		cleanup()
		return err
	}

	runner := &swappableRunner{orch: orch, cleanup: cleanup, notifier: notifier}
	defer runner.close()

	sched := schedule.New(schedule.Config{
		PollInterval: cfg.PollInterval(),
		Timezone:     cfg.Scheduler.Timezone,
	}, runner, log.With(logx.String("component", "scheduler")))

	// Daily training at 02:00, weekly full pipeline Sunday 01:00, hourly
	// health monitoring.
	if err := sched.ScheduleDaily(2, 0); err != nil {
		return err
	}
	if err := sched.ScheduleWeekly(time.Sunday, 1, 0); err != nil {
		return err
	}
	if err := sched.ScheduleHourly(); err != nil {
		return err
	}

	sched.Start()
	for _, job := range sched.Jobs() {
		log.Info("job scheduled",
			logx.String("operation", string(job.Operation)),
			logx.Time("next_run", job.NextRun))
	}

	// Rebuild the orchestrator between runs when the config file changes.
	// Watch exits when ctx is canceled. Reloads are delivered one at a
	// time, so prev needs no locking.
	prev := cfg
	go mgr.Watch(ctx, func(next *config.Config) {
		logSvc.Apply(loggingConfig(next))

		for _, change := range config.StageChanges(prev, next) {
			log.Info("stage toggled by config reload", logx.String("stage", change))
		}
		prev = next

		fresh, freshCleanup, err := buildOrchestrator(next, log)
		if err != nil {
			log.Error("config reload: rebuilding pipeline failed, keeping previous", logx.Err(err))
			return
		}
		runner.swap(fresh, freshCleanup)
	})

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		log.Debug("sd_notify: ready")
	}

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	sched.Stop()
	return nil
}
