package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "qapipe/pkg/logx"
)

const defaultPollInterval = 60 * time.Second

// Scheduler polls its entry registry on a fixed cadence and fires due
// operations. Start/Stop own the polling goroutine's lifecycle; Stop blocks
// until the goroutine has exited, after which no scheduled firing can occur.
type Scheduler struct {
	mu sync.Mutex

	log    logx.Logger
	runner Runner
	loc    *time.Location
	parser cron.Parser

	pollInterval time.Duration

	entries []*entry

	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func New(cfg Config, runner Runner, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		} else {
			loc = l
		}
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &Scheduler{
		log:          log,
		runner:       runner,
		loc:          loc,
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		pollInterval: poll,
	}
}

// ScheduleDaily binds a daily run_training firing at hour:minute.
func (s *Scheduler) ScheduleDaily(hour, minute int) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	desc := fmt.Sprintf("daily at %02d:%02d", hour, minute)
	if err := s.add(OpTraining, spec, desc); err != nil {
		return err
	}
	s.log.Info("scheduled daily training", logx.String("at", fmt.Sprintf("%02d:%02d", hour, minute)))
	return nil
}

// ScheduleWeekly binds a weekly run_full_pipeline firing on weekday at hour:minute.
func (s *Scheduler) ScheduleWeekly(weekday time.Weekday, hour, minute int) error {
	spec := fmt.Sprintf("%d %d * * %d", minute, hour, int(weekday))
	desc := fmt.Sprintf("weekly on %s at %02d:%02d", weekday, hour, minute)
	if err := s.add(OpFullPipeline, spec, desc); err != nil {
		return err
	}
	s.log.Info("scheduled weekly full pipeline",
		logx.String("day", weekday.String()),
		logx.String("at", fmt.Sprintf("%02d:%02d", hour, minute)))
	return nil
}

// ScheduleHourly binds an hourly run_monitoring firing (top of each hour).
func (s *Scheduler) ScheduleHourly() error {
	if err := s.add(OpMonitoring, "0 * * * *", "hourly"); err != nil {
		return err
	}
	s.log.Info("scheduled hourly monitoring")
	return nil
}

// add appends one entry. No dedup: identical calls create independent firings.
func (s *Scheduler) add(op Operation, spec, desc string) error {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	e := &entry{op: op, sched: sched, desc: desc}
	e.next = sched.Next(time.Now().In(s.loc))

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return nil
}

// Start spawns the polling goroutine. Starting an already-running scheduler
// logs a warning and is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("scheduler is already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go s.run(stopCh, done)
	s.log.Info("scheduler started",
		logx.Duration("poll_interval", s.pollInterval),
		logx.Int("entries", len(s.entries)))
}

// Stop signals the polling goroutine and blocks until it has exited. After
// Stop returns, no further scheduled firing can occur. An in-flight job is
// not aborted; Stop waits it out.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info("scheduler stopped")
}

// Running reports the lifecycle state.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stopCh:
			return
		case <-time.After(s.pollInterval):
			s.runPending()
		}
	}
}

// runPending fires every due entry synchronously, in registration order.
// Jobs never run concurrently with each other; a slow job delays the next poll.
func (s *Scheduler) runPending() {
	now := time.Now().In(s.loc)

	s.mu.Lock()
	due := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.next.After(now) {
			due = append(due, e)
			e.next = e.sched.Next(now)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.fire(e.op)
	}
}

// fire invokes one bound operation, containing any failure so the poll loop
// itself cannot be killed by a bad job.
func (s *Scheduler) fire(op Operation) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", logx.String("operation", string(op)), logx.Any("panic", r))
		}
	}()

	s.log.Info("executing scheduled job", logx.String("operation", string(op)))
	res := s.invoke(context.Background(), op)
	s.log.Info("scheduled job completed",
		logx.String("operation", string(op)),
		logx.Bool("success", res.Success))
}

func (s *Scheduler) invoke(ctx context.Context, op Operation) Result {
	res := Result{Operation: op, Timestamp: time.Now()}
	switch op {
	case OpTraining:
		res.Success = s.runner.RunTraining(ctx)
	case OpFullPipeline:
		report := s.runner.RunFullPipeline(ctx)
		res.Report = &report
		res.Success = report.Success
	case OpMonitoring:
		res.Success = s.runner.RunMonitoring(ctx)
	default:
		s.log.Error("unknown operation", logx.String("operation", string(op)))
	}
	return res
}

// TriggerManual invokes the bound operation immediately on the caller's
// goroutine, regardless of the scheduler's running state. There is no mutual
// exclusion against the poll loop: a manual trigger may run concurrently with
// a due scheduled firing.
func (s *Scheduler) TriggerManual(ctx context.Context, op Operation) Result {
	s.log.Info("manual trigger", logx.String("operation", string(op)))
	return s.invoke(ctx, op)
}

// Jobs returns a read-only snapshot of the schedule entries.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		jobs = append(jobs, JobInfo{Operation: e.op, NextRun: e.next, Interval: e.desc})
	}
	return jobs
}
