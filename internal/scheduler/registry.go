package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// intervalSchedule fires every period, computed from the current wall clock so
// missed slots collapse into a single catch-up firing. A non-zero end bound
// deactivates the entry once the next slot would fall past it.
type intervalSchedule struct {
	period time.Duration
	end    time.Time
}

func (s intervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.period)
	if !s.end.IsZero() && next.After(s.end) {
		return time.Time{}
	}
	return next
}

// dateSchedule fires exactly once at a fixed instant, immediately if that
// instant has already passed.
type dateSchedule struct {
	mu        sync.Mutex
	at        time.Time
	scheduled bool
}

func (s *dateSchedule) Next(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduled {
		return time.Time{}
	}
	s.scheduled = true

	if s.at.Before(t) {
		return t
	}
	return s.at
}

// job is one named registration tracked by the registry.
type job struct {
	name    string
	fn      func()
	oneShot bool
	period  time.Duration
	end     time.Time
	at      time.Time
	paused  bool
	entryID cron.EntryID

	// Basis for the next expected firing instant; rewritten on every
	// activation so lateness is measured against the slot the runner
	// actually scheduled.
	lastActivation time.Time
}

// Registry is an in-process set of named timer jobs on a single cron runner.
// Interval jobs coalesce missed slots, never overlap themselves, and drop
// firings that start more than the misfire grace after their slot. One-shot
// jobs fire once and forget themselves. All firings run on their own
// goroutine, gated by a shared concurrency limit.
type Registry struct {
	logger *zap.SugaredLogger
	grace  time.Duration
	slots  chan struct{}
	cron   *cron.Cron

	mu   sync.Mutex
	jobs map[string]*job
	busy map[string]bool
}

// NewRegistry creates a registry with the configured timezone, concurrency
// limit and misfire grace.
func NewRegistry(cfg *config.SchedulerConfig, logger *zap.SugaredLogger) (*Registry, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}

	r := &Registry{
		logger: logger,
		grace:  cfg.MisfireGrace,
		slots:  make(chan struct{}, maxJobs),
		jobs:   make(map[string]*job),
		busy:   make(map[string]bool),
	}

	r.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(zap.NewStdLog(logger.Desugar())))),
	)

	return r, nil
}

// Start begins servicing timers. Safe to call more than once.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop stops the timer loop and waits up to wait for in-flight firings to
// finish.
func (r *Registry) Stop(wait time.Duration) {
	ctx := r.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(wait):
		r.logger.Warnw("timed out waiting for in-flight jobs", "wait", wait)
	}
}

// AddInterval installs a recurring job, replacing any registration with the
// same name. A non-zero end stops the job from firing past that instant.
func (r *Registry) AddInterval(name string, period time.Duration, end time.Time, fn func()) error {
	if period <= 0 {
		return fmt.Errorf("interval must be positive, got %s", period)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.jobs[name]; ok {
		r.cron.Remove(old.entryID)
	}

	j := &job{
		name:           name,
		fn:             fn,
		period:         period,
		end:            end,
		lastActivation: time.Now(),
	}
	r.jobs[name] = j
	r.attach(j)

	return nil
}

// AddOneShot installs a job that fires once at the given instant, replacing
// any registration with the same name.
func (r *Registry) AddOneShot(name string, at time.Time, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.jobs[name]; ok {
		r.cron.Remove(old.entryID)
	}

	j := &job{
		name:    name,
		fn:      fn,
		oneShot: true,
		at:      at,
	}
	r.jobs[name] = j
	r.attach(j)

	return nil
}

// attach registers the job's cron entry. Callers hold r.mu.
func (r *Registry) attach(j *job) {
	name := j.name
	if j.oneShot {
		j.entryID = r.cron.Schedule(&dateSchedule{at: j.at}, cron.FuncJob(func() {
			r.fireOneShot(name)
		}))
		return
	}
	j.entryID = r.cron.Schedule(intervalSchedule{period: j.period, end: j.end}, cron.FuncJob(func() {
		r.fireInterval(name)
	}))
}

// Pause detaches a job's timer while keeping its registration. Returns false
// when no such job exists.
func (r *Registry) Pause(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[name]
	if !ok {
		return false
	}
	if !j.paused {
		r.cron.Remove(j.entryID)
		j.paused = true
	}
	return true
}

// Resume re-attaches a paused job with a fresh next-fire instant. Returns
// false when no such job exists.
func (r *Registry) Resume(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[name]
	if !ok {
		return false
	}
	if j.paused {
		j.paused = false
		j.lastActivation = time.Now()
		r.attach(j)
	}
	return true
}

// Remove drops a registration. In-flight firings finish normally. Returns
// false when no such job exists.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[name]
	if !ok {
		return false
	}
	r.cron.Remove(j.entryID)
	delete(r.jobs, name)
	return true
}

// Has reports whether a job with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[name]
	return ok
}

// Jobs returns the registered job names in sorted order.
func (r *Registry) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fireInterval runs one interval firing: measure lateness against the
// expected slot, skip when the previous firing is still in flight, then run
// under a concurrency slot.
func (r *Registry) fireInterval(name string) {
	now := time.Now()

	r.mu.Lock()
	j, ok := r.jobs[name]
	if !ok || j.paused {
		r.mu.Unlock()
		return
	}

	expected := j.lastActivation.Add(j.period)
	j.lastActivation = now

	if late := now.Sub(expected); late > r.grace {
		r.mu.Unlock()
		r.logger.Warnw("dropping late firing",
			"job", name,
			"expected", expected,
			"late_by", late,
		)
		return
	}

	if r.busy[name] {
		r.mu.Unlock()
		r.logger.Debugw("skipping firing, previous invocation still running", "job", name)
		return
	}
	r.busy[name] = true
	fn := j.fn
	r.mu.Unlock()

	r.slots <- struct{}{}
	defer func() {
		<-r.slots
		r.mu.Lock()
		delete(r.busy, name)
		r.mu.Unlock()
	}()

	fn()
}

// fireOneShot runs a one-shot firing and forgets the registration.
func (r *Registry) fireOneShot(name string) {
	r.mu.Lock()
	j, ok := r.jobs[name]
	if !ok || j.paused {
		r.mu.Unlock()
		return
	}
	fn := j.fn
	entryID := j.entryID
	delete(r.jobs, name)
	r.mu.Unlock()

	r.cron.Remove(entryID)

	r.slots <- struct{}{}
	defer func() { <-r.slots }()

	fn()
}
