// Package worker runs jobs once a day at a fixed wall-clock time.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Spec is the five-field cron expression firing daily at c.
func (c Clock) Spec() string {
	return fmt.Sprintf("%d %d * * *", c.Minute, c.Hour)
}

// ParseClock reads "HH:MM" in 24 hour form.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, apperr.Validationf("invalid_clock", "expected HH:MM, got %q", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NextRun returns the first instant strictly after now at which the wall
// clock in loc reads c.
func NextRun(now time.Time, c Clock, loc *time.Location) time.Time {
	sched, err := cron.ParseStandard(c.Spec())
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now.In(loc))
}

// Job is one scheduled run. Errors are logged and do not stop the schedule.
type Job func(ctx context.Context) error

type Daily struct {
	name    string
	clock   Clock
	loc     *time.Location
	timeout time.Duration
	log     *logger.Logger

	spec string
}

func NewDaily(name string, c Clock, loc *time.Location, timeout time.Duration, log *logger.Logger) *Daily {
	return &Daily{
		name:    name,
		clock:   c,
		loc:     loc,
		timeout: timeout,
		log:     log,
		spec:    c.Spec(),
	}
}

// Run blocks until ctx is done, invoking job at each scheduled time. A run
// still in progress when the next one is due makes the next one skip. On
// return any in-flight run has finished.
func (d *Daily) Run(ctx context.Context, job Job) error {
	entry := d.log.WithComponent("worker").WithField("job", d.name)
	cl := cronLogger{entry: entry}

	c := cron.New(
		cron.WithLocation(d.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(d.spec, func() { d.RunOnce(ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s at %q: %w", d.name, d.spec, err)
	}

	c.Start()
	entry.WithField("schedule", d.spec).
		WithField("timezone", d.loc.String()).
		WithField("next_run", NextRun(time.Now(), d.clock, d.loc).Format(time.RFC3339)).
		Info("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	entry.Info("scheduler stopped")
	return nil
}

// RunOnce invokes job with the scheduler's timeout and logs the outcome.
func (d *Daily) RunOnce(ctx context.Context, job Job) {
	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	entry := d.log.WithComponent("worker").WithField("job", d.name)
	start := time.Now()
	if err := job(runCtx); err != nil {
		entry.WithError(err).Error("run failed")
		return
	}
	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Info("run complete")
}

// cronLogger routes cron's own messages into logrus.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fieldsOf(keysAndValues)).Error(msg)
}

func fieldsOf(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
