package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rxsched/pkg/closeable"
)

// cronParser accepts the 6-field form with a seconds column plus
// @-descriptors ("@hourly", "@every 5m", ...).
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleCron runs action at every activation of the cron expression
// spec, computed against the scheduler's own clock. On a virtual or
// test scheduler the activations are therefore fully deterministic.
// Closing the returned token stops the job before its next activation.
func ScheduleCron(s Scheduler, spec string, action Action) (closeable.Closeable, error) {
	expr, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	now := s.Now()
	token := s.ScheduleRecursiveAfter(expr.Next(now).Sub(now), func(self func(delay time.Duration)) {
		action()
		now := s.Now()
		next := expr.Next(now)
		if next.IsZero() {
			return // the expression has no future activation
		}
		self(next.Sub(now))
	})
	return token, nil
}
