package services

import (
	"time"

	contextutils "linguaread/internal/utils"
)

// SchedulePolicy maps the outcome of an observation and the resulting success
// streak to the delay before the item should be reviewed again. Policies are
// pure and deterministic.
type SchedulePolicy interface {
	Name() string
	ReviewDelay(newStreak int, correct bool) time.Duration
}

// Policy names accepted in configuration.
const (
	PolicyNameStep   = "step"
	PolicyNameLinear = "linear"
)

// PolicyFromName resolves a configured policy name to its implementation
func PolicyFromName(name string) (SchedulePolicy, error) {
	switch name {
	case PolicyNameStep:
		return StepSchedulePolicy{}, nil
	case PolicyNameLinear:
		return LinearSchedulePolicy{}, nil
	default:
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityError, "unknown schedule policy: "+name, "")
	}
}

// StepSchedulePolicy widens the review interval at fixed streak breakpoints.
// The outcome itself does not matter, only the streak it produced: an incorrect
// observation resets the streak to zero, which lands on the immediate bucket.
type StepSchedulePolicy struct{}

// Name returns the policy's configuration name
func (StepSchedulePolicy) Name() string { return PolicyNameStep }

// ReviewDelay returns the delay for the given post-observation streak
func (StepSchedulePolicy) ReviewDelay(newStreak int, _ bool) time.Duration {
	switch {
	case newStreak <= 0:
		return 0
	case newStreak == 1:
		return time.Hour
	case newStreak == 2:
		return 24 * time.Hour
	case newStreak == 3:
		return 72 * time.Hour
	default:
		return 168 * time.Hour
	}
}

// LinearSchedulePolicy grows the review interval linearly with the streak on
// correct outcomes and re-queues incorrect outcomes after a short flat delay.
type LinearSchedulePolicy struct{}

// Name returns the policy's configuration name
func (LinearSchedulePolicy) Name() string { return PolicyNameLinear }

// ReviewDelay returns the delay for the given outcome and post-observation streak
func (LinearSchedulePolicy) ReviewDelay(newStreak int, correct bool) time.Duration {
	if !correct {
		return 5 * time.Minute
	}
	if newStreak < 1 {
		newStreak = 1
	}
	return time.Duration(newStreak) * 60 * time.Minute
}
