// backend/src/services/recurrence_trigger.go
package services

import (
	"context"
	"fmt"

	"github.com/username/monbudget/backend/src/logger"
)

// RecurrenceTrigger runs the pending batch opportunistically when any user logs in.
type RecurrenceTrigger struct {
	runner  PendingRunner
	enabled bool
}

func NewRecurrenceTrigger(runner PendingRunner, enabled bool) *RecurrenceTrigger {
	return &RecurrenceTrigger{runner: runner, enabled: enabled}
}

// OnLogin processes due recurrences for all users and returns how many
// occurrences were generated. It never fails: any error, or panic, is logged
// and reported as zero so the login itself goes through.
func (t *RecurrenceTrigger) OnLogin(ctx context.Context) (executed int) {
	if t == nil || !t.enabled || t.runner == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorFromContext(ctx, "Recurrence trigger panicked", "panic", r)
			executed = 0
		}
	}()

	result, err := t.runner.ExecuteAllPendingRecurrences(ctx)
	if err != nil {
		logger.ErrorFromContext(ctx, "Recurrence batch failed during login", "error", err)
	}
	if result == nil {
		return 0
	}
	return result.TotalExecuted
}

// RecurrenceNotice is the informational message shown after login, empty when nothing ran.
func RecurrenceNotice(executed int) string {
	switch {
	case executed <= 0:
		return ""
	case executed == 1:
		return "1 recurring transaction processed"
	default:
		return fmt.Sprintf("%d recurring transactions processed", executed)
	}
}
