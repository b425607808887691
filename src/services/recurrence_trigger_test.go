package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls  atomic.Int32
	result *BatchResult
	err    error
	panics bool
}

func (r *stubRunner) ExecuteAllPendingRecurrences(ctx context.Context) (*BatchResult, error) {
	r.calls.Add(1)
	if r.panics {
		panic("store exploded")
	}
	return r.result, r.err
}

func TestTriggerOnLogin(t *testing.T) {
	ctx := context.Background()

	ok := &stubRunner{result: &BatchResult{TotalExecuted: 3}}
	assert.Equal(t, 3, NewRecurrenceTrigger(ok, true).OnLogin(ctx))

	failing := &stubRunner{err: &StorageError{Op: "find due recurrences", Err: errors.New("disk I/O error")}}
	assert.Equal(t, 0, NewRecurrenceTrigger(failing, true).OnLogin(ctx))

	interrupted := &stubRunner{result: &BatchResult{TotalExecuted: 2}, err: context.Canceled}
	assert.Equal(t, 2, NewRecurrenceTrigger(interrupted, true).OnLogin(ctx))

	panicking := &stubRunner{panics: true}
	assert.NotPanics(t, func() {
		assert.Equal(t, 0, NewRecurrenceTrigger(panicking, true).OnLogin(ctx))
	})

	disabled := &stubRunner{result: &BatchResult{TotalExecuted: 5}}
	assert.Equal(t, 0, NewRecurrenceTrigger(disabled, false).OnLogin(ctx))
	assert.Equal(t, int32(0), disabled.calls.Load())

	var nilTrigger *RecurrenceTrigger
	assert.Equal(t, 0, nilTrigger.OnLogin(ctx))
}

func TestTriggerRunsRealBatch(t *testing.T) {
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	env.insertDue(t, "Loyer", env.accountID, asOf)

	trigger := NewRecurrenceTrigger(env.service, true)
	assert.Equal(t, 1, trigger.OnLogin(context.Background()))
	assert.Equal(t, 0, trigger.OnLogin(context.Background()), "second login finds nothing due")
}

func TestRecurrenceNotice(t *testing.T) {
	assert.Equal(t, "", RecurrenceNotice(0))
	assert.Equal(t, "1 recurring transaction processed", RecurrenceNotice(1))
	assert.Equal(t, "4 recurring transactions processed", RecurrenceNotice(4))
}

func TestSchedulerRunsOnStartAndOnTick(t *testing.T) {
	runner := &stubRunner{result: &BatchResult{}}
	s := NewRecurrenceScheduler(runner, 10*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))

	stopped := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runner.calls.Load())
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerSurvivesFailuresAndPanics(t *testing.T) {
	runner := &stubRunner{err: errors.New("database is locked")}
	s := NewRecurrenceScheduler(runner, 5*time.Millisecond)
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	panicking := &stubRunner{panics: true}
	s = NewRecurrenceScheduler(panicking, 5*time.Millisecond)
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return panicking.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &stubRunner{result: &BatchResult{}}
	s := NewRecurrenceScheduler(runner, 0)
	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runner.calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}
