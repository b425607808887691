package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/monbudget/backend/src/model"
)

func TestExecuteAllPendingIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	doomed := env.newAccount(t, "Ancien compte", "0")

	first := env.insertDue(t, "Loyer", env.accountID, asOf)
	broken := env.insertDue(t, "Assurance", doomed, asOf)
	third := env.insertDue(t, "Internet", env.accountID, asOf)

	_, err := model.DeleteAccount(ctx, env.db, env.userID, doomed)
	require.NoError(t, err)

	result, err := env.executor.ExecuteAllPending(ctx, asOf, 36)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalExecuted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, broken.ID, result.Errors[0].RecurrenceID)
	assert.Contains(t, result.Errors[0].Reason, "compte")
	assert.Empty(t, result.Skipped)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, "2024-04-01", env.reload(t, first.ID).ProchaineExecution.String())
	assert.Equal(t, "2024-04-01", env.reload(t, third.ID).ProchaineExecution.String())

	untouched := env.reload(t, broken.ID)
	assert.Equal(t, "2024-03-01", untouched.ProchaineExecution.String())
	assert.Equal(t, 0, untouched.NbExecutions)
	assert.Nil(t, untouched.DerniereExecution)
	assert.Empty(t, env.occurrences(t, broken.ID))

	assert.Equal(t, "800", env.balance(t, env.accountID))
}

func TestExecuteAllPendingBoundsCatchUp(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	tpl := env.insertDue(t, "Abonnement", env.accountID, date(2019, time.March, 1))

	result, err := env.executor.ExecuteAllPending(ctx, asOf, 36)
	require.NoError(t, err)
	assert.Equal(t, 36, result.TotalExecuted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, tpl.ID, result.Skipped[0].RecurrenceID)
	assert.Equal(t, 36, result.Skipped[0].Generated)
	assert.Equal(t, "2022-03-01", result.Skipped[0].ProchaineExecution.String())

	occ := env.occurrences(t, tpl.ID)
	require.Len(t, occ, 36)
	assert.Equal(t, "2019-03-01", occ[0].DateTransaction.String())
	assert.Equal(t, "2022-02-01", occ[35].DateTransaction.String())

	result, err = env.executor.ExecuteAllPending(ctx, asOf, 36)
	require.NoError(t, err)
	assert.Equal(t, 25, result.TotalExecuted)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "2024-04-01", env.reload(t, tpl.ID).ProchaineExecution.String())
}

func TestExecuteAllPendingDefaultsIterationCap(t *testing.T) {
	env := newTestEnv(t, date(2024, time.March, 1))
	executor := NewBatchExecutor(env.store, env.generator, 2)
	env.insertDue(t, "Abonnement", env.accountID, date(2023, time.March, 1))

	result, err := executor.ExecuteAllPending(context.Background(), date(2024, time.March, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalExecuted)
	assert.Len(t, result.Skipped, 1)
}

func TestConcurrentBatchesNeverDoubleExecute(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	tpl := env.insertDue(t, "Loyer", env.accountID, asOf)

	const runs = 8
	var wg sync.WaitGroup
	totals := make([]int, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.executor.ExecuteAllPending(ctx, asOf, 36)
			errs[i] = err
			if res != nil {
				totals[i] = res.TotalExecuted
				assert.Empty(t, res.Errors)
			}
		}(i)
	}
	wg.Wait()

	sum := 0
	for i := range totals {
		require.NoError(t, errs[i])
		sum += totals[i]
	}
	assert.Equal(t, 1, sum)
	assert.Len(t, env.occurrences(t, tpl.ID), 1)
	assert.Equal(t, 1, env.reload(t, tpl.ID).NbExecutions)
}

func TestStaleTemplateLosesClaim(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	tpl := env.insertDue(t, "Loyer", env.accountID, asOf)

	stale := *tpl
	_, err := env.generator.Generate(ctx, tpl)
	require.NoError(t, err)

	_, err = env.generator.Generate(ctx, &stale)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, "2024-03-01", stale.ProchaineExecution.String(), "a lost claim leaves the copy untouched")
	assert.Len(t, env.occurrences(t, tpl.ID), 1)
}

func TestGenerateReportsMissingReference(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	tpl := env.insertDue(t, "Loyer", env.accountID, asOf)
	missing := int64(4242)
	tpl.TiersID = &missing
	require.NoError(t, env.store.Update(ctx, tpl))

	_, err := env.generator.Generate(ctx, tpl)
	var refErr *ReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "tiers", refErr.Entity)
	assert.Equal(t, missing, refErr.EntityID)
	assert.Equal(t, tpl.ID, refErr.RecurrenceID)
	assert.Equal(t, 0, env.reload(t, tpl.ID).NbExecutions)
}

func TestTransferRecalculatesBothAccounts(t *testing.T) {
	ctx := context.Background()
	asOf := date(2024, time.March, 1)
	env := newTestEnv(t, asOf)
	savings := env.newAccount(t, "Livret", "0")

	tpl := env.insertDue(t, "Epargne", env.accountID, asOf)
	tpl.TypeOperation = "virement"
	tpl.CompteDestinationID = &savings
	require.NoError(t, env.store.Update(ctx, tpl))

	result, err := env.executor.ExecuteAllPending(ctx, asOf, 36)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalExecuted)

	assert.Equal(t, "900", env.balance(t, env.accountID))
	assert.Equal(t, "100", env.balance(t, savings))
}

func TestOccurrenceIsDatedAtCursorNotToday(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, date(2024, time.March, 20))
	tpl := env.insertDue(t, "Loyer", env.accountID, date(2024, time.March, 5))

	_, err := env.executor.ExecuteAllPending(ctx, date(2024, time.March, 20), 36)
	require.NoError(t, err)

	occ := env.occurrences(t, tpl.ID)
	require.Len(t, occ, 1)
	assert.Equal(t, "2024-03-05", occ[0].DateTransaction.String())
	assert.True(t, occ[0].Validee)
	require.NotNil(t, occ[0].RecurrenceID)
	assert.Equal(t, tpl.ID, *occ[0].RecurrenceID)
}
