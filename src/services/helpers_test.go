package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/username/monbudget/backend/src/database"
	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(d models.Date) *fakeClock {
	return &fakeClock{now: d.Time.Add(9 * time.Hour)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(d models.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d.Time.Add(9 * time.Hour)
}

type testEnv struct {
	db           *sql.DB
	store        RecurrenceStore
	accounts     AccountService
	transactions TransactionService
	generator    OccurrenceGenerator
	executor     BatchExecutor
	service      RecurrenceService
	clock        *fakeClock
	userID       int64
	accountID    int64
}

func newTestEnv(t *testing.T, today models.Date) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	env := &testEnv{db: db, clock: newClock(today)}
	env.store = NewRecurrenceStore(db)
	env.accounts = NewAccountService(db)
	env.transactions = NewTransactionService(db, env.accounts)
	env.generator = NewOccurrenceGenerator(env.store, env.accounts)
	env.executor = NewBatchExecutor(env.store, env.generator, DefaultMaxIterations)
	env.service = NewRecurrenceService(env.store, env.generator, env.executor, env.accounts, env.transactions,
		RecurrenceServiceConfig{MaxIterations: DefaultMaxIterations, Now: env.clock.Now})

	u := &model.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, u.CreateUser(db))
	env.userID = u.ID
	env.accountID = env.newAccount(t, "Courant", "1000")
	return env
}

func (e *testEnv) newAccount(t *testing.T, nom, initial string) int64 {
	t.Helper()
	a, err := e.accounts.CreateAccount(context.Background(), e.userID, nom, decimal.RequireFromString(initial))
	require.NoError(t, err)
	return a.ID
}

// insertDue stores a monthly template anchored on the day of next, with its cursor on next.
func (e *testEnv) insertDue(t *testing.T, libelle string, accountID int64, next models.Date) *models.RecurrenceTemplate {
	t.Helper()
	jour := next.Day()
	tpl := &models.RecurrenceTemplate{
		UserID:             e.userID,
		CompteID:           accountID,
		Libelle:            libelle,
		Montant:            decimal.RequireFromString("100"),
		TypeOperation:      models.OperationDebit,
		Frequence:          models.FrequencyMonthly,
		Intervalle:         1,
		JourExecution:      &jour,
		ToleranceWeekend:   models.WeekendNoAdjustment,
		DateDebut:          next,
		ProchaineExecution: next,
		RecurrenceActive:   true,
		AutoValidation:     true,
	}
	require.NoError(t, e.store.Create(context.Background(), tpl))
	return tpl
}

func (e *testEnv) reload(t *testing.T, id int64) *models.RecurrenceTemplate {
	t.Helper()
	tpl, err := e.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tpl
}

func (e *testEnv) occurrences(t *testing.T, id int64) []models.Transaction {
	t.Helper()
	list, err := e.store.ListOccurrences(context.Background(), id)
	require.NoError(t, err)
	return list
}

func (e *testEnv) balance(t *testing.T, accountID int64) string {
	t.Helper()
	a, err := e.accounts.GetAccount(context.Background(), e.userID, accountID)
	require.NoError(t, err)
	return a.Solde.String()
}

func date(y int, m time.Month, d int) models.Date { return models.NewDate(y, m, d) }

func intPtr(v int) *int { return &v }
