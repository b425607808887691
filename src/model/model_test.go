package model

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/monbudget/backend/src/database"
	"github.com/username/monbudget/backend/src/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "model.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUserAndAccount(t *testing.T, db *sql.DB) (int64, int64) {
	t.Helper()
	u := &User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, u.CreateUser(db))
	a := &models.Account{UserID: u.ID, Nom: "Courant", SoldeInitial: decimal.RequireFromString("1000")}
	require.NoError(t, CreateAccount(context.Background(), db, a))
	return u.ID, a.ID
}

func newTemplate(userID, accountID int64, next models.Date) *models.RecurrenceTemplate {
	jour := next.Day()
	return &models.RecurrenceTemplate{
		UserID:             userID,
		CompteID:           accountID,
		Libelle:            "Loyer",
		Montant:            decimal.RequireFromString("750.50"),
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
}

func TestRecurrenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, accountID := seedUserAndAccount(t, db)

	tpl := newTemplate(userID, accountID, models.NewDate(2024, time.January, 15))
	fin := models.NewDate(2024, time.December, 31)
	max := 12
	tpl.DateFin = &fin
	tpl.NbExecutionsMax = &max
	tpl.Description = "Appartement"
	require.NoError(t, InsertRecurrence(ctx, db, tpl))
	require.NotZero(t, tpl.ID)

	got, err := GetUserRecurrenceByID(ctx, db, userID, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loyer", got.Libelle)
	assert.Equal(t, "Appartement", got.Description)
	assert.True(t, decimal.RequireFromString("750.50").Equal(got.Montant))
	assert.Equal(t, models.FrequencyMonthly, got.Frequence)
	require.NotNil(t, got.JourExecution)
	assert.Equal(t, 15, *got.JourExecution)
	require.NotNil(t, got.DateFin)
	assert.Equal(t, "2024-12-31", got.DateFin.String())
	require.NotNil(t, got.NbExecutionsMax)
	assert.Equal(t, 12, *got.NbExecutionsMax)
	assert.Nil(t, got.DerniereExecution)
	assert.Nil(t, got.CompteDestinationID)
	assert.True(t, got.RecurrenceActive)
	assert.Equal(t, "2024-01-15", got.ProchaineExecution.String())

	_, err = GetUserRecurrenceByID(ctx, db, userID+1, tpl.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindDueRecurrencesFilters(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, accountID := seedUserAndAccount(t, db)
	asOf := models.NewDate(2024, time.March, 1)

	due := newTemplate(userID, accountID, models.NewDate(2024, time.March, 1))
	require.NoError(t, InsertRecurrence(ctx, db, due))

	future := newTemplate(userID, accountID, models.NewDate(2024, time.March, 2))
	require.NoError(t, InsertRecurrence(ctx, db, future))

	paused := newTemplate(userID, accountID, models.NewDate(2024, time.February, 1))
	paused.RecurrenceActive = false
	require.NoError(t, InsertRecurrence(ctx, db, paused))

	ended := newTemplate(userID, accountID, models.NewDate(2024, time.February, 1))
	end := models.NewDate(2024, time.February, 29)
	ended.DateFin = &end
	require.NoError(t, InsertRecurrence(ctx, db, ended))

	exhausted := newTemplate(userID, accountID, models.NewDate(2024, time.February, 1))
	max := 2
	exhausted.NbExecutionsMax = &max
	exhausted.NbExecutions = 2
	require.NoError(t, InsertRecurrence(ctx, db, exhausted))

	found, err := FindDueRecurrences(ctx, db, asOf)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)

	counts, err := CountRecurrencesByState(ctx, db, asOf)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Active)
	assert.Equal(t, 1, counts.Inactive)
	assert.Equal(t, 0, counts.Overdue, "ended and exhausted templates are not overdue")

	upcoming, err := UpcomingRecurrences(ctx, db, asOf, asOf.AddDays(30))
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, due.ID, upcoming[0].ID)
	assert.Equal(t, future.ID, upcoming[1].ID)
}

func TestClaimRecurrenceOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, accountID := seedUserAndAccount(t, db)

	tpl := newTemplate(userID, accountID, models.NewDate(2024, time.March, 1))
	require.NoError(t, InsertRecurrence(ctx, db, tpl))

	executed := tpl.ProchaineExecution
	next := models.NewDate(2024, time.April, 1)

	won, err := ClaimRecurrence(ctx, db, tpl.ID, executed, executed, next)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = ClaimRecurrence(ctx, db, tpl.ID, executed, executed, next)
	require.NoError(t, err)
	assert.False(t, won, "the cursor has moved, the stale claim must lose")

	got, err := GetRecurrenceByID(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NbExecutions)
	assert.Equal(t, "2024-04-01", got.ProchaineExecution.String())
	require.NotNil(t, got.DerniereExecution)
	assert.Equal(t, "2024-03-01", got.DerniereExecution.String())
}

func TestEditsNeverRewindTheCursor(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, accountID := seedUserAndAccount(t, db)

	march1 := models.NewDate(2024, time.March, 1)
	tpl := newTemplate(userID, accountID, march1)
	require.NoError(t, InsertRecurrence(ctx, db, tpl))
	stale := *tpl

	won, err := ClaimRecurrence(ctx, db, tpl.ID, march1, march1, models.NewDate(2024, time.April, 1))
	require.NoError(t, err)
	require.True(t, won)

	stale.Libelle = "Loyer T3"
	stale.RecurrenceActive = false
	ok, err := UpdateRecurrence(ctx, db, &stale)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := GetRecurrenceByID(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loyer T3", got.Libelle)
	assert.Equal(t, "2024-04-01", got.ProchaineExecution.String())
	assert.Equal(t, 1, got.NbExecutions)
	assert.True(t, got.RecurrenceActive)

	stale.ProchaineExecution = models.NewDate(2024, time.March, 15)
	ok, err = RescheduleRecurrence(ctx, db, &stale, march1, nil)
	require.NoError(t, err)
	assert.False(t, ok, "the cursor moved since the copy was read")

	got.ProchaineExecution = models.NewDate(2024, time.April, 15)
	ok, err = RescheduleRecurrence(ctx, db, got, models.NewDate(2024, time.April, 1), got.DerniereExecution)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = GetRecurrenceByID(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-15", got.ProchaineExecution.String())
	require.NotNil(t, got.DerniereExecution)
	assert.Equal(t, "2024-03-01", got.DerniereExecution.String())
}

func TestRecalculateAccountBalance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, checking := seedUserAndAccount(t, db)

	savings := &models.Account{UserID: userID, Nom: "Livret", SoldeInitial: decimal.RequireFromString("200")}
	require.NoError(t, CreateAccount(ctx, db, savings))

	day := models.NewDate(2024, time.January, 5)
	insert := func(op models.TypeOperation, amount string, dest *int64) {
		require.NoError(t, InsertTransaction(ctx, db, &models.Transaction{
			UserID: userID, CompteID: checking, CompteDestinationID: dest,
			DateTransaction: day, Libelle: string(op), Montant: decimal.RequireFromString(amount), TypeOperation: op,
		}))
	}
	insert(models.OperationCredit, "2500.10", nil)
	insert(models.OperationDebit, "0.10", nil)
	insert(models.OperationTransfer, "300", &savings.ID)

	balance, err := RecalculateAccountBalance(ctx, db, checking)
	require.NoError(t, err)
	assert.Equal(t, "3200", balance.String())

	balance, err = RecalculateAccountBalance(ctx, db, savings.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", balance.String())

	acc, err := GetAccountByID(ctx, db, userID, savings.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("500").Equal(acc.Solde))

	_, err = RecalculateAccountBalance(ctx, db, 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDetachAndDeleteOccurrences(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	userID, accountID := seedUserAndAccount(t, db)

	tpl := newTemplate(userID, accountID, models.NewDate(2024, time.January, 1))
	require.NoError(t, InsertRecurrence(ctx, db, tpl))

	for m := time.January; m <= time.March; m++ {
		occ := models.NewOccurrence(tpl, models.NewDate(2024, m, 1))
		require.NoError(t, InsertTransaction(ctx, db, occ))
	}

	n, err := CountTransactionsByRecurrence(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	deleted, accounts, err := DeleteTransactionsByRecurrence(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, []int64{accountID}, accounts)

	occ := models.NewOccurrence(tpl, models.NewDate(2024, time.April, 1))
	require.NoError(t, InsertTransaction(ctx, db, occ))
	detached, err := DetachTransactionsFromRecurrence(ctx, db, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	left, err := GetTransactionByID(ctx, db, userID, occ.ID)
	require.NoError(t, err)
	assert.Nil(t, left.RecurrenceID)
}
