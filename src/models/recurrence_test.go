package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestFrequencyHelpers(t *testing.T) {
	assert.True(t, FrequencyMonthly.IsValid())
	assert.False(t, Frequency("bimensuel").IsValid())

	assert.Equal(t, 0, FrequencyDaily.MonthsPerPeriod())
	assert.Equal(t, 0, FrequencyWeekly.MonthsPerPeriod())
	assert.Equal(t, 1, FrequencyMonthly.MonthsPerPeriod())
	assert.Equal(t, 3, FrequencyQuarterly.MonthsPerPeriod())
	assert.Equal(t, 6, FrequencySemiannual.MonthsPerPeriod())
	assert.Equal(t, 12, FrequencyAnnual.MonthsPerPeriod())
	assert.True(t, FrequencyAnnual.IsMonthBased())
	assert.False(t, FrequencyWeekly.IsMonthBased())

	assert.True(t, WeekendPreviousBusinessDay.IsValid())
	assert.False(t, WeekendPolicy("ferie").IsValid())
	assert.True(t, OperationTransfer.IsValid())
	assert.False(t, TypeOperation("remboursement").IsValid())
}

func TestIsDue(t *testing.T) {
	base := RecurrenceTemplate{
		RecurrenceActive:   true,
		ProchaineExecution: NewDate(2024, time.March, 1),
	}
	asOf := NewDate(2024, time.March, 1)

	tpl := base
	assert.True(t, tpl.IsDue(asOf))

	tpl = base
	tpl.RecurrenceActive = false
	assert.False(t, tpl.IsDue(asOf), "paused")

	tpl = base
	assert.False(t, tpl.IsDue(NewDate(2024, time.February, 29)), "cursor in the future")

	tpl = base
	tpl.NbExecutionsMax = intPtr(3)
	tpl.NbExecutions = 3
	assert.False(t, tpl.IsDue(asOf), "limit reached")

	tpl = base
	tpl.DateFin = DatePtr(NewDate(2024, time.February, 28))
	assert.False(t, tpl.IsDue(asOf), "ended")

	tpl = base
	tpl.DateFin = DatePtr(NewDate(2024, time.March, 1))
	assert.True(t, tpl.IsDue(asOf), "end date is inclusive")
}

func TestNewOccurrenceCopiesTemplate(t *testing.T) {
	tpl := &RecurrenceTemplate{
		ID:                  7,
		UserID:              1,
		CompteID:            10,
		CompteDestinationID: int64Ptr(11),
		Libelle:             "Epargne",
		Montant:             decimal.RequireFromString("150.25"),
		TypeOperation:       OperationTransfer,
		CategorieID:         int64Ptr(3),
		AutoValidation:      true,
	}
	occ := NewOccurrence(tpl, NewDate(2024, time.May, 5))

	require.NotNil(t, occ.RecurrenceID)
	assert.Equal(t, int64(7), *occ.RecurrenceID)
	assert.Equal(t, "2024-05-05", occ.DateTransaction.String())
	assert.True(t, occ.Validee)
	assert.True(t, decimal.RequireFromString("150.25").Equal(occ.Montant))
	assert.Equal(t, []int64{10, 11}, occ.AccountIDs())

	// Mutating the template afterwards does not leak into the occurrence.
	*tpl.CategorieID = 99
	tpl.Libelle = "Autre"
	assert.Equal(t, int64(3), *occ.CategorieID)
	assert.Equal(t, "Epargne", occ.Libelle)
}

func TestDateJSONAndScan(t *testing.T) {
	type payload struct {
		D   Date  `json:"d"`
		Opt *Date `json:"opt"`
	}
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-02-29","opt":null}`), &p))
	assert.Equal(t, NewDate(2024, time.February, 29), p.D)
	assert.Nil(t, p.Opt)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-02-29","opt":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"29/02/2024"}`), &p))

	var d Date
	require.NoError(t, d.Scan("2025-01-31"))
	assert.Equal(t, "2025-01-31", d.String())
	require.NoError(t, d.Scan([]byte("2025-02-01")))
	assert.Equal(t, "2025-02-01", d.String())
	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", v)
}
