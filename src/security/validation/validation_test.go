package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/monbudget/backend/src/models"
)

func TestValidateDateString(t *testing.T) {
	d, err := ValidateDateString(" 2024-02-29 ", "date_debut")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2023-02-29", "29-02-2024", "2024-2-1"} {
		_, err := ValidateDateString(bad, "date_debut")
		assert.ErrorIs(t, err, ErrValidationFailed, bad)
	}
}

func TestValidateAmounts(t *testing.T) {
	amount, err := ValidateAmountString("12.50", "montant")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(amount))
	assert.NoError(t, ValidatePositiveAmount(amount, "montant"))

	_, err = ValidateAmountString("abc", "montant")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, ValidatePositiveAmount(decimal.Zero, "montant"), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePositiveAmount(decimal.RequireFromString("-1"), "montant"), ErrValidationFailed)
}

func TestValidateEnumsAndRanges(t *testing.T) {
	assert.NoError(t, ValidateFrequency(models.FrequencyQuarterly))
	assert.ErrorIs(t, ValidateFrequency("bimensuel"), ErrValidationFailed)
	assert.NoError(t, ValidateWeekendPolicy(models.WeekendPreviousBusinessDay))
	assert.ErrorIs(t, ValidateWeekendPolicy("samedi"), ErrValidationFailed)
	assert.NoError(t, ValidateTypeOperation(models.OperationTransfer))
	assert.ErrorIs(t, ValidateTypeOperation("remboursement"), ErrValidationFailed)

	assert.NoError(t, ValidateIntRange(31, 1, 31, "jour_execution"))
	assert.ErrorIs(t, ValidateIntRange(32, 1, 31, "jour_execution"), ErrValidationFailed)

	_, err := ValidateIntString("x", "intervalle", 1, 100)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateRequiredText(t *testing.T) {
	assert.ErrorIs(t, ValidateRequiredText("   ", 10, "libelle"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateRequiredText(strings.Repeat("é", 11), 10, "libelle"), ErrValidationFailed)
	assert.NoError(t, ValidateRequiredText(strings.Repeat("é", 10), 10, "libelle"))
}

func TestValidateDateOrder(t *testing.T) {
	start := models.NewDate(2024, 1, 15)
	assert.NoError(t, ValidateDateOrder(start, start, "date_debut", "date_fin"))
	assert.ErrorIs(t, ValidateDateOrder(start, start.AddDays(-1), "date_debut", "date_fin"), ErrValidationFailed)
}

func TestCleanUserText(t *testing.T) {
	assert.Equal(t, "Loyer", CleanUserText("  <b>Loyer</b> "))
	assert.Equal(t, "ab", StripUnprintable("a\x00b\x07"))
	assert.Equal(t, "", CleanUserText(`<script>alert(1)</script>`))
}
