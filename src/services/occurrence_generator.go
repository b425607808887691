// backend/src/services/occurrence_generator.go
package services

import (
	"context"

	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/processors"
)

type occurrenceGeneratorImpl struct {
	store    RecurrenceStore
	balances BalanceRecalculator
}

func NewOccurrenceGenerator(store RecurrenceStore, balances BalanceRecalculator) OccurrenceGenerator {
	return &occurrenceGeneratorImpl{store: store, balances: balances}
}

// Generate writes the occurrence due on tpl.ProchaineExecution and advances the
// template. On success tpl is updated in place to mirror the stored cursor.
// On failure nothing is written and tpl is left unchanged.
func (g *occurrenceGeneratorImpl) Generate(ctx context.Context, tpl *models.RecurrenceTemplate) (int64, error) {
	executed := tpl.ProchaineExecution
	next := processors.NextExecution(tpl, executed)
	occ := models.NewOccurrence(tpl, executed)

	id, err := g.store.ClaimAndGenerate(ctx, tpl, occ, next)
	if err != nil {
		return 0, err
	}

	tpl.NbExecutions++
	tpl.DerniereExecution = models.DatePtr(executed)
	tpl.ProchaineExecution = next

	logger.FromContext(ctx).Debug("Recurring occurrence generated",
		"recurrenceID", tpl.ID, "transactionID", id, "date", executed.String(), "next", next.String())

	g.recalculate(ctx, occ.AccountIDs())
	return id, nil
}

// recalculate refreshes the balance of every account the occurrence moved.
// The occurrence is already committed, so failures are only logged.
func (g *occurrenceGeneratorImpl) recalculate(ctx context.Context, accountIDs []int64) {
	if g.balances == nil {
		return
	}
	for _, accountID := range accountIDs {
		if _, err := g.balances.RecalculateBalance(ctx, accountID); err != nil {
			logger.WarnFromContext(ctx, "Balance recalculation failed after recurring occurrence",
				"accountID", accountID, "error", err)
		}
	}
}
