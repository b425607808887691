// backend/src/services/batch_executor.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/models"
)

// DefaultMaxIterations caps how many occurrences one template may generate in a single batch.
const DefaultMaxIterations = 36

// BatchError describes a template that could not be processed in a run.
type BatchError struct {
	RecurrenceID int64       `json:"recurrence_id"`
	UserID       int64       `json:"user_id"`
	Libelle      string      `json:"libelle"`
	DueDate      models.Date `json:"due_date"`
	Reason       string      `json:"reason"`
}

// SkippedRecurrence is a template still due after hitting the iteration cap.
type SkippedRecurrence struct {
	RecurrenceID       int64       `json:"recurrence_id"`
	UserID             int64       `json:"user_id"`
	Libelle            string      `json:"libelle"`
	Generated          int         `json:"generated"`
	ProchaineExecution models.Date `json:"prochaine_execution"`
}

type BatchResult struct {
	RunID         string              `json:"run_id"`
	AsOf          models.Date         `json:"as_of"`
	TotalExecuted int                 `json:"total_executed"`
	Errors        []BatchError        `json:"errors"`
	Skipped       []SkippedRecurrence `json:"skipped"`
	Duration      time.Duration       `json:"duration"`
}

type batchExecutorImpl struct {
	store                RecurrenceStore
	generator            OccurrenceGenerator
	defaultMaxIterations int
}

func NewBatchExecutor(store RecurrenceStore, generator OccurrenceGenerator, defaultMaxIterations int) BatchExecutor {
	if defaultMaxIterations < 1 {
		defaultMaxIterations = DefaultMaxIterations
	}
	return &batchExecutorImpl{store: store, generator: generator, defaultMaxIterations: defaultMaxIterations}
}

// ExecuteAllPending generates every occurrence due on or before asOf. A failing
// template is recorded in the result and the run moves on; only a failure to
// list due templates is returned as an error.
func (b *batchExecutorImpl) ExecuteAllPending(ctx context.Context, asOf models.Date, maxIterations int) (*BatchResult, error) {
	if maxIterations < 1 {
		maxIterations = b.defaultMaxIterations
	}
	start := time.Now()
	result := &BatchResult{
		RunID:   uuid.NewString(),
		AsOf:    asOf,
		Errors:  []BatchError{},
		Skipped: []SkippedRecurrence{},
	}
	log := logger.FromContext(ctx).With("runID", result.RunID, "asOf", asOf.String())

	due, err := b.store.FindDue(ctx, asOf)
	if err != nil {
		log.Error("Recurrence batch aborted: could not list due templates", "error", err)
		return nil, err
	}
	log.Info("Recurrence batch started", "dueTemplates", len(due), "maxIterations", maxIterations)

	for i := range due {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			log.Warn("Recurrence batch interrupted", "error", err, "executed", result.TotalExecuted)
			return result, err
		}

		tpl := &due[i]
		generated, genErr := b.catchUp(ctx, tpl, asOf, maxIterations)
		result.TotalExecuted += generated

		switch {
		case genErr != nil:
			result.Errors = append(result.Errors, BatchError{
				RecurrenceID: tpl.ID,
				UserID:       tpl.UserID,
				Libelle:      tpl.Libelle,
				DueDate:      tpl.ProchaineExecution,
				Reason:       genErr.Error(),
			})
			log.Warn("Recurring occurrence not generated", "recurrenceID", tpl.ID,
				"dueDate", tpl.ProchaineExecution.String(), "error", genErr)
		case generated >= maxIterations && tpl.IsDue(asOf):
			result.Skipped = append(result.Skipped, SkippedRecurrence{
				RecurrenceID:       tpl.ID,
				UserID:             tpl.UserID,
				Libelle:            tpl.Libelle,
				Generated:          generated,
				ProchaineExecution: tpl.ProchaineExecution,
			})
			log.Warn("Recurrence still overdue after iteration cap, remaining occurrences left for next run",
				"recurrenceID", tpl.ID, "generated", generated, "next", tpl.ProchaineExecution.String())
		}
	}

	result.Duration = time.Since(start)
	log.Info("Recurrence batch finished",
		"executed", result.TotalExecuted,
		"errors", len(result.Errors),
		"skipped", len(result.Skipped),
		"duration", result.Duration.String())
	return result, nil
}

// catchUp generates occurrences for tpl while it stays due, up to maxIterations.
// Losing the claim to a concurrent run ends the loop without an error.
func (b *batchExecutorImpl) catchUp(ctx context.Context, tpl *models.RecurrenceTemplate, asOf models.Date, maxIterations int) (int, error) {
	generated := 0
	for generated < maxIterations && tpl.IsDue(asOf) {
		if _, err := b.generator.Generate(ctx, tpl); err != nil {
			if errors.Is(err, ErrConcurrencyConflict) {
				logger.FromContext(ctx).Debug("Recurrence already claimed by another run", "recurrenceID", tpl.ID)
				return generated, nil
			}
			return generated, err
		}
		generated++
	}
	return generated, nil
}
