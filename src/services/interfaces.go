// backend/src/services/interfaces.go
package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/username/monbudget/backend/src/models"
)

// RecurrenceStore persists recurrence templates and the occurrences they generate.
type RecurrenceStore interface {
	Create(ctx context.Context, tpl *models.RecurrenceTemplate) error
	// Update writes the editable fields of tpl, never its cursor, counters or active flag.
	Update(ctx context.Context, tpl *models.RecurrenceTemplate) error
	Reschedule(ctx context.Context, tpl *models.RecurrenceTemplate, expectedNext models.Date, expectedLast *models.Date) error
	GetByID(ctx context.Context, id int64) (*models.RecurrenceTemplate, error)
	GetUserRecurrence(ctx context.Context, userID, id int64) (*models.RecurrenceTemplate, error)
	ListByUser(ctx context.Context, userID int64) ([]models.RecurrenceTemplate, error)
	SetActive(ctx context.Context, userID, id int64, active bool, next *models.Date) error

	// CheckReferences returns a ReferenceError for the first referenced row that is missing.
	CheckReferences(ctx context.Context, tpl *models.RecurrenceTemplate) error

	// FindDue returns active templates across all users due on or before asOf.
	FindDue(ctx context.Context, asOf models.Date) ([]models.RecurrenceTemplate, error)
	// ClaimAndGenerate checks the template's references, advances its cursor
	// from tpl.ProchaineExecution to next and inserts occ, all in one transaction.
	ClaimAndGenerate(ctx context.Context, tpl *models.RecurrenceTemplate, occ *models.Transaction, next models.Date) (int64, error)
	RecordExecution(ctx context.Context, id int64, executed, next models.Date) error
	// CreateFromTransaction inserts tpl and links the existing transaction to it.
	CreateFromTransaction(ctx context.Context, tpl *models.RecurrenceTemplate, transactionID int64) error

	DeleteTemplateOnly(ctx context.Context, userID, id int64) (int64, error)
	DeleteTemplateWithOccurrences(ctx context.Context, userID, id int64) (int64, []int64, error)
	ListOccurrences(ctx context.Context, id int64) ([]models.Transaction, error)

	CountByState(ctx context.Context, asOf models.Date) (models.RecurrenceStateCounts, error)
	UpcomingDue(ctx context.Context, from models.Date, days int) ([]models.UpcomingRecurrence, error)
	TopByOccurrences(ctx context.Context, limit int) ([]models.RecurrenceUsage, error)
}

// BalanceRecalculator is the account subsystem hook invoked after an occurrence is written.
type BalanceRecalculator interface {
	RecalculateBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// OccurrenceGenerator turns the current due date of a template into a transaction.
type OccurrenceGenerator interface {
	Generate(ctx context.Context, tpl *models.RecurrenceTemplate) (int64, error)
}

// BatchExecutor processes every due template up to asOf.
type BatchExecutor interface {
	ExecuteAllPending(ctx context.Context, asOf models.Date, maxIterations int) (*BatchResult, error)
}

// PendingRunner runs one batch as of today. Implemented by RecurrenceService
// and consumed by the login trigger and the background scheduler.
type PendingRunner interface {
	ExecuteAllPendingRecurrences(ctx context.Context) (*BatchResult, error)
}

// RecurrenceService is the boundary used by HTTP handlers.
type RecurrenceService interface {
	PendingRunner
	ExecuteOne(ctx context.Context, userID, id int64) (int64, error)
	ComputeNextExecution(tpl *models.RecurrenceTemplate) models.Date
	PreviewSchedule(input RecurrenceInput, count int) ([]models.Date, error)

	CreateRecurrence(ctx context.Context, userID int64, input RecurrenceInput, generateFirst bool) (*models.RecurrenceTemplate, error)
	UpdateRecurrence(ctx context.Context, userID, id int64, input RecurrenceInput) (*models.RecurrenceTemplate, error)
	PauseRecurrence(ctx context.Context, userID, id int64) error
	ResumeRecurrence(ctx context.Context, userID, id int64) (*models.RecurrenceTemplate, error)
	DeleteRecurrence(ctx context.Context, userID, id int64, mode DeleteMode) (*DeleteResult, error)
	ConvertTransactionToRecurrence(ctx context.Context, userID, transactionID int64, schedule ScheduleInput) (*models.RecurrenceTemplate, error)
	GetRecurrence(ctx context.Context, userID, id int64) (*RecurrenceDetails, error)
	ListRecurrences(ctx context.Context, userID int64) ([]models.RecurrenceTemplate, error)

	GetAdminStats(ctx context.Context) (*AdminRecurrenceStats, error)
	ClearStatsCache()
}
