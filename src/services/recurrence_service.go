// backend/src/services/recurrence_service.go
package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/processors"
	"github.com/username/monbudget/backend/src/utils"
)

const (
	ckAdminRecurrenceStats = "admin_recurrence_stats"
	DefaultUpcomingDays    = 30
	DefaultStatsCacheTTL   = 5 * time.Minute
	topRecurrencesLimit    = 10
	maxPreviewDates        = 60
	maxResumeSkips         = 10000
)

type DeleteMode string

const (
	DeleteModeTemplate DeleteMode = "modele"
	DeleteModeAll      DeleteMode = "tout"
)

type DeleteResult struct {
	Mode                DeleteMode `json:"mode"`
	DeletedOccurrences  int64      `json:"deleted_occurrences"`
	DetachedOccurrences int64      `json:"detached_occurrences"`
}

type RecurrenceDetails struct {
	Recurrence  *models.RecurrenceTemplate `json:"recurrence"`
	Occurrences []models.Transaction       `json:"occurrences"`
}

type AdminRecurrenceStats struct {
	models.RecurrenceStateCounts
	Upcoming    []models.UpcomingRecurrence `json:"upcoming"`
	Top         []models.RecurrenceUsage    `json:"top"`
	AsOf        models.Date                 `json:"as_of"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// RecurrenceServiceConfig carries the tunables read from AppConfig.
type RecurrenceServiceConfig struct {
	MaxIterations int
	UpcomingDays  int
	StatsCacheTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type recurrenceServiceImpl struct {
	store        RecurrenceStore
	generator    OccurrenceGenerator
	executor     BatchExecutor
	balances     BalanceRecalculator
	transactions TransactionService
	statsCache   *cache.Cache

	maxIterations int
	upcomingDays  int
	now           func() time.Time
}

func NewRecurrenceService(
	store RecurrenceStore,
	generator OccurrenceGenerator,
	executor BatchExecutor,
	balances BalanceRecalculator,
	transactions TransactionService,
	cfg RecurrenceServiceConfig,
) RecurrenceService {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.UpcomingDays < 1 {
		cfg.UpcomingDays = DefaultUpcomingDays
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = DefaultStatsCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &recurrenceServiceImpl{
		store:         store,
		generator:     generator,
		executor:      executor,
		balances:      balances,
		transactions:  transactions,
		statsCache:    cache.New(cfg.StatsCacheTTL, 2*cfg.StatsCacheTTL),
		maxIterations: cfg.MaxIterations,
		upcomingDays:  cfg.UpcomingDays,
		now:           cfg.Now,
	}
}

func (s *recurrenceServiceImpl) today() models.Date {
	return models.DateOf(utils.Today(s.now))
}

func (s *recurrenceServiceImpl) ExecuteAllPendingRecurrences(ctx context.Context) (*BatchResult, error) {
	result, err := s.executor.ExecuteAllPending(ctx, s.today(), s.maxIterations)
	if result != nil && result.TotalExecuted > 0 {
		s.ClearStatsCache()
	}
	return result, err
}

// ExecuteOne generates the occurrence at the template's cursor right away,
// even when that date is still in the future.
func (s *recurrenceServiceImpl) ExecuteOne(ctx context.Context, userID, id int64) (int64, error) {
	tpl, err := s.store.GetUserRecurrence(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if !tpl.RecurrenceActive {
		return 0, ErrRecurrenceInactive
	}
	if tpl.LimitReached() || tpl.EndedBefore(tpl.ProchaineExecution) {
		return 0, ErrRecurrenceExhausted
	}

	txID, err := s.generator.Generate(ctx, tpl)
	if err != nil {
		return 0, err
	}
	s.ClearStatsCache()
	logger.InfoFromContext(ctx, "Recurrence executed manually", "recurrenceID", id, "transactionID", txID)
	return txID, nil
}

// ComputeNextExecution returns the cursor tpl should carry: the first date of
// its schedule if it never ran, otherwise the date after its last execution.
func (s *recurrenceServiceImpl) ComputeNextExecution(tpl *models.RecurrenceTemplate) models.Date {
	if tpl.DerniereExecution == nil {
		return processors.FirstExecutionFor(tpl)
	}
	return processors.NextExecution(tpl, *tpl.DerniereExecution)
}

// PreviewSchedule lists the next count dates input would produce, honouring date_fin and nb_executions_max.
func (s *recurrenceServiceImpl) PreviewSchedule(input RecurrenceInput, count int) ([]models.Date, error) {
	input.ScheduleInput.normalize()
	if err := input.ScheduleInput.validate(); err != nil {
		return nil, err
	}
	if count < 1 || count > maxPreviewDates {
		count = 12
	}
	if input.NbExecutionsMax != nil && *input.NbExecutionsMax < count {
		count = *input.NbExecutionsMax
	}

	tpl := &models.RecurrenceTemplate{}
	input.ScheduleInput.applyTo(tpl)

	dates := make([]models.Date, 0, count)
	next := processors.FirstExecutionFor(tpl)
	for len(dates) < count && !tpl.EndedBefore(next) {
		dates = append(dates, next)
		next = processors.NextExecution(tpl, next)
	}
	return dates, nil
}

func (s *recurrenceServiceImpl) CreateRecurrence(ctx context.Context, userID int64, input RecurrenceInput, generateFirst bool) (*models.RecurrenceTemplate, error) {
	if err := prepareRecurrenceInput(&input); err != nil {
		return nil, err
	}

	tpl := &models.RecurrenceTemplate{UserID: userID, RecurrenceActive: true, AutoValidation: true}
	input.applyTo(tpl)
	if err := s.store.CheckReferences(ctx, tpl); err != nil {
		return nil, referenceValidationError(err)
	}
	tpl.ProchaineExecution = processors.FirstExecutionFor(tpl)

	if err := s.store.Create(ctx, tpl); err != nil {
		return nil, err
	}
	logger.InfoFromContext(ctx, "Recurrence created", "recurrenceID", tpl.ID,
		"frequence", tpl.Frequence, "prochaineExecution", tpl.ProchaineExecution.String())

	// The template is already committed. A failed first occurrence is left
	// to the next batch, which picks the template up at the same cursor.
	if generateFirst && !tpl.EndedBefore(tpl.ProchaineExecution) {
		if _, err := s.generator.Generate(ctx, tpl); err != nil {
			logger.WarnFromContext(ctx, "First occurrence not generated", "recurrenceID", tpl.ID, "error", err)
		}
	}
	s.ClearStatsCache()
	return tpl, nil
}

func prepareRecurrenceInput(input *RecurrenceInput) error {
	input.clean()
	input.ScheduleInput.normalize()
	if err := input.OperationInput.validate(); err != nil {
		return err
	}
	return input.ScheduleInput.validate()
}

// UpdateRecurrence edits a template. Existing occurrences are never touched.
// The cursor is recomputed only when the schedule itself changed, and that
// write fails with ErrConcurrencyConflict if a run moved the cursor meanwhile.
func (s *recurrenceServiceImpl) UpdateRecurrence(ctx context.Context, userID, id int64, input RecurrenceInput) (*models.RecurrenceTemplate, error) {
	tpl, err := s.store.GetUserRecurrence(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := prepareRecurrenceInput(&input); err != nil {
		return nil, err
	}

	scheduleChanged := !input.ScheduleInput.sameSchedule(tpl)
	readNext, readLast := tpl.ProchaineExecution, tpl.DerniereExecution
	input.applyTo(tpl)
	if err := s.store.CheckReferences(ctx, tpl); err != nil {
		return nil, referenceValidationError(err)
	}

	if scheduleChanged {
		tpl.ProchaineExecution = s.ComputeNextExecution(tpl)
		err = s.store.Reschedule(ctx, tpl, readNext, readLast)
	} else {
		err = s.store.Update(ctx, tpl)
	}
	if err != nil {
		return nil, err
	}
	s.ClearStatsCache()
	return s.store.GetUserRecurrence(ctx, userID, id)
}

func (s *recurrenceServiceImpl) PauseRecurrence(ctx context.Context, userID, id int64) error {
	if err := s.store.SetActive(ctx, userID, id, false, nil); err != nil {
		return err
	}
	s.ClearStatsCache()
	return nil
}

// ResumeRecurrence reactivates a template. Dates that fell due while it was
// paused are skipped, so the cursor lands on the first date from today on.
// derniere_execution keeps the last real execution; after a resume the cursor
// is no longer NextExecution(derniere_execution) but a later date of the same
// schedule.
func (s *recurrenceServiceImpl) ResumeRecurrence(ctx context.Context, userID, id int64) (*models.RecurrenceTemplate, error) {
	tpl, err := s.store.GetUserRecurrence(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tpl.RecurrenceActive {
		return tpl, nil
	}

	today := s.today()
	next := tpl.ProchaineExecution
	for i := 0; next.Before(today) && i < maxResumeSkips; i++ {
		next = processors.NextExecution(tpl, next)
	}
	if err := s.store.SetActive(ctx, userID, id, true, &next); err != nil {
		return nil, err
	}
	tpl.RecurrenceActive = true
	tpl.ProchaineExecution = next
	s.ClearStatsCache()
	return tpl, nil
}

func (s *recurrenceServiceImpl) DeleteRecurrence(ctx context.Context, userID, id int64, mode DeleteMode) (*DeleteResult, error) {
	result := &DeleteResult{Mode: mode}
	switch mode {
	case DeleteModeTemplate:
		detached, err := s.store.DeleteTemplateOnly(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		result.DetachedOccurrences = detached
	case DeleteModeAll:
		deleted, accounts, err := s.store.DeleteTemplateWithOccurrences(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		result.DeletedOccurrences = deleted
		for _, accountID := range accounts {
			if _, err := s.balances.RecalculateBalance(ctx, accountID); err != nil {
				logger.WarnFromContext(ctx, "Balance recalculation failed after deleting occurrences",
					"accountID", accountID, "error", err)
			}
		}
	default:
		return nil, ErrInvalidDeleteMode
	}

	logger.InfoFromContext(ctx, "Recurrence deleted", "recurrenceID", id, "mode", mode,
		"deletedOccurrences", result.DeletedOccurrences, "detachedOccurrences", result.DetachedOccurrences)
	s.ClearStatsCache()
	return result, nil
}

// ConvertTransactionToRecurrence builds a template from an existing
// transaction. That transaction counts as the first execution.
func (s *recurrenceServiceImpl) ConvertTransactionToRecurrence(ctx context.Context, userID, transactionID int64, schedule ScheduleInput) (*models.RecurrenceTemplate, error) {
	t, err := s.transactions.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if t.RecurrenceID != nil {
		return nil, ErrAlreadyRecurring
	}

	schedule.normalize()
	if schedule.DateDebut.IsZero() {
		schedule.DateDebut = t.DateTransaction
	}
	if err := schedule.validate(); err != nil {
		return nil, err
	}

	tpl := &models.RecurrenceTemplate{
		UserID:              userID,
		CompteID:            t.CompteID,
		CompteDestinationID: t.CompteDestinationID,
		Libelle:             t.Libelle,
		Description:         t.Description,
		Montant:             t.Montant,
		TypeOperation:       t.TypeOperation,
		CategorieID:         t.CategorieID,
		SousCategorieID:     t.SousCategorieID,
		TiersID:             t.TiersID,
		MoyenPaiement:       t.MoyenPaiement,
		Beneficiaire:        t.Beneficiaire,
		RecurrenceActive:    true,
		AutoValidation:      true,
	}
	schedule.applyTo(tpl)

	if schedule.DateDebut.After(t.DateTransaction) {
		tpl.ProchaineExecution = processors.FirstExecutionFor(tpl)
	} else {
		tpl.NbExecutions = 1
		tpl.DerniereExecution = models.DatePtr(t.DateTransaction)
		tpl.ProchaineExecution = processors.NextExecution(tpl, t.DateTransaction)
	}

	if err := s.store.CreateFromTransaction(ctx, tpl, transactionID); err != nil {
		return nil, err
	}
	logger.InfoFromContext(ctx, "Transaction converted to recurrence", "transactionID", transactionID, "recurrenceID", tpl.ID)
	s.ClearStatsCache()
	return tpl, nil
}

func (s *recurrenceServiceImpl) GetRecurrence(ctx context.Context, userID, id int64) (*RecurrenceDetails, error) {
	tpl, err := s.store.GetUserRecurrence(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	occurrences, err := s.store.ListOccurrences(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RecurrenceDetails{Recurrence: tpl, Occurrences: occurrences}, nil
}

func (s *recurrenceServiceImpl) ListRecurrences(ctx context.Context, userID int64) ([]models.RecurrenceTemplate, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *recurrenceServiceImpl) GetAdminStats(ctx context.Context) (*AdminRecurrenceStats, error) {
	if cached, found := s.statsCache.Get(ckAdminRecurrenceStats); found {
		return cached.(*AdminRecurrenceStats), nil
	}

	today := s.today()
	counts, err := s.store.CountByState(ctx, today)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.store.UpcomingDue(ctx, today, s.upcomingDays)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopByOccurrences(ctx, topRecurrencesLimit)
	if err != nil {
		return nil, err
	}

	stats := &AdminRecurrenceStats{
		RecurrenceStateCounts: counts,
		Upcoming:              upcoming,
		Top:                   top,
		AsOf:                  today,
		GeneratedAt:           s.now().UTC(),
	}
	s.statsCache.Set(ckAdminRecurrenceStats, stats, cache.DefaultExpiration)
	return stats, nil
}

func (s *recurrenceServiceImpl) ClearStatsCache() {
	s.statsCache.Flush()
}
