// backend/src/services/recurrence_store.go
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/models"
)

type sqliteRecurrenceStore struct {
	db *sql.DB
}

func NewRecurrenceStore(db *sql.DB) RecurrenceStore {
	return &sqliteRecurrenceStore{db: db}
}

func (s *sqliteRecurrenceStore) Create(ctx context.Context, tpl *models.RecurrenceTemplate) error {
	return storageErr("create recurrence", model.InsertRecurrence(ctx, s.db, tpl))
}

func (s *sqliteRecurrenceStore) Update(ctx context.Context, tpl *models.RecurrenceTemplate) error {
	ok, err := model.UpdateRecurrence(ctx, s.db, tpl)
	if err != nil {
		return storageErr("update recurrence", err)
	}
	if !ok {
		return ErrRecurrenceNotFound
	}
	return nil
}

// Reschedule writes tpl with its new cursor. It returns ErrConcurrencyConflict
// when the stored cursor moved away from expectedNext/expectedLast since tpl was read.
func (s *sqliteRecurrenceStore) Reschedule(ctx context.Context, tpl *models.RecurrenceTemplate, expectedNext models.Date, expectedLast *models.Date) error {
	ok, err := model.RescheduleRecurrence(ctx, s.db, tpl, expectedNext, expectedLast)
	if err != nil {
		return storageErr("reschedule recurrence", err)
	}
	if ok {
		return nil
	}
	if _, err := s.GetUserRecurrence(ctx, tpl.UserID, tpl.ID); err != nil {
		return err
	}
	return ErrConcurrencyConflict
}

func (s *sqliteRecurrenceStore) GetByID(ctx context.Context, id int64) (*models.RecurrenceTemplate, error) {
	tpl, err := model.GetRecurrenceByID(ctx, s.db, id)
	return tpl, notFoundOr(err, ErrRecurrenceNotFound, "get recurrence")
}

func (s *sqliteRecurrenceStore) GetUserRecurrence(ctx context.Context, userID, id int64) (*models.RecurrenceTemplate, error) {
	tpl, err := model.GetUserRecurrenceByID(ctx, s.db, userID, id)
	return tpl, notFoundOr(err, ErrRecurrenceNotFound, "get recurrence")
}

func (s *sqliteRecurrenceStore) ListByUser(ctx context.Context, userID int64) ([]models.RecurrenceTemplate, error) {
	list, err := model.ListRecurrencesByUser(ctx, s.db, userID)
	return list, storageErr("list recurrences", err)
}

func (s *sqliteRecurrenceStore) SetActive(ctx context.Context, userID, id int64, active bool, next *models.Date) error {
	ok, err := model.SetRecurrenceActive(ctx, s.db, userID, id, active, next)
	if err != nil {
		return storageErr("set recurrence active", err)
	}
	if !ok {
		return ErrRecurrenceNotFound
	}
	return nil
}

func (s *sqliteRecurrenceStore) FindDue(ctx context.Context, asOf models.Date) ([]models.RecurrenceTemplate, error) {
	due, err := model.FindDueRecurrences(ctx, s.db, asOf)
	return due, storageErr("find due recurrences", err)
}

func (s *sqliteRecurrenceStore) ClaimAndGenerate(ctx context.Context, tpl *models.RecurrenceTemplate, occ *models.Transaction, next models.Date) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin generation", err)
	}
	defer tx.Rollback()

	if err := checkReferences(ctx, tx, tpl.ID, templateRefs(tpl)); err != nil {
		return 0, err
	}

	claimed, err := model.ClaimRecurrence(ctx, tx, tpl.ID, tpl.ProchaineExecution, occ.DateTransaction, next)
	if err != nil {
		return 0, storageErr("claim recurrence", err)
	}
	if !claimed {
		return 0, ErrConcurrencyConflict
	}

	if err := model.InsertTransaction(ctx, tx, occ); err != nil {
		return 0, storageErr("insert occurrence", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit generation", err)
	}
	return occ.ID, nil
}

// referenceSet is the list of rows an operation points at.
type referenceSet struct {
	UserID              int64
	CompteID            int64
	CompteDestinationID *int64
	CategorieID         *int64
	SousCategorieID     *int64
	TiersID             *int64
}

func templateRefs(tpl *models.RecurrenceTemplate) referenceSet {
	return referenceSet{
		UserID:              tpl.UserID,
		CompteID:            tpl.CompteID,
		CompteDestinationID: tpl.CompteDestinationID,
		CategorieID:         tpl.CategorieID,
		SousCategorieID:     tpl.SousCategorieID,
		TiersID:             tpl.TiersID,
	}
}

func transactionRefs(t *models.Transaction) referenceSet {
	return referenceSet{
		UserID:              t.UserID,
		CompteID:            t.CompteID,
		CompteDestinationID: t.CompteDestinationID,
		CategorieID:         t.CategorieID,
		SousCategorieID:     t.SousCategorieID,
		TiersID:             t.TiersID,
	}
}

// checkReferences makes sure every account, category and tiers in refs still
// exists for its owner.
func checkReferences(ctx context.Context, q model.DBTX, recurrenceID int64, refs referenceSet) error {
	type ref struct {
		entity string
		id     *int64
		exists func(context.Context, model.DBTX, int64, int64) (bool, error)
	}
	compteID := refs.CompteID
	checks := []ref{
		{"compte", &compteID, model.AccountExists},
		{"compte_destination", refs.CompteDestinationID, model.AccountExists},
		{"categorie", refs.CategorieID, model.CategoryExists},
		{"sous_categorie", refs.SousCategorieID, model.SubCategoryExists},
		{"tiers", refs.TiersID, model.TiersExists},
	}
	for _, r := range checks {
		if r.id == nil {
			continue
		}
		ok, err := r.exists(ctx, q, refs.UserID, *r.id)
		if err != nil {
			return storageErr("check "+r.entity, err)
		}
		if !ok {
			return &ReferenceError{RecurrenceID: recurrenceID, Entity: r.entity, EntityID: *r.id}
		}
	}
	return nil
}

func (s *sqliteRecurrenceStore) CheckReferences(ctx context.Context, tpl *models.RecurrenceTemplate) error {
	return checkReferences(ctx, s.db, tpl.ID, templateRefs(tpl))
}

func (s *sqliteRecurrenceStore) RecordExecution(ctx context.Context, id int64, executed, next models.Date) error {
	err := model.RecordRecurrenceExecution(ctx, s.db, id, executed, next)
	return notFoundOr(err, ErrRecurrenceNotFound, "record execution")
}

func (s *sqliteRecurrenceStore) CreateFromTransaction(ctx context.Context, tpl *models.RecurrenceTemplate, transactionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin conversion", err)
	}
	defer tx.Rollback()

	if err := model.InsertRecurrence(ctx, tx, tpl); err != nil {
		return storageErr("create recurrence", err)
	}
	linked, err := model.LinkTransactionToRecurrence(ctx, tx, tpl.UserID, transactionID, tpl.ID)
	if err != nil {
		return storageErr("link transaction", err)
	}
	if !linked {
		return ErrAlreadyRecurring
	}
	return storageErr("commit conversion", tx.Commit())
}

func (s *sqliteRecurrenceStore) DeleteTemplateOnly(ctx context.Context, userID, id int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin delete", err)
	}
	defer tx.Rollback()

	if _, err := model.GetUserRecurrenceByID(ctx, tx, userID, id); err != nil {
		return 0, notFoundOr(err, ErrRecurrenceNotFound, "get recurrence")
	}
	detached, err := model.DetachTransactionsFromRecurrence(ctx, tx, id)
	if err != nil {
		return 0, storageErr("detach occurrences", err)
	}
	if _, err := model.DeleteRecurrence(ctx, tx, userID, id); err != nil {
		return 0, storageErr("delete recurrence", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit delete", err)
	}
	return detached, nil
}

func (s *sqliteRecurrenceStore) DeleteTemplateWithOccurrences(ctx context.Context, userID, id int64) (int64, []int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, storageErr("begin delete", err)
	}
	defer tx.Rollback()

	if _, err := model.GetUserRecurrenceByID(ctx, tx, userID, id); err != nil {
		return 0, nil, notFoundOr(err, ErrRecurrenceNotFound, "get recurrence")
	}
	deleted, accounts, err := model.DeleteTransactionsByRecurrence(ctx, tx, id)
	if err != nil {
		return 0, nil, storageErr("delete occurrences", err)
	}
	if _, err := model.DeleteRecurrence(ctx, tx, userID, id); err != nil {
		return 0, nil, storageErr("delete recurrence", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, storageErr("commit delete", err)
	}
	return deleted, accounts, nil
}

func (s *sqliteRecurrenceStore) ListOccurrences(ctx context.Context, id int64) ([]models.Transaction, error) {
	list, err := model.ListTransactionsByRecurrence(ctx, s.db, id)
	return list, storageErr("list occurrences", err)
}

func (s *sqliteRecurrenceStore) CountByState(ctx context.Context, asOf models.Date) (models.RecurrenceStateCounts, error) {
	counts, err := model.CountRecurrencesByState(ctx, s.db, asOf)
	return counts, storageErr("count recurrences", err)
}

func (s *sqliteRecurrenceStore) UpcomingDue(ctx context.Context, from models.Date, days int) ([]models.UpcomingRecurrence, error) {
	list, err := model.UpcomingRecurrences(ctx, s.db, from, from.AddDays(days))
	return list, storageErr("upcoming recurrences", err)
}

func (s *sqliteRecurrenceStore) TopByOccurrences(ctx context.Context, limit int) ([]models.RecurrenceUsage, error) {
	list, err := model.TopRecurrencesByOccurrences(ctx, s.db, limit)
	return list, storageErr("top recurrences", err)
}

// notFoundOr maps sql.ErrNoRows to notFound and wraps anything else as a StorageError.
func notFoundOr(err, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storageErr(op, err)
}
