package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/monbudget/backend/src/models"
)

const recurrenceColumns = `
	id, user_id, compte_id, compte_destination_id, libelle, description, montant, type_operation,
	categorie_id, sous_categorie_id, tiers_id, moyen_paiement, beneficiaire,
	frequence, intervalle, jour_execution, tolerance_weekend,
	date_debut, date_fin, nb_executions_max, nb_executions,
	prochaine_execution, derniere_execution, recurrence_active, auto_validation,
	created_at, updated_at`

func scanRecurrence(s rowScanner) (*models.RecurrenceTemplate, error) {
	var r models.RecurrenceTemplate
	var description, moyenPaiement, beneficiaire sql.NullString

	err := s.Scan(
		&r.ID, &r.UserID, &r.CompteID, &r.CompteDestinationID, &r.Libelle, &description, &r.Montant, &r.TypeOperation,
		&r.CategorieID, &r.SousCategorieID, &r.TiersID, &moyenPaiement, &beneficiaire,
		&r.Frequence, &r.Intervalle, &r.JourExecution, &r.ToleranceWeekend,
		&r.DateDebut, &r.DateFin, &r.NbExecutionsMax, &r.NbExecutions,
		&r.ProchaineExecution, &r.DerniereExecution, &r.RecurrenceActive, &r.AutoValidation,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	r.MoyenPaiement = moyenPaiement.String
	r.Beneficiaire = beneficiaire.String
	return &r, nil
}

func scanRecurrences(rows *sql.Rows) ([]models.RecurrenceTemplate, error) {
	defer rows.Close()
	out := []models.RecurrenceTemplate{}
	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func InsertRecurrence(ctx context.Context, q DBTX, r *models.RecurrenceTemplate) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO recurrences (
			user_id, compte_id, compte_destination_id, libelle, description, montant, type_operation,
			categorie_id, sous_categorie_id, tiers_id, moyen_paiement, beneficiaire,
			frequence, intervalle, jour_execution, tolerance_weekend,
			date_debut, date_fin, nb_executions_max, nb_executions,
			prochaine_execution, derniere_execution, recurrence_active, auto_validation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.CompteID, r.CompteDestinationID, r.Libelle, nullableString(r.Description), r.Montant, r.TypeOperation,
		r.CategorieID, r.SousCategorieID, r.TiersID, nullableString(r.MoyenPaiement), nullableString(r.Beneficiaire),
		r.Frequence, r.Intervalle, r.JourExecution, r.ToleranceWeekend,
		r.DateDebut, r.DateFin, r.NbExecutionsMax, r.NbExecutions,
		r.ProchaineExecution, r.DerniereExecution, r.RecurrenceActive, r.AutoValidation,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

const recurrenceDetailAssignments = `
			compte_id = ?, compte_destination_id = ?, libelle = ?, description = ?, montant = ?, type_operation = ?,
			categorie_id = ?, sous_categorie_id = ?, tiers_id = ?, moyen_paiement = ?, beneficiaire = ?,
			frequence = ?, intervalle = ?, jour_execution = ?, tolerance_weekend = ?,
			date_debut = ?, date_fin = ?, nb_executions_max = ?, auto_validation = ?,
			updated_at = CURRENT_TIMESTAMP`

func recurrenceDetailArgs(r *models.RecurrenceTemplate) []any {
	return []any{
		r.CompteID, r.CompteDestinationID, r.Libelle, nullableString(r.Description), r.Montant, r.TypeOperation,
		r.CategorieID, r.SousCategorieID, r.TiersID, nullableString(r.MoyenPaiement), nullableString(r.Beneficiaire),
		r.Frequence, r.Intervalle, r.JourExecution, r.ToleranceWeekend,
		r.DateDebut, r.DateFin, r.NbExecutionsMax, r.AutoValidation,
	}
}

// UpdateRecurrence writes the editable fields. The cursor, the counters and
// recurrence_active are left alone. It returns false when no row matched id
// and user_id.
func UpdateRecurrence(ctx context.Context, q DBTX, r *models.RecurrenceTemplate) (bool, error) {
	args := append(recurrenceDetailArgs(r), r.ID, r.UserID)
	res, err := q.ExecContext(ctx, `
		UPDATE recurrences SET`+recurrenceDetailAssignments+`
		WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RescheduleRecurrence writes the editable fields and r.ProchaineExecution,
// but only while the stored cursor still equals expectedNext and
// derniere_execution still equals expectedLast. It returns false otherwise.
func RescheduleRecurrence(ctx context.Context, q DBTX, r *models.RecurrenceTemplate, expectedNext models.Date, expectedLast *models.Date) (bool, error) {
	last := ""
	if expectedLast != nil {
		last = expectedLast.String()
	}
	args := append(recurrenceDetailArgs(r), r.ProchaineExecution, r.ID, r.UserID, expectedNext, last)
	res, err := q.ExecContext(ctx, `
		UPDATE recurrences SET`+recurrenceDetailAssignments+`,
			prochaine_execution = ?
		WHERE id = ? AND user_id = ?
		  AND prochaine_execution = ?
		  AND COALESCE(derniere_execution, '') = ?`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetRecurrenceByID loads a template regardless of owner.
func GetRecurrenceByID(ctx context.Context, q DBTX, id int64) (*models.RecurrenceTemplate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recurrenceColumns+` FROM recurrences WHERE id = ?`, id)
	return scanRecurrence(row)
}

// GetUserRecurrenceByID loads a template owned by userID.
func GetUserRecurrenceByID(ctx context.Context, q DBTX, userID, id int64) (*models.RecurrenceTemplate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recurrenceColumns+` FROM recurrences WHERE id = ? AND user_id = ?`, id, userID)
	return scanRecurrence(row)
}

func ListRecurrencesByUser(ctx context.Context, q DBTX, userID int64) ([]models.RecurrenceTemplate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+recurrenceColumns+`
		FROM recurrences WHERE user_id = ?
		ORDER BY recurrence_active DESC, prochaine_execution ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanRecurrences(rows)
}

// FindDueRecurrences returns every active template, across all users, due on or before asOf.
func FindDueRecurrences(ctx context.Context, q DBTX, asOf models.Date) ([]models.RecurrenceTemplate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+recurrenceColumns+`
		FROM recurrences
		WHERE recurrence_active = 1
		  AND prochaine_execution <= ?
		  AND (date_fin IS NULL OR date_fin >= ?)
		  AND (nb_executions_max IS NULL OR nb_executions < nb_executions_max)
		ORDER BY prochaine_execution ASC, id ASC`, asOf, asOf)
	if err != nil {
		return nil, err
	}
	return scanRecurrences(rows)
}

// ClaimRecurrence advances the cursor only if it still equals expected and
// the template may still run. It reports whether this caller won the claim.
func ClaimRecurrence(ctx context.Context, q DBTX, id int64, expected, executed, next models.Date) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE recurrences SET
			nb_executions = nb_executions + 1,
			derniere_execution = ?,
			prochaine_execution = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND prochaine_execution = ?
		  AND recurrence_active = 1
		  AND (nb_executions_max IS NULL OR nb_executions < nb_executions_max)
		  AND (date_fin IS NULL OR date_fin >= ?)`,
		executed, next, id, expected, executed,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordRecurrenceExecution increments nb_executions and moves both cursor dates.
func RecordRecurrenceExecution(ctx context.Context, q DBTX, id int64, executed, next models.Date) error {
	res, err := q.ExecContext(ctx, `
		UPDATE recurrences SET
			nb_executions = nb_executions + 1,
			derniere_execution = ?,
			prochaine_execution = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, executed, next, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recurrence %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SetRecurrenceActive pauses or resumes a template. When resuming, next
// replaces prochaine_execution if non-nil.
func SetRecurrenceActive(ctx context.Context, q DBTX, userID, id int64, active bool, next *models.Date) (bool, error) {
	var res sql.Result
	var err error
	if next != nil {
		res, err = q.ExecContext(ctx, `
			UPDATE recurrences SET recurrence_active = ?, prochaine_execution = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND user_id = ?`, active, *next, id, userID)
	} else {
		res, err = q.ExecContext(ctx, `
			UPDATE recurrences SET recurrence_active = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND user_id = ?`, active, id, userID)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func DeleteRecurrence(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM recurrences WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountRecurrencesByState counts active, paused and overdue templates. Overdue
// uses the same filter as FindDueRecurrences with a cursor strictly before asOf.
func CountRecurrencesByState(ctx context.Context, q DBTX, asOf models.Date) (models.RecurrenceStateCounts, error) {
	var c models.RecurrenceStateCounts
	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN recurrence_active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN recurrence_active = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN recurrence_active = 1
				AND prochaine_execution < ?
				AND (date_fin IS NULL OR date_fin >= ?)
				AND (nb_executions_max IS NULL OR nb_executions < nb_executions_max)
				THEN 1 ELSE 0 END), 0)
		FROM recurrences`, asOf, asOf).Scan(&c.Active, &c.Inactive, &c.Overdue)
	return c, err
}

// UpcomingRecurrences lists active templates due within [from, to].
func UpcomingRecurrences(ctx context.Context, q DBTX, from, to models.Date) ([]models.UpcomingRecurrence, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, libelle, montant, type_operation, prochaine_execution
		FROM recurrences
		WHERE recurrence_active = 1
		  AND prochaine_execution BETWEEN ? AND ?
		  AND (date_fin IS NULL OR date_fin >= prochaine_execution)
		  AND (nb_executions_max IS NULL OR nb_executions < nb_executions_max)
		ORDER BY prochaine_execution ASC, id ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UpcomingRecurrence{}
	for rows.Next() {
		var u models.UpcomingRecurrence
		if err := rows.Scan(&u.ID, &u.UserID, &u.Libelle, &u.Montant, &u.TypeOperation, &u.ProchaineExecution); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// TopRecurrencesByOccurrences ranks templates by linked transaction count.
func TopRecurrencesByOccurrences(ctx context.Context, q DBTX, limit int) ([]models.RecurrenceUsage, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.libelle, COUNT(t.id) AS occurrences
		FROM recurrences r
		LEFT JOIN transactions t ON t.recurrence_id = r.id
		GROUP BY r.id, r.user_id, r.libelle
		ORDER BY occurrences DESC, r.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RecurrenceUsage{}
	for rows.Next() {
		var u models.RecurrenceUsage
		if err := rows.Scan(&u.ID, &u.UserID, &u.Libelle, &u.OccurrenceCount); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
