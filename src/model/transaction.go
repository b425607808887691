package model

import (
	"context"
	"database/sql"

	"github.com/username/monbudget/backend/src/models"
)

const transactionColumns = `
	id, user_id, compte_id, compte_destination_id, recurrence_id, date_transaction,
	libelle, description, montant, type_operation, categorie_id, sous_categorie_id, tiers_id,
	moyen_paiement, beneficiaire, validee, created_at`

func scanTransaction(s rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var description, moyenPaiement, beneficiaire sql.NullString
	err := s.Scan(
		&t.ID, &t.UserID, &t.CompteID, &t.CompteDestinationID, &t.RecurrenceID, &t.DateTransaction,
		&t.Libelle, &description, &t.Montant, &t.TypeOperation, &t.CategorieID, &t.SousCategorieID, &t.TiersID,
		&moyenPaiement, &beneficiaire, &t.Validee, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.MoyenPaiement = moyenPaiement.String
	t.Beneficiaire = beneficiaire.String
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func InsertTransaction(ctx context.Context, q DBTX, t *models.Transaction) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			user_id, compte_id, compte_destination_id, recurrence_id, date_transaction,
			libelle, description, montant, type_operation, categorie_id, sous_categorie_id, tiers_id,
			moyen_paiement, beneficiaire, validee
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.CompteID, t.CompteDestinationID, t.RecurrenceID, t.DateTransaction,
		t.Libelle, nullableString(t.Description), t.Montant, t.TypeOperation, t.CategorieID, t.SousCategorieID, t.TiersID,
		nullableString(t.MoyenPaiement), nullableString(t.Beneficiaire), t.Validee,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func GetTransactionByID(ctx context.Context, q DBTX, userID, id int64) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

// ListTransactionsByUser returns the most recent transactions first. limit <= 0 means no limit.
func ListTransactionsByUser(ctx context.Context, q DBTX, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = ?
		ORDER BY date_transaction DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// ListTransactionsByRecurrence returns the occurrences linked to a template by recurrence_id.
func ListTransactionsByRecurrence(ctx context.Context, q DBTX, recurrenceID int64) ([]models.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE recurrence_id = ?
		ORDER BY date_transaction ASC, id ASC`, recurrenceID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// LinkTransactionToRecurrence sets recurrence_id on a transaction owned by userID.
func LinkTransactionToRecurrence(ctx context.Context, q DBTX, userID, transactionID, recurrenceID int64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions SET recurrence_id = ?
		WHERE id = ? AND user_id = ? AND recurrence_id IS NULL`, recurrenceID, transactionID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DetachTransactionsFromRecurrence nulls recurrence_id on every occurrence of a template.
func DetachTransactionsFromRecurrence(ctx context.Context, q DBTX, recurrenceID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `UPDATE transactions SET recurrence_id = NULL WHERE recurrence_id = ?`, recurrenceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTransactionsByRecurrence removes every occurrence of a template and
// returns the distinct accounts they touched, for balance recalculation.
func DeleteTransactionsByRecurrence(ctx context.Context, q DBTX, recurrenceID int64) (int64, []int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT compte_id FROM transactions WHERE recurrence_id = ?
		UNION
		SELECT DISTINCT compte_destination_id FROM transactions
		WHERE recurrence_id = ? AND compte_destination_id IS NOT NULL`, recurrenceID, recurrenceID)
	if err != nil {
		return 0, nil, err
	}
	var accounts []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, err
		}
		accounts = append(accounts, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, nil, err
	}
	rows.Close()

	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE recurrence_id = ?`, recurrenceID)
	if err != nil {
		return 0, nil, err
	}
	n, err := res.RowsAffected()
	return n, accounts, err
}

// CountTransactionsByRecurrence counts occurrences linked to a template.
func CountTransactionsByRecurrence(ctx context.Context, q DBTX, recurrenceID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE recurrence_id = ?`, recurrenceID).Scan(&n)
	return n, err
}
