package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/monbudget/backend/src/models"
)

func CreateAccount(ctx context.Context, q DBTX, a *models.Account) error {
	a.Solde = a.SoldeInitial
	res, err := q.ExecContext(ctx, `
		INSERT INTO comptes (user_id, nom, solde_initial, solde)
		VALUES (?, ?, ?, ?)`,
		a.UserID, a.Nom, a.SoldeInitial, a.Solde,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func scanAccount(s rowScanner) (*models.Account, error) {
	var a models.Account
	if err := s.Scan(&a.ID, &a.UserID, &a.Nom, &a.SoldeInitial, &a.Solde, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByID returns sql.ErrNoRows when the account does not exist or belongs to someone else.
func GetAccountByID(ctx context.Context, q DBTX, userID, id int64) (*models.Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, nom, solde_initial, solde, created_at, updated_at
		FROM comptes WHERE id = ? AND user_id = ?`, id, userID)
	return scanAccount(row)
}

func ListAccountsByUser(ctx context.Context, q DBTX, userID int64) ([]models.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, nom, solde_initial, solde, created_at, updated_at
		FROM comptes WHERE user_id = ? ORDER BY nom`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// AccountExists checks that the account exists and is owned by userID.
func AccountExists(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	return exists(ctx, q, `SELECT 1 FROM comptes WHERE id = ? AND user_id = ?`, id, userID)
}

func DeleteAccount(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM comptes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecalculateAccountBalance recomputes solde from solde_initial and every
// transaction touching the account, stores it and returns it.
func RecalculateAccountBalance(ctx context.Context, q DBTX, accountID int64) (decimal.Decimal, error) {
	var initial decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT solde_initial FROM comptes WHERE id = ?`, accountID).Scan(&initial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("account %d: %w", accountID, sql.ErrNoRows)
		}
		return decimal.Zero, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT compte_id, compte_destination_id, montant, type_operation
		FROM transactions
		WHERE compte_id = ? OR compte_destination_id = ?`, accountID, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := initial
	for rows.Next() {
		var compteID int64
		var destID sql.NullInt64
		var montant decimal.Decimal
		var op models.TypeOperation
		if err := rows.Scan(&compteID, &destID, &montant, &op); err != nil {
			rows.Close()
			return decimal.Zero, err
		}
		balance = balance.Add(balanceEffect(accountID, compteID, destID, montant, op))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return decimal.Zero, err
	}
	rows.Close()

	_, err = q.ExecContext(ctx, `UPDATE comptes SET solde = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, balance, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func balanceEffect(accountID, compteID int64, destID sql.NullInt64, montant decimal.Decimal, op models.TypeOperation) decimal.Decimal {
	switch op {
	case models.OperationCredit:
		if compteID == accountID {
			return montant
		}
	case models.OperationDebit:
		if compteID == accountID {
			return montant.Neg()
		}
	case models.OperationTransfer:
		effect := decimal.Zero
		if compteID == accountID {
			effect = effect.Sub(montant)
		}
		if destID.Valid && destID.Int64 == accountID {
			effect = effect.Add(montant)
		}
		return effect
	}
	return decimal.Zero
}

func exists(ctx context.Context, q DBTX, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
