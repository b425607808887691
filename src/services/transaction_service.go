// backend/src/services/transaction_service.go
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/security/validation"
)

// TransactionService handles manually entered transactions.
type TransactionService interface {
	CreateTransaction(ctx context.Context, userID int64, input TransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
}

type transactionServiceImpl struct {
	db       *sql.DB
	balances BalanceRecalculator
}

func NewTransactionService(db *sql.DB, balances BalanceRecalculator) TransactionService {
	return &transactionServiceImpl{db: db, balances: balances}
}

func (s *transactionServiceImpl) CreateTransaction(ctx context.Context, userID int64, input TransactionInput) (*models.Transaction, error) {
	input.clean()
	if err := input.OperationInput.validate(); err != nil {
		return nil, err
	}
	if input.DateTransaction.IsZero() {
		return nil, fmt.Errorf("%w: date_transaction is required", validation.ErrValidationFailed)
	}

	t := &models.Transaction{
		UserID:              userID,
		CompteID:            input.CompteID,
		CompteDestinationID: input.CompteDestinationID,
		DateTransaction:     input.DateTransaction,
		Libelle:             input.Libelle,
		Description:         input.Description,
		Montant:             input.Montant,
		TypeOperation:       input.TypeOperation,
		CategorieID:         input.CategorieID,
		SousCategorieID:     input.SousCategorieID,
		TiersID:             input.TiersID,
		MoyenPaiement:       input.MoyenPaiement,
		Beneficiaire:        input.Beneficiaire,
		Validee:             input.Validee,
	}
	if err := checkReferences(ctx, s.db, 0, transactionRefs(t)); err != nil {
		return nil, referenceValidationError(err)
	}
	if err := model.InsertTransaction(ctx, s.db, t); err != nil {
		return nil, storageErr("insert transaction", err)
	}

	for _, accountID := range t.AccountIDs() {
		if _, err := s.balances.RecalculateBalance(ctx, accountID); err != nil {
			logger.WarnFromContext(ctx, "Balance recalculation failed after transaction", "accountID", accountID, "error", err)
		}
	}
	return t, nil
}

func (s *transactionServiceImpl) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := model.GetTransactionByID(ctx, s.db, userID, id)
	return t, notFoundOr(err, ErrTransactionNotFound, "get transaction")
}

func (s *transactionServiceImpl) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	list, err := model.ListTransactionsByUser(ctx, s.db, userID, limit)
	return list, storageErr("list transactions", err)
}
