// backend/src/services/account_service.go
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/security/validation"
)

// AccountService manages comptes and owns their balance computation.
type AccountService interface {
	BalanceRecalculator
	CreateAccount(ctx context.Context, userID int64, nom string, soldeInitial decimal.Decimal) (*models.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, id int64) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, id int64) error
}

type accountServiceImpl struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) AccountService {
	return &accountServiceImpl{db: db}
}

func (s *accountServiceImpl) CreateAccount(ctx context.Context, userID int64, nom string, soldeInitial decimal.Decimal) (*models.Account, error) {
	nom = validation.CleanUserText(nom)
	if err := validation.ValidateRequiredText(nom, validation.MaxNameLength, "nom"); err != nil {
		return nil, err
	}
	a := &models.Account{UserID: userID, Nom: nom, SoldeInitial: soldeInitial}
	if err := model.CreateAccount(ctx, s.db, a); err != nil {
		return nil, storageErr("create account", err)
	}
	logger.InfoFromContext(ctx, "Account created", "accountID", a.ID)
	return a, nil
}

func (s *accountServiceImpl) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	list, err := model.ListAccountsByUser(ctx, s.db, userID)
	return list, storageErr("list accounts", err)
}

func (s *accountServiceImpl) GetAccount(ctx context.Context, userID, id int64) (*models.Account, error) {
	a, err := model.GetAccountByID(ctx, s.db, userID, id)
	return a, notFoundOr(err, ErrAccountNotFound, "get account")
}

// DeleteAccount removes the account and its transactions. Recurrence templates
// pointing at it are kept and will report a ReferenceError on their next run.
func (s *accountServiceImpl) DeleteAccount(ctx context.Context, userID, id int64) error {
	ok, err := model.DeleteAccount(ctx, s.db, userID, id)
	if err != nil {
		return storageErr("delete account", err)
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

func (s *accountServiceImpl) RecalculateBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	balance, err := model.RecalculateAccountBalance(ctx, s.db, accountID)
	if err != nil {
		return decimal.Zero, notFoundOr(err, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound), "recalculate balance")
	}
	return balance, nil
}
