// backend/src/services/reference_service.go
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/security/validation"
)

// ReferenceService manages categories, sub-categories and tiers.
type ReferenceService interface {
	CreateCategory(ctx context.Context, userID int64, nom, kind string) (*models.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]models.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error
	CreateSubCategory(ctx context.Context, userID, categoryID int64, nom string) (*models.SubCategory, error)
	ListSubCategories(ctx context.Context, userID int64) ([]models.SubCategory, error)
	CreateTiers(ctx context.Context, userID int64, nom string) (*models.Tiers, error)
	ListTiers(ctx context.Context, userID int64) ([]models.Tiers, error)
}

type referenceServiceImpl struct {
	db *sql.DB
}

func NewReferenceService(db *sql.DB) ReferenceService {
	return &referenceServiceImpl{db: db}
}

func cleanName(nom string) (string, error) {
	nom = validation.CleanUserText(nom)
	return nom, validation.ValidateRequiredText(nom, validation.MaxNameLength, "nom")
}

func (s *referenceServiceImpl) CreateCategory(ctx context.Context, userID int64, nom, kind string) (*models.Category, error) {
	nom, err := cleanName(nom)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "", "depense", "revenu":
	default:
		return nil, fmt.Errorf("%w: type must be 'depense' or 'revenu'", validation.ErrValidationFailed)
	}
	c := &models.Category{UserID: userID, Nom: nom, Type: kind}
	if err := model.CreateCategory(ctx, s.db, c); err != nil {
		return nil, storageErr("create category", err)
	}
	return c, nil
}

func (s *referenceServiceImpl) ListCategories(ctx context.Context, userID int64) ([]models.Category, error) {
	list, err := model.ListCategoriesByUser(ctx, s.db, userID)
	return list, storageErr("list categories", err)
}

func (s *referenceServiceImpl) DeleteCategory(ctx context.Context, userID, id int64) error {
	ok, err := model.DeleteCategory(ctx, s.db, userID, id)
	if err != nil {
		return storageErr("delete category", err)
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *referenceServiceImpl) CreateSubCategory(ctx context.Context, userID, categoryID int64, nom string) (*models.SubCategory, error) {
	nom, err := cleanName(nom)
	if err != nil {
		return nil, err
	}
	ok, err := model.CategoryExists(ctx, s.db, userID, categoryID)
	if err != nil {
		return nil, storageErr("check category", err)
	}
	if !ok {
		return nil, ErrCategoryNotFound
	}
	sc := &models.SubCategory{CategorieID: categoryID, Nom: nom}
	if err := model.CreateSubCategory(ctx, s.db, sc); err != nil {
		return nil, storageErr("create sub-category", err)
	}
	return sc, nil
}

func (s *referenceServiceImpl) ListSubCategories(ctx context.Context, userID int64) ([]models.SubCategory, error) {
	list, err := model.ListSubCategoriesByUser(ctx, s.db, userID)
	return list, storageErr("list sub-categories", err)
}

func (s *referenceServiceImpl) CreateTiers(ctx context.Context, userID int64, nom string) (*models.Tiers, error) {
	nom, err := cleanName(nom)
	if err != nil {
		return nil, err
	}
	t := &models.Tiers{UserID: userID, Nom: nom}
	if err := model.CreateTiers(ctx, s.db, t); err != nil {
		return nil, storageErr("create tiers", err)
	}
	return t, nil
}

func (s *referenceServiceImpl) ListTiers(ctx context.Context, userID int64) ([]models.Tiers, error) {
	list, err := model.ListTiersByUser(ctx, s.db, userID)
	return list, storageErr("list tiers", err)
}
