package model

import (
	"context"

	"github.com/username/monbudget/backend/src/models"
)

func CreateCategory(ctx context.Context, q DBTX, c *models.Category) error {
	if c.Type == "" {
		c.Type = "depense"
	}
	res, err := q.ExecContext(ctx, `INSERT INTO categories (user_id, nom, type) VALUES (?, ?, ?)`, c.UserID, c.Nom, c.Type)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func ListCategoriesByUser(ctx context.Context, q DBTX, userID int64) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, user_id, nom, type FROM categories WHERE user_id = ? ORDER BY nom`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Nom, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func CategoryExists(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	return exists(ctx, q, `SELECT 1 FROM categories WHERE id = ? AND user_id = ?`, id, userID)
}

func DeleteCategory(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func CreateSubCategory(ctx context.Context, q DBTX, s *models.SubCategory) error {
	res, err := q.ExecContext(ctx, `INSERT INTO sous_categories (categorie_id, nom) VALUES (?, ?)`, s.CategorieID, s.Nom)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

func ListSubCategoriesByUser(ctx context.Context, q DBTX, userID int64) ([]models.SubCategory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT sc.id, sc.categorie_id, sc.nom
		FROM sous_categories sc
		JOIN categories c ON c.id = sc.categorie_id
		WHERE c.user_id = ?
		ORDER BY sc.nom`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SubCategory{}
	for rows.Next() {
		var s models.SubCategory
		if err := rows.Scan(&s.ID, &s.CategorieID, &s.Nom); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SubCategoryExists checks the sub-category through its parent category's owner.
func SubCategoryExists(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	return exists(ctx, q, `
		SELECT 1 FROM sous_categories sc
		JOIN categories c ON c.id = sc.categorie_id
		WHERE sc.id = ? AND c.user_id = ?`, id, userID)
}

func CreateTiers(ctx context.Context, q DBTX, t *models.Tiers) error {
	res, err := q.ExecContext(ctx, `INSERT INTO tiers (user_id, nom) VALUES (?, ?)`, t.UserID, t.Nom)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func ListTiersByUser(ctx context.Context, q DBTX, userID int64) ([]models.Tiers, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, user_id, nom FROM tiers WHERE user_id = ? ORDER BY nom`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Tiers{}
	for rows.Next() {
		var t models.Tiers
		if err := rows.Scan(&t.ID, &t.UserID, &t.Nom); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func TiersExists(ctx context.Context, q DBTX, userID, id int64) (bool, error) {
	return exists(ctx, q, `SELECT 1 FROM tiers WHERE id = ? AND user_id = ?`, id, userID)
}
