package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a bank account (compte).
type Account struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Nom          string          `json:"nom"`
	SoldeInitial decimal.Decimal `json:"solde_initial"`
	Solde        decimal.Decimal `json:"solde"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Category struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Nom    string `json:"nom"`
	Type   string `json:"type"` // "depense" or "revenu"
}

type SubCategory struct {
	ID          int64  `json:"id"`
	CategorieID int64  `json:"categorie_id"`
	Nom         string `json:"nom"`
}

// Tiers is a counterparty (payee or payer).
type Tiers struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Nom    string `json:"nom"`
}
