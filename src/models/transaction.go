package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a concrete financial movement, entered manually or
// generated from a recurrence template (RecurrenceID set).
type Transaction struct {
	ID                  int64  `json:"id"`
	UserID              int64  `json:"user_id"`
	CompteID            int64  `json:"compte_id"`
	CompteDestinationID *int64 `json:"compte_destination_id"`
	RecurrenceID        *int64 `json:"recurrence_id"`

	DateTransaction Date            `json:"date_transaction"`
	Libelle         string          `json:"libelle"`
	Description     string          `json:"description"`
	Montant         decimal.Decimal `json:"montant"`
	TypeOperation   TypeOperation   `json:"type_operation"`
	CategorieID     *int64          `json:"categorie_id"`
	SousCategorieID *int64          `json:"sous_categorie_id"`
	TiersID         *int64          `json:"tiers_id"`
	MoyenPaiement   string          `json:"moyen_paiement"`
	Beneficiaire    string          `json:"beneficiaire"`
	Validee         bool            `json:"validee"`

	CreatedAt time.Time `json:"created_at"`
}

// NewOccurrence copies the financial fields of tpl into a transaction dated on.
// Later edits of the template never alter the returned value.
func NewOccurrence(tpl *RecurrenceTemplate, on Date) *Transaction {
	recurrenceID := tpl.ID
	return &Transaction{
		UserID:              tpl.UserID,
		CompteID:            tpl.CompteID,
		CompteDestinationID: copyID(tpl.CompteDestinationID),
		RecurrenceID:        &recurrenceID,
		DateTransaction:     on,
		Libelle:             tpl.Libelle,
		Description:         tpl.Description,
		Montant:             tpl.Montant,
		TypeOperation:       tpl.TypeOperation,
		CategorieID:         copyID(tpl.CategorieID),
		SousCategorieID:     copyID(tpl.SousCategorieID),
		TiersID:             copyID(tpl.TiersID),
		MoyenPaiement:       tpl.MoyenPaiement,
		Beneficiaire:        tpl.Beneficiaire,
		Validee:             tpl.AutoValidation,
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// AccountIDs lists the accounts whose balance this transaction moves.
func (t *Transaction) AccountIDs() []int64 {
	ids := []int64{t.CompteID}
	if t.TypeOperation == OperationTransfer && t.CompteDestinationID != nil {
		ids = append(ids, *t.CompteDestinationID)
	}
	return ids
}
