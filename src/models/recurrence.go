package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the period unit of a recurrence template.
type Frequency string

const (
	FrequencyDaily      Frequency = "quotidien"
	FrequencyWeekly     Frequency = "hebdomadaire"
	FrequencyMonthly    Frequency = "mensuel"
	FrequencyQuarterly  Frequency = "trimestriel"
	FrequencySemiannual Frequency = "semestriel"
	FrequencyAnnual     Frequency = "annuel"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return true
	}
	return false
}

// MonthsPerPeriod returns how many calendar months one period spans,
// or 0 for day-based frequencies.
func (f Frequency) MonthsPerPeriod() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 0
}

// IsMonthBased reports whether the day-of-month anchor applies.
func (f Frequency) IsMonthBased() bool {
	return f.MonthsPerPeriod() > 0
}

// WeekendPolicy decides what happens when a computed date falls on a weekend.
type WeekendPolicy string

const (
	WeekendNextBusinessDay     WeekendPolicy = "jour_ouvre_suivant"
	WeekendPreviousBusinessDay WeekendPolicy = "jour_ouvre_precedent"
	WeekendNoAdjustment        WeekendPolicy = "aucune"
)

func (p WeekendPolicy) IsValid() bool {
	switch p {
	case WeekendNextBusinessDay, WeekendPreviousBusinessDay, WeekendNoAdjustment:
		return true
	}
	return false
}

// TypeOperation is the direction of money for a transaction.
type TypeOperation string

const (
	OperationCredit   TypeOperation = "credit"
	OperationDebit    TypeOperation = "debit"
	OperationTransfer TypeOperation = "virement"
)

func (t TypeOperation) IsValid() bool {
	switch t {
	case OperationCredit, OperationDebit, OperationTransfer:
		return true
	}
	return false
}

// RecurrenceTemplate is the stored definition of a repeating transaction.
type RecurrenceTemplate struct {
	ID                  int64  `json:"id"`
	UserID              int64  `json:"user_id"`
	CompteID            int64  `json:"compte_id"`
	CompteDestinationID *int64 `json:"compte_destination_id"`

	Libelle         string          `json:"libelle"`
	Description     string          `json:"description"`
	Montant         decimal.Decimal `json:"montant"`
	TypeOperation   TypeOperation   `json:"type_operation"`
	CategorieID     *int64          `json:"categorie_id"`
	SousCategorieID *int64          `json:"sous_categorie_id"`
	TiersID         *int64          `json:"tiers_id"`
	MoyenPaiement   string          `json:"moyen_paiement"`
	Beneficiaire    string          `json:"beneficiaire"`

	Frequence        Frequency     `json:"frequence"`
	Intervalle       int           `json:"intervalle"`
	JourExecution    *int          `json:"jour_execution"`
	ToleranceWeekend WeekendPolicy `json:"tolerance_weekend"`

	DateDebut       Date  `json:"date_debut"`
	DateFin         *Date `json:"date_fin"`
	NbExecutionsMax *int  `json:"nb_executions_max"`
	NbExecutions    int   `json:"nb_executions"`

	ProchaineExecution Date  `json:"prochaine_execution"`
	DerniereExecution  *Date `json:"derniere_execution"`

	RecurrenceActive bool `json:"recurrence_active"`
	AutoValidation   bool `json:"auto_validation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnchorDay returns the day-of-month anchor, or 0 when none is set.
func (r *RecurrenceTemplate) AnchorDay() int {
	if r.JourExecution == nil {
		return 0
	}
	return *r.JourExecution
}

// LimitReached reports whether nb_executions_max has been hit.
func (r *RecurrenceTemplate) LimitReached() bool {
	return r.NbExecutionsMax != nil && r.NbExecutions >= *r.NbExecutionsMax
}

// EndedBefore reports whether date_fin is set and earlier than d.
func (r *RecurrenceTemplate) EndedBefore(d Date) bool {
	return r.DateFin != nil && r.DateFin.Before(d)
}

// IsDue reports whether the template should produce an occurrence when
// processing asOf: active, cursor reached, within its end date and limit.
func (r *RecurrenceTemplate) IsDue(asOf Date) bool {
	if !r.RecurrenceActive || r.LimitReached() {
		return false
	}
	if r.ProchaineExecution.After(asOf) {
		return false
	}
	return !r.EndedBefore(r.ProchaineExecution)
}

// AccountIDs lists the accounts whose balance an occurrence of this template moves.
func (r *RecurrenceTemplate) AccountIDs() []int64 {
	ids := []int64{r.CompteID}
	if r.TypeOperation == OperationTransfer && r.CompteDestinationID != nil {
		ids = append(ids, *r.CompteDestinationID)
	}
	return ids
}

// RecurrenceStateCounts backs the admin dashboard counters.
type RecurrenceStateCounts struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Overdue  int `json:"overdue"`
}

// UpcomingRecurrence is one entry of the "due in the next N days" list.
type UpcomingRecurrence struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"user_id"`
	Libelle            string          `json:"libelle"`
	Montant            decimal.Decimal `json:"montant"`
	TypeOperation      TypeOperation   `json:"type_operation"`
	ProchaineExecution Date            `json:"prochaine_execution"`
}

// RecurrenceUsage counts generated occurrences per template.
type RecurrenceUsage struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Libelle         string `json:"libelle"`
	OccurrenceCount int    `json:"occurrence_count"`
}
