// backend/src/services/validation.go
package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/monbudget/backend/src/models"
	"github.com/username/monbudget/backend/src/security/validation"
)

// OperationInput carries the financial fields shared by transactions and recurrence templates.
type OperationInput struct {
	CompteID            int64                `json:"compte_id"`
	CompteDestinationID *int64               `json:"compte_destination_id"`
	Libelle             string               `json:"libelle"`
	Description         string               `json:"description"`
	Montant             decimal.Decimal      `json:"montant"`
	TypeOperation       models.TypeOperation `json:"type_operation"`
	CategorieID         *int64               `json:"categorie_id"`
	SousCategorieID     *int64               `json:"sous_categorie_id"`
	TiersID             *int64               `json:"tiers_id"`
	MoyenPaiement       string               `json:"moyen_paiement"`
	Beneficiaire        string               `json:"beneficiaire"`
}

// ScheduleInput is the scheduling part of a recurrence template.
type ScheduleInput struct {
	Frequence        models.Frequency     `json:"frequence"`
	Intervalle       int                  `json:"intervalle"`
	JourExecution    *int                 `json:"jour_execution"`
	ToleranceWeekend models.WeekendPolicy `json:"tolerance_weekend"`
	DateDebut        models.Date          `json:"date_debut"`
	DateFin          *models.Date         `json:"date_fin"`
	NbExecutionsMax  *int                 `json:"nb_executions_max"`
}

type RecurrenceInput struct {
	OperationInput
	ScheduleInput
	AutoValidation *bool `json:"auto_validation"`
}

type TransactionInput struct {
	OperationInput
	DateTransaction models.Date `json:"date_transaction"`
	Validee         bool        `json:"validee"`
}

func (op *OperationInput) clean() {
	op.Libelle = validation.CleanUserText(op.Libelle)
	op.Description = validation.CleanUserText(op.Description)
	op.MoyenPaiement = validation.CleanUserText(op.MoyenPaiement)
	op.Beneficiaire = validation.CleanUserText(op.Beneficiaire)
}

func (op *OperationInput) validate() error {
	if err := validation.ValidateRequiredText(op.Libelle, validation.MaxLibelleLength, "libelle"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(op.Description, validation.MaxDescriptionLength, "description"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(op.Beneficiaire, validation.DefaultMaxStringLength, "beneficiaire"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(op.MoyenPaiement, validation.MaxNameLength, "moyen_paiement"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(op.Montant, "montant"); err != nil {
		return err
	}
	if err := validation.ValidateTypeOperation(op.TypeOperation); err != nil {
		return err
	}
	if op.CompteID <= 0 {
		return fmt.Errorf("%w: compte_id is required", validation.ErrValidationFailed)
	}
	if op.TypeOperation == models.OperationTransfer {
		if op.CompteDestinationID == nil {
			return fmt.Errorf("%w: compte_destination_id is required for a virement", validation.ErrValidationFailed)
		}
		if *op.CompteDestinationID == op.CompteID {
			return fmt.Errorf("%w: compte_destination_id must differ from compte_id", validation.ErrValidationFailed)
		}
	} else if op.CompteDestinationID != nil {
		return fmt.Errorf("%w: compte_destination_id is only allowed for a virement", validation.ErrValidationFailed)
	}
	return nil
}

// normalize fills schedule defaults.
func (s *ScheduleInput) normalize() {
	if s.Intervalle == 0 {
		s.Intervalle = 1
	}
	if s.ToleranceWeekend == "" {
		s.ToleranceWeekend = models.WeekendNoAdjustment
	}
}

func (s *ScheduleInput) validate() error {
	if err := validation.ValidateFrequency(s.Frequence); err != nil {
		return err
	}
	if err := validation.ValidateWeekendPolicy(s.ToleranceWeekend); err != nil {
		return err
	}
	if s.Intervalle < 1 {
		return fmt.Errorf("%w: intervalle must be at least 1", validation.ErrValidationFailed)
	}
	if s.JourExecution != nil {
		if err := validation.ValidateIntRange(*s.JourExecution, 1, 31, "jour_execution"); err != nil {
			return err
		}
	}
	if s.Frequence.IsMonthBased() && s.ToleranceWeekend != models.WeekendNoAdjustment && s.JourExecution == nil {
		return fmt.Errorf("%w: jour_execution is required for a %s schedule with weekend adjustment",
			validation.ErrValidationFailed, s.Frequence)
	}
	if s.DateDebut.IsZero() {
		return fmt.Errorf("%w: date_debut is required", validation.ErrValidationFailed)
	}
	if s.DateFin != nil {
		if err := validation.ValidateDateOrder(s.DateDebut, *s.DateFin, "date_debut", "date_fin"); err != nil {
			return err
		}
	}
	if s.NbExecutionsMax != nil && *s.NbExecutionsMax < 1 {
		return fmt.Errorf("%w: nb_executions_max must be at least 1", validation.ErrValidationFailed)
	}
	return nil
}

// referenceValidationError turns a missing reference found at edit time into a validation failure.
func referenceValidationError(err error) error {
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		return fmt.Errorf("%w: %s %d does not exist", validation.ErrValidationFailed, refErr.Entity, refErr.EntityID)
	}
	return err
}

// applyTo copies the input onto tpl without touching its execution state.
func (in *RecurrenceInput) applyTo(tpl *models.RecurrenceTemplate) {
	tpl.CompteID = in.CompteID
	tpl.CompteDestinationID = in.CompteDestinationID
	tpl.Libelle = in.Libelle
	tpl.Description = in.Description
	tpl.Montant = in.Montant
	tpl.TypeOperation = in.TypeOperation
	tpl.CategorieID = in.CategorieID
	tpl.SousCategorieID = in.SousCategorieID
	tpl.TiersID = in.TiersID
	tpl.MoyenPaiement = in.MoyenPaiement
	tpl.Beneficiaire = in.Beneficiaire
	in.ScheduleInput.applyTo(tpl)
	if in.AutoValidation != nil {
		tpl.AutoValidation = *in.AutoValidation
	}
}

func (s *ScheduleInput) applyTo(tpl *models.RecurrenceTemplate) {
	tpl.Frequence = s.Frequence
	tpl.Intervalle = s.Intervalle
	tpl.JourExecution = s.JourExecution
	tpl.ToleranceWeekend = s.ToleranceWeekend
	tpl.DateDebut = s.DateDebut
	tpl.DateFin = s.DateFin
	tpl.NbExecutionsMax = s.NbExecutionsMax
}

// sameSchedule reports whether the fields driving the cursor are unchanged.
func (s *ScheduleInput) sameSchedule(tpl *models.RecurrenceTemplate) bool {
	return s.Frequence == tpl.Frequence &&
		s.Intervalle == tpl.Intervalle &&
		intPtrEqual(s.JourExecution, tpl.JourExecution) &&
		s.ToleranceWeekend == tpl.ToleranceWeekend &&
		s.DateDebut.Equal(tpl.DateDebut)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
