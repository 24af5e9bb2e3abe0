package booking

import (
	"unicode/utf8"

	"healthcare-booking-server/internal/models"
)

// UpdateIntent is one typed change requested through Update.
type UpdateIntent interface {
	action() Action
}

// ConfirmIntent moves a scheduled appointment to confirmed.
type ConfirmIntent struct{}

// CompleteIntent marks the appointment completed.
type CompleteIntent struct{}

// NoShowIntent marks that the patient did not attend.
type NoShowIntent struct{}

// CancelIntent cancels through the generic update path.
type CancelIntent struct {
	Reason string
}

// NotesIntent sets the doctor's notes and prescription. Nil fields are left as is.
type NotesIntent struct {
	Notes        *string
	Prescription *string
}

// ClinicalEditIntent changes the patient-supplied fields. Nil fields are left as is.
type ClinicalEditIntent struct {
	Reason             *string
	Symptoms           *string
	MedicalHistory     *string
	CurrentMedications *string
	Allergies          *string
	ConsultationType   *models.ConsultationType
}

func (ConfirmIntent) action() Action      { return ActionConfirm }
func (CompleteIntent) action() Action     { return ActionComplete }
func (NoShowIntent) action() Action       { return ActionMarkNoShow }
func (CancelIntent) action() Action       { return ActionCancel }
func (NotesIntent) action() Action        { return ActionEditNotes }
func (ClinicalEditIntent) action() Action { return ActionEditClinical }

// StatusIntent maps a requested status onto its intent.
func StatusIntent(status models.AppointmentStatus, reason string) (UpdateIntent, error) {
	switch status {
	case models.StatusConfirmed:
		return ConfirmIntent{}, nil
	case models.StatusCompleted:
		return CompleteIntent{}, nil
	case models.StatusNoShow:
		return NoShowIntent{}, nil
	case models.StatusCancelled:
		return CancelIntent{Reason: reason}, nil
	case models.StatusScheduled:
		return nil, newError(KindInvalidInput, "an appointment cannot be moved back to %s", status)
	}
	return nil, newError(KindInvalidInput, "unknown status %q", status)
}

// Empty reports whether the edit changes nothing.
func (c ClinicalEditIntent) Empty() bool {
	return c.Reason == nil && c.Symptoms == nil && c.MedicalHistory == nil &&
		c.CurrentMedications == nil && c.Allergies == nil && c.ConsultationType == nil
}

func (c ClinicalEditIntent) validate() error {
	if c.Reason != nil {
		if *c.Reason == "" {
			return newError(KindInvalidInput, "reason is required")
		}
		if utf8.RuneCountInString(*c.Reason) > maxReasonLen {
			return newError(KindInvalidInput, "reason exceeds %d characters", maxReasonLen)
		}
	}
	if c.Symptoms != nil && utf8.RuneCountInString(*c.Symptoms) > maxSymptomsLen {
		return newError(KindInvalidInput, "symptoms exceed %d characters", maxSymptomsLen)
	}
	if c.MedicalHistory != nil && utf8.RuneCountInString(*c.MedicalHistory) > maxHistoryLen {
		return newError(KindInvalidInput, "medicalHistory exceeds %d characters", maxHistoryLen)
	}
	if c.CurrentMedications != nil && utf8.RuneCountInString(*c.CurrentMedications) > maxMedicationsLen {
		return newError(KindInvalidInput, "currentMedications exceed %d characters", maxMedicationsLen)
	}
	if c.Allergies != nil && utf8.RuneCountInString(*c.Allergies) > maxAllergiesLen {
		return newError(KindInvalidInput, "allergies exceed %d characters", maxAllergiesLen)
	}
	if c.ConsultationType != nil && !c.ConsultationType.Valid() {
		return newError(KindInvalidInput, "unknown consultation type %q", *c.ConsultationType)
	}
	return nil
}

func (c ClinicalEditIntent) apply(a *models.Appointment) {
	if c.Reason != nil {
		a.Reason = *c.Reason
	}
	if c.Symptoms != nil {
		a.Symptoms = *c.Symptoms
	}
	if c.MedicalHistory != nil {
		a.MedicalHistory = *c.MedicalHistory
	}
	if c.CurrentMedications != nil {
		a.CurrentMedications = *c.CurrentMedications
	}
	if c.Allergies != nil {
		a.Allergies = *c.Allergies
	}
	if c.ConsultationType != nil {
		a.ConsultationType = *c.ConsultationType
	}
}

func (n NotesIntent) validate() error {
	if n.Notes != nil && utf8.RuneCountInString(*n.Notes) > maxNotesLen {
		return newError(KindInvalidInput, "notes exceed %d characters", maxNotesLen)
	}
	if n.Prescription != nil && utf8.RuneCountInString(*n.Prescription) > maxNotesLen {
		return newError(KindInvalidInput, "prescription exceeds %d characters", maxNotesLen)
	}
	return nil
}
