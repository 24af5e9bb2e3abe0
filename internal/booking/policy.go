package booking

import (
	"time"

	"healthcare-booking-server/internal/models"
)

// Clock is the time source for every time-based rule.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// Action is something an actor may attempt on an appointment.
type Action string

const (
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionConfirm      Action = "confirm"
	ActionComplete     Action = "complete"
	ActionMarkNoShow   Action = "no-show"
	ActionEditNotes    Action = "edit-notes"
	ActionEditClinical Action = "edit-clinical"
	ActionCancel       Action = "cancel"
	ActionReview       Action = "review"
)

// CanPerform is the single authorization rule set for appointment actions.
func CanPerform(actor Actor, a *models.Appointment, action Action) bool {
	if a == nil || actor.UserID == "" {
		return false
	}
	isPatient := actor.UserID == a.PatientID
	isDoctor := actor.UserID == a.DoctorID
	isAdmin := actor.Role == models.RoleAdmin

	switch action {
	case ActionView:
		return isPatient || isDoctor || isAdmin
	case ActionUpdate:
		return isPatient || isDoctor
	case ActionConfirm, ActionComplete, ActionMarkNoShow, ActionEditNotes:
		return isDoctor
	case ActionEditClinical, ActionReview:
		return isPatient
	case ActionCancel:
		return isPatient || isDoctor || isAdmin
	}
	return false
}

// cancelledBy picks the role recorded on a cancellation. A user who is both
// the patient and the doctor of an appointment is recorded as the doctor.
func cancelledBy(actor Actor, a *models.Appointment) models.Role {
	switch {
	case actor.UserID == a.DoctorID:
		return models.RoleDoctor
	case actor.UserID == a.PatientID:
		return models.RolePatient
	default:
		return models.RoleAdmin
	}
}
