package models

import (
	"fmt"
	"time"
)

// Layouts for the calendar date and wall-clock time of an appointment.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus represents the status of an appointment
//
//	scheduled -> confirmed
//	scheduled | confirmed -> completed | no-show
//	scheduled | confirmed -> cancelled
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []AppointmentStatus{StatusScheduled, StatusConfirmed}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ConsultationType is how the consultation takes place.
type ConsultationType string

const (
	ConsultationInPerson ConsultationType = "in-person"
	ConsultationVideo    ConsultationType = "video"
	ConsultationPhone    ConsultationType = "phone"
)

// Valid reports whether c is a known consultation type.
func (c ConsultationType) Valid() bool {
	switch c {
	case ConsultationInPerson, ConsultationVideo, ConsultationPhone:
		return true
	}
	return false
}

// PaymentStatus tracks the embedded payment record.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is embedded in the appointment. Amount is fixed at booking time.
type Payment struct {
	Amount        float64       `gorm:"not null" json:"amount" bson:"amount"`
	Status        PaymentStatus `gorm:"size:20;default:'pending'" json:"status" bson:"status"`
	Method        string        `gorm:"size:50" json:"method,omitempty" bson:"method,omitempty"`
	TransactionID string        `gorm:"size:100" json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// Review is the patient's feedback on a completed appointment.
type Review struct {
	User    string    `json:"user" bson:"user"`
	Rating  int       `json:"rating" bson:"rating"`
	Comment string    `json:"comment,omitempty" bson:"comment,omitempty"`
	Date    time.Time `json:"date" bson:"date"`
}

// Appointment represents a booked consultation between a patient and a doctor
type Appointment struct {
	BaseModel          `bson:",inline"`
	PatientID          string            `gorm:"size:36;index;not null" json:"patientId" bson:"patientId"`
	DoctorID           string            `gorm:"size:36;index:idx_doctor_slot;not null" json:"doctorId" bson:"doctorId"`
	AppointmentDate    string            `gorm:"size:10;index:idx_doctor_slot;not null" json:"appointmentDate" bson:"appointmentDate"`
	AppointmentTime    string            `gorm:"size:5;index:idx_doctor_slot;not null" json:"appointmentTime" bson:"appointmentTime"`
	Duration           int               `gorm:"default:30" json:"duration" bson:"duration"`
	Status             AppointmentStatus `gorm:"size:20;default:'scheduled';index" json:"status" bson:"status"`
	ConsultationType   ConsultationType  `gorm:"size:20;default:'in-person'" json:"consultationType" bson:"consultationType"`
	Reason             string            `gorm:"size:500;not null" json:"reason" bson:"reason"`
	Symptoms           string            `gorm:"type:text" json:"symptoms,omitempty" bson:"symptoms,omitempty"`
	MedicalHistory     string            `gorm:"type:text" json:"medicalHistory,omitempty" bson:"medicalHistory,omitempty"`
	CurrentMedications string            `gorm:"type:text" json:"currentMedications,omitempty" bson:"currentMedications,omitempty"`
	Allergies          string            `gorm:"size:500" json:"allergies,omitempty" bson:"allergies,omitempty"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty" bson:"notes,omitempty"`
	Prescription       string            `gorm:"type:text" json:"prescription,omitempty" bson:"prescription,omitempty"`
	Payment            Payment           `gorm:"embedded;embeddedPrefix:payment_" json:"payment" bson:"payment"`
	Reviews            []Review          `gorm:"type:text;serializer:json" json:"reviews" bson:"reviews"`
	CancellationReason string            `gorm:"size:500" json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CancelledBy        Role              `gorm:"size:20" json:"cancelledBy,omitempty" bson:"cancelledBy,omitempty"`
	Version            int               `gorm:"not null;default:0" json:"version" bson:"version"`

	// ActiveSlotKey is set only while the appointment holds its slot; the
	// unique index on it rejects a second active booking for the same slot.
	ActiveSlotKey *string `gorm:"size:80;uniqueIndex" json:"-" bson:"activeSlotKey,omitempty"`
}

// SlotKey identifies a (doctor, date, time) slot.
func SlotKey(doctorID, date, clock string) string {
	return doctorID + "|" + date + "|" + clock
}

// IsActive reports whether the appointment still holds its slot.
func (a *Appointment) IsActive() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// HasReview reports whether a review was already left.
func (a *Appointment) HasReview() bool {
	return len(a.Reviews) > 0
}

// SyncSlotKey keeps ActiveSlotKey in line with the current status.
func (a *Appointment) SyncSlotKey() {
	if a.IsActive() {
		key := SlotKey(a.DoctorID, a.AppointmentDate, a.AppointmentTime)
		a.ActiveSlotKey = &key
		return
	}
	a.ActiveSlotKey = nil
}

// ScheduledAt combines the appointment date and time in loc.
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	return ParseSlot(a.AppointmentDate, a.AppointmentTime, loc)
}

// ParseSlot parses a YYYY-MM-DD date and an HH:MM time into an instant in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	// the layouts alone accept "9:30"; slot keys compare the raw strings
	if len(date) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: want YYYY-MM-DD", date)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: %w", date, err)
	}
	if len(clock) != len(TimeLayout) {
		return time.Time{}, fmt.Errorf("invalid appointment time %q: want HH:MM", clock)
	}
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment time %q: %w", clock, err)
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
}
