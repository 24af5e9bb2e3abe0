// Package store holds what the persistence backends share: sentinel errors
// and the listing filter.
package store

import (
	"errors"

	"healthcare-booking-server/internal/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned when a versioned write lost against a concurrent one.
	ErrStale = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// AppointmentFilter narrows appointment listings. Empty fields match all.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
}

// DoctorFilter narrows the doctor directory.
type DoctorFilter struct {
	Specialization string
	ActiveOnly     bool
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role models.Role
}
