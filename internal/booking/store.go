package booking

import (
	"context"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// AppointmentStore is the persistence the lifecycle needs. Implementations
// return store.ErrNotFound, store.ErrStale and store.ErrDuplicate.
type AppointmentStore interface {
	// Create inserts a new appointment. A clash on the active slot key
	// returns store.ErrDuplicate.
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// Update writes a whole appointment if its stored version still equals
	// a.Version, then bumps the version.
	Update(ctx context.Context, a *models.Appointment) error
	List(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error)
	ExistsActiveInSlot(ctx context.Context, doctorID, date, clock string) (bool, error)
	// ListReviewed returns the doctor's appointments that carry a review.
	ListReviewed(ctx context.Context, doctorID string) ([]models.Appointment, error)
}

// DoctorStore is the slice of the doctor directory the lifecycle needs.
type DoctorStore interface {
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
	// UpdateRating stores rating if the doctor is still at version.
	UpdateRating(ctx context.Context, id string, rating models.Rating, version int) error
}
