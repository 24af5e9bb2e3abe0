package booking

import (
	"context"
	"fmt"

	"healthcare-booking-server/internal/models"
)

// SlotChecker answers whether a (doctor, date, time) slot is free.
type SlotChecker struct {
	appointments AppointmentStore
}

// NewSlotChecker creates a SlotChecker.
func NewSlotChecker(appointments AppointmentStore) *SlotChecker {
	return &SlotChecker{appointments: appointments}
}

// IsSlotAvailable reports whether no scheduled or confirmed appointment holds
// the slot right now. The answer can be stale by the time a booking is written;
// Create's unique slot key is what finally rejects a double booking.
func (c *SlotChecker) IsSlotAvailable(ctx context.Context, doctorID, date, clock string) (bool, error) {
	if doctorID == "" {
		return false, newError(KindInvalidInput, "doctorId is required")
	}
	if _, err := models.ParseSlot(date, clock, nil); err != nil {
		return false, &Error{Kind: KindInvalidInput, Message: err.Error()}
	}
	taken, err := c.appointments.ExistsActiveInSlot(ctx, doctorID, date, clock)
	if err != nil {
		return false, fmt.Errorf("check slot availability: %w", err)
	}
	return !taken, nil
}
