package sqlstore

import (
	"context"

	"gorm.io/gorm"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// AppointmentStore implements booking.AppointmentStore on MySQL.
type AppointmentStore struct {
	db *gorm.DB
}

// NewAppointmentStore creates an AppointmentStore.
func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

// Create inserts the appointment. The unique index on active_slot_key
// rejects a second active booking for the same slot.
func (s *AppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	return translate(s.db.WithContext(ctx).Create(a).Error, "create appointment")
}

func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get appointment")
	}
	return &a, nil
}

// Update rewrites every column when the stored version still matches.
func (s *AppointmentStore) Update(ctx context.Context, a *models.Appointment) error {
	expected := a.Version
	a.Version = expected + 1
	res := s.db.WithContext(ctx).Model(a).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at").
		Updates(a)
	if res.Error != nil {
		a.Version = expected
		return translate(res.Error, "update appointment")
	}
	if res.RowsAffected == 0 {
		a.Version = expected
		return versionMiss(s.db.WithContext(ctx), &models.Appointment{}, a.ID, "update appointment")
	}
	return nil
}

func (s *AppointmentStore) List(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	q := s.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.PatientID != "" {
		q = q.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DoctorID != "" {
		q = q.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var list []models.Appointment
	if err := q.Order("appointment_date DESC, appointment_time DESC").Find(&list).Error; err != nil {
		return nil, translate(err, "list appointments")
	}
	return list, nil
}

func (s *AppointmentStore) ExistsActiveInSlot(ctx context.Context, doctorID, date, clock string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ? AND status IN ?",
			doctorID, date, clock, models.ActiveStatuses).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "check slot")
	}
	return n > 0, nil
}

// ListReviewed returns the doctor's completed appointments carrying a review.
// reviews is a JSON column so emptiness is settled after decoding.
func (s *AppointmentStore) ListReviewed(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	var list []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status = ?", doctorID, models.StatusCompleted).
		Where("reviews IS NOT NULL AND reviews NOT IN ?", []string{"", "[]", "null"}).
		Find(&list).Error
	if err != nil {
		return nil, translate(err, "list reviewed appointments")
	}
	out := list[:0]
	for _, a := range list {
		if a.HasReview() {
			out = append(out, a)
		}
	}
	return out, nil
}
