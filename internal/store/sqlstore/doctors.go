package sqlstore

import (
	"context"

	"gorm.io/gorm"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// DoctorStore is the doctor directory on MySQL.
type DoctorStore struct {
	db *gorm.DB
}

func NewDoctorStore(db *gorm.DB) *DoctorStore {
	return &DoctorStore{db: db}
}

func (s *DoctorStore) Create(ctx context.Context, d *models.Doctor) error {
	return translate(s.db.WithContext(ctx).Create(d).Error, "create doctor")
}

func (s *DoctorStore) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get doctor")
	}
	return &d, nil
}

func (s *DoctorStore) List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error) {
	q := s.db.WithContext(ctx).Model(&models.Doctor{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Specialization != "" {
		q = q.Where("specialization = ?", filter.Specialization)
	}
	var list []models.Doctor
	if err := q.Order("name ASC").Find(&list).Error; err != nil {
		return nil, translate(err, "list doctors")
	}
	return list, nil
}

// UpdateProfile stores the editable profile fields when the version matches.
// The rating is left alone.
func (s *DoctorStore) UpdateProfile(ctx context.Context, d *models.Doctor) error {
	res := s.db.WithContext(ctx).Model(&models.Doctor{}).
		Where("id = ? AND version = ?", d.ID, d.Version).
		Updates(map[string]any{
			"name":             d.Name,
			"specialization":   d.Specialization,
			"consultation_fee": d.ConsultationFee,
			"is_active":        d.IsActive,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, "update doctor")
	}
	if res.RowsAffected == 0 {
		return versionMiss(s.db.WithContext(ctx), &models.Doctor{}, d.ID, "update doctor")
	}
	d.Version++
	return nil
}

// UpdateRating is the compare-and-swap used by the rating aggregator.
func (s *DoctorStore) UpdateRating(ctx context.Context, id string, rating models.Rating, version int) error {
	res := s.db.WithContext(ctx).Model(&models.Doctor{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"rating_average": rating.Average,
			"rating_count":   rating.Count,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, "update doctor rating")
	}
	if res.RowsAffected == 0 {
		return versionMiss(s.db.WithContext(ctx), &models.Doctor{}, id, "update doctor rating")
	}
	return nil
}
