package sqlstore

import (
	"context"

	"gorm.io/gorm"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// UserStore is the user directory on MySQL.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts the user, and the doctor profile when one is given, in one
// transaction. A taken email returns store.ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u *models.User, profile *models.Doctor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if profile == nil {
			return nil
		}
		profile.ID = u.ID
		return tx.Create(profile).Error
	})
	return translate(err, "create user")
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, filter store.UserFilter) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	var list []models.User
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, translate(err, "list users")
	}
	return list, nil
}

// SetActive flips the account flag. Deactivating a doctor also hides the
// directory entry so no new bookings reach them.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Doctor{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": active, "version": gorm.Expr("version + 1")}).Error
	})
	return translate(err, "set user active")
}
