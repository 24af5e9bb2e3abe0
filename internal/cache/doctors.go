package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// DoctorDirectory is the doctor store the cache sits in front of.
type DoctorDirectory interface {
	Create(ctx context.Context, d *models.Doctor) error
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
	List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error)
	UpdateProfile(ctx context.Context, d *models.Doctor) error
	UpdateRating(ctx context.Context, id string, rating models.Rating, version int) error
}

// cachedDoctor keeps the version, which the API encoding hides.
type cachedDoctor struct {
	models.Doctor
	Version int `json:"version"`
}

// DoctorCache is a read-through cache over a DoctorDirectory. Writes go to
// the directory first and then drop the affected keys. Redis failures are
// logged and fall back to the directory.
type DoctorCache struct {
	next   DoctorDirectory
	cache  *Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewDoctorCache(next DoctorDirectory, c *Cache, ttl time.Duration, logger *zap.Logger) *DoctorCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorCache{next: next, cache: c, ttl: ttl, logger: logger}
}

func doctorKey(id string) string { return "doctor:" + id }

func listKey(f store.DoctorFilter) string {
	return fmt.Sprintf("doctors:%t:%s", f.ActiveOnly, f.Specialization)
}

func (d *DoctorCache) Create(ctx context.Context, doc *models.Doctor) error {
	if err := d.next.Create(ctx, doc); err != nil {
		return err
	}
	d.invalidate(ctx, doc.ID)
	return nil
}

func (d *DoctorCache) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	var hit cachedDoctor
	err := d.cache.Get(ctx, doctorKey(id), &hit)
	if err == nil {
		doc := hit.Doctor
		doc.Version = hit.Version
		return &doc, nil
	}
	if !errors.Is(err, ErrMiss) {
		d.logger.Warn("doctor cache read failed", zap.String("doctor_id", id), zap.Error(err))
	}

	doc, err := d.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, doctorKey(id), cachedDoctor{Doctor: *doc, Version: doc.Version}, d.ttl); err != nil {
		d.logger.Warn("doctor cache write failed", zap.String("doctor_id", id), zap.Error(err))
	}
	return doc, nil
}

func (d *DoctorCache) List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error) {
	var hit []models.Doctor
	err := d.cache.Get(ctx, listKey(filter), &hit)
	if err == nil {
		return hit, nil
	}
	if !errors.Is(err, ErrMiss) {
		d.logger.Warn("doctor list cache read failed", zap.Error(err))
	}

	list, err := d.next.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, listKey(filter), list, d.ttl); err != nil {
		d.logger.Warn("doctor list cache write failed", zap.Error(err))
	}
	return list, nil
}

func (d *DoctorCache) UpdateProfile(ctx context.Context, doc *models.Doctor) error {
	err := d.next.UpdateProfile(ctx, doc)
	// a stale write means the cached copy is stale too
	d.invalidate(ctx, doc.ID)
	return err
}

func (d *DoctorCache) UpdateRating(ctx context.Context, id string, rating models.Rating, version int) error {
	err := d.next.UpdateRating(ctx, id, rating, version)
	d.invalidate(ctx, id)
	return err
}

func (d *DoctorCache) invalidate(ctx context.Context, id string) {
	if err := d.cache.Delete(ctx, doctorKey(id)); err != nil {
		d.logger.Warn("doctor cache invalidation failed", zap.String("doctor_id", id), zap.Error(err))
	}
	if err := d.cache.Clear(ctx, "doctors:*"); err != nil {
		d.logger.Warn("doctor list cache invalidation failed", zap.Error(err))
	}
}

// UserAccounts is the account store. Creating a doctor account and toggling
// an account both write the doctor's profile.
type UserAccounts interface {
	Create(ctx context.Context, u *models.User, profile *models.Doctor) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter store.UserFilter) ([]models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// AccountsInvalidator drops the cached doctor whenever an account write
// reaches the doctor profile behind the cache's back.
type AccountsInvalidator struct {
	UserAccounts
	doctors *DoctorCache
}

func NewAccountsInvalidator(users UserAccounts, doctors *DoctorCache) *AccountsInvalidator {
	return &AccountsInvalidator{UserAccounts: users, doctors: doctors}
}

func (a *AccountsInvalidator) Create(ctx context.Context, u *models.User, profile *models.Doctor) error {
	if err := a.UserAccounts.Create(ctx, u, profile); err != nil {
		return err
	}
	if profile != nil {
		a.doctors.invalidate(ctx, u.ID)
	}
	return nil
}

func (a *AccountsInvalidator) SetActive(ctx context.Context, id string, active bool) error {
	err := a.UserAccounts.SetActive(ctx, id, active)
	a.doctors.invalidate(ctx, id)
	return err
}
