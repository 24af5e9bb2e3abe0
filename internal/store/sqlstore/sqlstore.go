// Package sqlstore persists the booking domain in MySQL through gorm.
package sqlstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"healthcare-booking-server/internal/store"
)

// translate maps gorm errors onto the store sentinels. gorm must be opened
// with TranslateError so unique violations arrive as gorm.ErrDuplicatedKey.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(store.ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(store.ErrDuplicate, op)
	}
	return errors.Wrap(err, op)
}

// versionMiss decides between not found and stale after an update matched no row.
func versionMiss(tx *gorm.DB, model any, id, op string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return errors.Wrap(store.ErrNotFound, op)
	}
	return errors.Wrap(store.ErrStale, op)
}
