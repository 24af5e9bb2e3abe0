package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables and collections
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// EnsureID assigns a UUID when the record has none yet.
func (base *BaseModel) EnsureID() {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// InitDB opens the MySQL pool and migrates the booking tables. The returned
// pool is owned by the caller; it is already closed when InitDB fails.
func InitDB(config DatabaseConfig) (*gorm.DB, *sql.DB, error) {
	sqlDB, err := sql.Open("mysql", config.DSN)
	if err != nil {
		return nil, nil, err
	}
	db, err := openAndMigrate(sqlDB)
	if err != nil {
		return nil, nil, err
	}
	return db, sqlDB, nil
}

func openAndMigrate(sqlDB *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		// unique-key violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err == nil {
		err = db.AutoMigrate(
			&User{},
			&Doctor{},
			&Appointment{},
		)
	}
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN string
}
