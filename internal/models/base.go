package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// SessionRecord is the persisted row behind a gateway session cookie. The
// ID is the opaque session identifier carried by the cookie.
type SessionRecord struct {
	BaseModel
	Token       string     `gorm:"type:text"`
	Role        string     `gorm:"size:20"`
	PrincipalID int64      `gorm:"index"`
	ExpiresAt   *time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (SessionRecord) TableName() string {
	return "session_records"
}

// InitDB opens the MySQL connection used by the session store and migrates
// its table.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, err
	}

	return db, nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN string
}
