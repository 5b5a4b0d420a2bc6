package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"healthcare-portal/internal/models"
)

// GormStore persists sessions in the session_records table.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore creates a GormStore on an already migrated connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) Load(ctx context.Context, id string) (models.Session, error) {
	var record models.SessionRecord
	err := g.DB.WithContext(ctx).
		Where("id = ? AND (expires_at IS NULL OR expires_at > ?)", id, time.Now().UTC()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{Token: record.Token, Role: record.Role, PrincipalID: record.PrincipalID}, nil
}

// Save upserts the row so that token, role and id always change together.
func (g *GormStore) Save(ctx context.Context, id string, s models.Session, ttl time.Duration) error {
	record := models.SessionRecord{
		BaseModel:   models.BaseModel{ID: id},
		Token:       s.Token,
		Role:        s.Role,
		PrincipalID: s.PrincipalID,
	}
	if ttl > 0 {
		exp := time.Now().UTC().Add(ttl)
		record.ExpiresAt = &exp
	}
	return g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "role", "principal_id", "expires_at", "updated_at"}),
	}).Create(&record).Error
}

func (g *GormStore) Delete(ctx context.Context, id string) error {
	return g.DB.WithContext(ctx).Delete(&models.SessionRecord{}, "id = ?", id).Error
}
