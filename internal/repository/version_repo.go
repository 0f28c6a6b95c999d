package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// VersionRepository reads and seeds the schema-version singleton consulted by
// the client compatibility gate.
type VersionRepository interface {
	// Ensure returns the stored database version, seeding it with fallback
	// when the row does not exist yet.
	Ensure(ctx context.Context, fallback string) (string, error)
}

type versionRepository struct {
	db *gorm.DB
}

// NewVersionRepository constructs a GORM-backed repository.
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) Ensure(ctx context.Context, fallback string) (string, error) {
	var version models.SchemaVersion
	err := r.db.WithContext(ctx).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		version = models.SchemaVersion{DatabaseVersion: fallback}
		if err := r.db.WithContext(ctx).Create(&version).Error; err != nil {
			return "", err
		}
		return version.DatabaseVersion, nil
	}
	if err != nil {
		return "", err
	}
	return version.DatabaseVersion, nil
}
