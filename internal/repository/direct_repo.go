package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// DirectRepository persists direct-message documents.
type DirectRepository interface {
	Get(ctx context.Context, id string) (models.Direct, error)
	Create(ctx context.Context, direct *models.Direct) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	// ListByWorkspace returns the workspace's directs newest-first. The
	// ordering (created_at DESC, object_id DESC) is the tie-break used when
	// reusing an existing thread, so it must stay deterministic.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Direct, error)
	// IncrementCounter advances the message counter by one and returns the
	// new value. Must run inside the caller's transaction.
	IncrementCounter(ctx context.Context, id string) (int64, error)
}

type directRepository struct {
	db *gorm.DB
}

// NewDirectRepository constructs a GORM-backed repository.
func NewDirectRepository(db *gorm.DB) DirectRepository {
	return &directRepository{db: db}
}

func (r *directRepository) Get(ctx context.Context, id string) (models.Direct, error) {
	var direct models.Direct
	if err := r.db.WithContext(ctx).First(&direct, "object_id = ?", id).Error; err != nil {
		return models.Direct{}, err
	}
	return direct, nil
}

func (r *directRepository) Create(ctx context.Context, direct *models.Direct) error {
	return r.db.WithContext(ctx).Create(direct).Error
}

func (r *directRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Direct{}).
		Where("object_id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *directRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Direct{}, "object_id = ?", id).Error
}

func (r *directRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Direct, error) {
	var directs []models.Direct
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC, object_id DESC").
		Find(&directs).Error; err != nil {
		return nil, err
	}
	return directs, nil
}

func (r *directRepository) IncrementCounter(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Direct{}).
		Where("object_id = ?", id).
		UpdateColumn("last_message_counter", gorm.Expr("last_message_counter + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var direct models.Direct
	if err := r.db.WithContext(ctx).Select("last_message_counter").First(&direct, "object_id = ?", id).Error; err != nil {
		return 0, err
	}
	return direct.LastMessageCounter, nil
}
