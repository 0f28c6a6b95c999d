package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// WorkspaceRepository persists workspace documents.
type WorkspaceRepository interface {
	Get(ctx context.Context, id string) (models.Workspace, error)
	Create(ctx context.Context, workspace *models.Workspace) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

type workspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository constructs a GORM-backed repository.
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Get(ctx context.Context, id string) (models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).First(&workspace, "object_id = ?", id).Error; err != nil {
		return models.Workspace{}, err
	}
	return workspace, nil
}

func (r *workspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Create(workspace).Error
}

func (r *workspaceRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Workspace{}).
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
