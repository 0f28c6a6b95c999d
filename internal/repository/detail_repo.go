package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// DetailRepository persists read-receipt records. Details are the only rows
// the engine hard-deletes; removal follows membership revocation and chat
// deletion.
type DetailRepository interface {
	Get(ctx context.Context, id string) (models.Detail, error)
	Create(ctx context.Context, detail *models.Detail) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	DeleteByChat(ctx context.Context, chatID string) error
	DeleteByChatUser(ctx context.Context, chatID, userID string) error
	DeleteByWorkspaceUser(ctx context.Context, workspaceID, userID string) error
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
	ListByChat(ctx context.Context, chatID string) ([]models.Detail, error)
}

type detailRepository struct {
	db *gorm.DB
}

// NewDetailRepository constructs a GORM-backed repository.
func NewDetailRepository(db *gorm.DB) DetailRepository {
	return &detailRepository{db: db}
}

func (r *detailRepository) Get(ctx context.Context, id string) (models.Detail, error) {
	var detail models.Detail
	if err := r.db.WithContext(ctx).First(&detail, "object_id = ?", id).Error; err != nil {
		return models.Detail{}, err
	}
	return detail, nil
}

func (r *detailRepository) Create(ctx context.Context, detail *models.Detail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

func (r *detailRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Detail{}).
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

func (r *detailRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Detail{}, "object_id = ?", id).Error
}

func (r *detailRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Delete(&models.Detail{}, "chat_id = ?", chatID).Error
}

func (r *detailRepository) DeleteByChatUser(ctx context.Context, chatID, userID string) error {
	return r.db.WithContext(ctx).Delete(&models.Detail{}, "chat_id = ? AND user_id = ?", chatID, userID).Error
}

func (r *detailRepository) DeleteByWorkspaceUser(ctx context.Context, workspaceID, userID string) error {
	return r.db.WithContext(ctx).Delete(&models.Detail{}, "workspace_id = ? AND user_id = ?", workspaceID, userID).Error
}

func (r *detailRepository) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	return r.db.WithContext(ctx).Delete(&models.Detail{}, "workspace_id = ?", workspaceID).Error
}

func (r *detailRepository) ListByChat(ctx context.Context, chatID string) ([]models.Detail, error) {
	var details []models.Detail
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}
