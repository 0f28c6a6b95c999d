package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// ChannelRepository persists channel documents.
type ChannelRepository interface {
	Get(ctx context.Context, id string) (models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	// NameTaken reports whether a non-deleted channel with the given name
	// already exists in the workspace.
	NameTaken(ctx context.Context, workspaceID, name string) (bool, error)
	// ListActiveByWorkspace returns the workspace's non-deleted channels.
	ListActiveByWorkspace(ctx context.Context, workspaceID string) ([]models.Channel, error)
	// IncrementCounter advances the message counter by one and returns the
	// new value. Must run inside the caller's transaction.
	IncrementCounter(ctx context.Context, id string) (int64, error)
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository constructs a GORM-backed repository.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Get(ctx context.Context, id string) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, "object_id = ?", id).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *channelRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Channel{}).
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

func (r *channelRepository) NameTaken(ctx context.Context, workspaceID, name string) (bool, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND name = ? AND is_deleted = ?", workspaceID, name, false).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *channelRepository) ListActiveByWorkspace(ctx context.Context, workspaceID string) ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND is_deleted = ?", workspaceID, false).
		Order("created_at ASC").
		Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *channelRepository) IncrementCounter(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Channel{}).
		Where("object_id = ?", id).
		UpdateColumn("last_message_counter", gorm.Expr("last_message_counter + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var channel models.Channel
	if err := r.db.WithContext(ctx).Select("last_message_counter").First(&channel, "object_id = ?", id).Error; err != nil {
		return 0, err
	}
	return channel.LastMessageCounter, nil
}
