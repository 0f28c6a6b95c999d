package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// MessageRepository persists message documents.
type MessageRepository interface {
	Get(ctx context.Context, id string) (models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	// LastVisible returns the non-deleted message with the highest counter in
	// the chat, or nil when none remain.
	LastVisible(ctx context.Context, chatID string) (*models.Message, error)
	// ListByChat returns the chat's messages in counter order.
	ListByChat(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a GORM-backed repository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Get(ctx context.Context, id string) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, "object_id = ?", id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
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

func (r *messageRepository) LastVisible(ctx context.Context, chatID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("counter DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("counter ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
