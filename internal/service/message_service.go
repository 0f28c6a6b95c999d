package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tidechat/tide-api/internal/cache"
	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
	"github.com/tidechat/tide-api/pkg/storage"
)

// MessageService appends, edits and deletes chat messages while keeping the
// per-chat counter and the denormalized summary consistent.
type MessageService interface {
	Create(ctx context.Context, callerID string, payload dto.CreateMessageRequest) (models.Message, error)
	Edit(ctx context.Context, callerID, messageID string, payload dto.EditMessageRequest) (models.Message, error)
	Delete(ctx context.Context, callerID, messageID string) error
	ListByChat(ctx context.Context, callerID, chatType, chatID string, limit int) ([]models.Message, error)
}

type messageService struct {
	store      *repository.Store
	media      MediaIngestor
	bucket     storage.Bucket
	events     *events.Publisher
	summaries  *cache.SummaryCache
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	thumbWidth int
}

// NewMessageService constructs a message service.
func NewMessageService(store *repository.Store, media MediaIngestor, bucket storage.Bucket, publisher *events.Publisher, summaries *cache.SummaryCache, validate *validator.Validate, thumbWidth int, logger zerolog.Logger) MessageService {
	if thumbWidth <= 0 {
		thumbWidth = 400
	}

	return &messageService{
		store:      store,
		media:      media,
		bucket:     bucket,
		events:     publisher,
		summaries:  summaries,
		validator:  validate,
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With().Str("component", "message_service").Logger(),
		tracer:     otel.Tracer("github.com/tidechat/tide-api/internal/service/message"),
		thumbWidth: thumbWidth,
	}
}

// chatState is the subset of a channel or direct the engine reads before
// mutating it.
type chatState struct {
	workspaceID     string
	members         models.StringSet
	lastMessageText string
	counter         int64
	deleted         bool
}

func loadChatState(ctx context.Context, store *repository.Store, chatType, chatID string) (chatState, error) {
	switch chatType {
	case models.ChatTypeChannel:
		channel, err := store.Channels.Get(ctx, chatID)
		if err != nil {
			return chatState{}, notFound("Channel not found.")
		}
		return chatState{
			workspaceID:     channel.WorkspaceID,
			members:         channel.Members,
			lastMessageText: channel.LastMessageText,
			counter:         channel.LastMessageCounter,
			deleted:         channel.IsDeleted,
		}, nil
	case models.ChatTypeDirect:
		direct, err := store.Directs.Get(ctx, chatID)
		if err != nil {
			return chatState{}, notFound("Direct message not found.")
		}
		return chatState{
			workspaceID:     direct.WorkspaceID,
			members:         direct.Members,
			lastMessageText: direct.LastMessageText,
			counter:         direct.LastMessageCounter,
		}, nil
	default:
		return chatState{}, invalidArgument("Unknown chat type.")
	}
}

func (s *messageService) Create(ctx context.Context, callerID string, payload dto.CreateMessageRequest) (models.Message, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Message{}, invalidArgument("Invalid message payload: %v", err)
	}
	if strings.TrimSpace(payload.Text) == "" && payload.FilePath == "" && payload.Sticker == "" {
		return models.Message{}, invalidArgument("The message is empty.")
	}

	ctx, span := s.tracer.Start(ctx, "message.create", trace.WithAttributes(
		attribute.String("chat.id", payload.ChatID),
		attribute.String("chat.type", payload.ChatType),
	))
	defer span.End()

	state, err := loadChatState(ctx, s.store, payload.ChatType, payload.ChatID)
	if err != nil {
		return models.Message{}, err
	}
	if state.deleted {
		return models.Message{}, notFound("Channel not found.")
	}
	if !state.members.Has(callerID) {
		return models.Message{}, permissionDenied("The user is not a member of the chat.")
	}

	// Media runs to completion before the transaction opens so a conflict
	// retry never repeats the external side effects.
	attachment, err := s.media.Ingest(ctx, payload.FilePath, ThumbnailOptions{
		Width:      s.thumbWidth,
		AllowVideo: true,
		AllowAudio: true,
	})
	if err != nil {
		span.RecordError(err)
		return models.Message{}, err
	}

	text := s.sanitizer.Sanitize(payload.Text)

	message := models.Message{
		ObjectID:      uuid.NewString(),
		ChatID:        payload.ChatID,
		ChatType:      payload.ChatType,
		WorkspaceID:   payload.WorkspaceID,
		SenderID:      callerID,
		Text:          text,
		Sticker:       payload.Sticker,
		FileURL:       attachment.FileURL,
		ThumbnailURL:  attachment.ThumbnailURL,
		FileSize:      attachment.FileSize,
		FileType:      attachment.FileType,
		FileName:      payload.FileName,
		MediaWidth:    attachment.MediaWidth,
		MediaHeight:   attachment.MediaHeight,
		MediaDuration: attachment.MediaDuration,
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		var counter int64
		switch payload.ChatType {
		case models.ChatTypeChannel:
			counter, err = tx.Channels.IncrementCounter(ctx, payload.ChatID)
			if err != nil {
				return err
			}
			if err := tx.Channels.Update(ctx, payload.ChatID, map[string]interface{}{
				"last_message_text": text,
			}); err != nil {
				return err
			}
		case models.ChatTypeDirect:
			counter, err = tx.Directs.IncrementCounter(ctx, payload.ChatID)
			if err != nil {
				return err
			}
			direct, err := tx.Directs.Get(ctx, payload.ChatID)
			if err != nil {
				return err
			}
			// A new message reopens the thread for every participant.
			active := direct.Active
			for _, memberID := range direct.Members {
				active = active.Add(memberID)
			}
			if err := tx.Directs.Update(ctx, payload.ChatID, map[string]interface{}{
				"last_message_text": text,
				"active":            active,
			}); err != nil {
				return err
			}
		}

		message.Counter = counter
		if err := tx.Messages.Create(ctx, &message); err != nil {
			return err
		}

		// The sender reads their own message immediately.
		return upsertDetail(ctx, tx, callerID, payload.ChatID, payload.WorkspaceID, counter)
	})
	if err != nil {
		span.RecordError(err)
		// The thumbnail was uploaded ahead of the failed commit; nothing
		// references it anymore.
		DeleteDerivative(ctx, s.bucket, attachment.ThumbnailURL, s.logger)
		return models.Message{}, upstream(err, "Could not create the message.")
	}

	s.summaries.Set(ctx, cache.ChatSummary{
		ChatID:             payload.ChatID,
		ChatType:           payload.ChatType,
		LastMessageText:    text,
		LastMessageCounter: message.Counter,
	})

	s.events.Publish(ctx, events.Event{
		Entity:      "message",
		Action:      events.ActionCreated,
		ObjectID:    message.ObjectID,
		WorkspaceID: payload.WorkspaceID,
		ActorID:     callerID,
	})

	return message, nil
}

func (s *messageService) Edit(ctx context.Context, callerID, messageID string, payload dto.EditMessageRequest) (models.Message, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Message{}, invalidArgument("Invalid message payload: %v", err)
	}

	message, err := s.store.Messages.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, notFound("Message not found.")
	}
	if message.SenderID != callerID {
		return models.Message{}, permissionDenied("The user is not the sender of the message.")
	}

	state, err := loadChatState(ctx, s.store, message.ChatType, message.ChatID)
	if err != nil {
		return models.Message{}, err
	}
	if !state.members.Has(callerID) {
		return models.Message{}, permissionDenied("The user is not a member of the chat.")
	}

	text := s.sanitizer.Sanitize(payload.Text)

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		if err := tx.Messages.Update(ctx, messageID, map[string]interface{}{
			"text":      text,
			"is_edited": true,
		}); err != nil {
			return err
		}

		last, err := tx.Messages.LastVisible(ctx, message.ChatID)
		if err != nil {
			return err
		}
		if last == nil || last.ObjectID != messageID {
			return nil
		}
		return updateChatSummary(ctx, tx, message.ChatType, message.ChatID, text)
	})
	if err != nil {
		return models.Message{}, upstream(err, "Could not edit the message.")
	}

	s.summaries.Invalidate(ctx, message.ChatID)

	message.Text = text
	message.IsEdited = true

	s.events.Publish(ctx, events.Event{
		Entity:      "message",
		Action:      events.ActionUpdated,
		ObjectID:    messageID,
		WorkspaceID: message.WorkspaceID,
		ActorID:     callerID,
	})

	return message, nil
}

func (s *messageService) Delete(ctx context.Context, callerID, messageID string) error {
	message, err := s.store.Messages.Get(ctx, messageID)
	if err != nil {
		return notFound("Message not found.")
	}
	if message.SenderID != callerID {
		return permissionDenied("The user is not the sender of the message.")
	}

	state, err := loadChatState(ctx, s.store, message.ChatType, message.ChatID)
	if err != nil {
		return err
	}
	if !state.members.Has(callerID) {
		return permissionDenied("The user is not a member of the chat.")
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		if err := tx.Messages.Update(ctx, messageID, map[string]interface{}{"is_deleted": true}); err != nil {
			return err
		}

		last, err := tx.Messages.LastVisible(ctx, message.ChatID)
		if err != nil {
			return err
		}
		text := ""
		if last != nil {
			text = last.Text
		}
		if text == state.lastMessageText {
			return nil
		}
		return updateChatSummary(ctx, tx, message.ChatType, message.ChatID, text)
	})
	if err != nil {
		return upstream(err, "Could not delete the message.")
	}

	s.summaries.Invalidate(ctx, message.ChatID)

	s.events.Publish(ctx, events.Event{
		Entity:      "message",
		Action:      events.ActionDeleted,
		ObjectID:    messageID,
		WorkspaceID: message.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *messageService) ListByChat(ctx context.Context, callerID, chatType, chatID string, limit int) ([]models.Message, error) {
	state, err := loadChatState(ctx, s.store, chatType, chatID)
	if err != nil {
		return nil, err
	}
	if !state.members.Has(callerID) {
		return nil, permissionDenied("The user is not a member of the chat.")
	}

	messages, err := s.store.Messages.ListByChat(ctx, chatID, limit)
	if err != nil {
		return nil, upstream(err, "Could not list the messages.")
	}
	return messages, nil
}

func updateChatSummary(ctx context.Context, tx *repository.Store, chatType, chatID, text string) error {
	switch chatType {
	case models.ChatTypeChannel:
		return tx.Channels.Update(ctx, chatID, map[string]interface{}{"last_message_text": text})
	case models.ChatTypeDirect:
		return tx.Directs.Update(ctx, chatID, map[string]interface{}{"last_message_text": text})
	default:
		return invalidArgument("Unknown chat type.")
	}
}
