package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

// ChannelService exposes channel lifecycle and membership use-cases.
type ChannelService interface {
	Create(ctx context.Context, callerID string, payload dto.CreateChannelRequest) (models.Channel, error)
	Update(ctx context.Context, callerID, channelID string, payload dto.UpdateChannelRequest) (models.Channel, error)
	Delete(ctx context.Context, callerID, channelID string) error
	Archive(ctx context.Context, callerID, channelID string) error
	Unarchive(ctx context.Context, callerID, channelID string) error
	AddMember(ctx context.Context, callerID, channelID string, payload dto.AddMemberRequest) error
	DeleteMember(ctx context.Context, callerID, channelID, userID string) error
	SetTyping(ctx context.Context, callerID, channelID string, isTyping bool) error
	ResetTyping(ctx context.Context, callerID, channelID string) error
}

type channelService struct {
	store        *repository.Store
	events       *events.Publisher
	validator    *validator.Validate
	logger       zerolog.Logger
	typingWindow time.Duration
	now          func() time.Time
}

// NewChannelService constructs a channel service.
func NewChannelService(store *repository.Store, publisher *events.Publisher, validate *validator.Validate, typingWindow time.Duration, logger zerolog.Logger) ChannelService {
	if typingWindow <= 0 {
		typingWindow = 30 * time.Second
	}

	return &channelService{
		store:        store,
		events:       publisher,
		validator:    validate,
		logger:       logger.With().Str("component", "channel_service").Logger(),
		typingWindow: typingWindow,
		now:          time.Now,
	}
}

// normalizeChannelName strips the display prefix so "#general" and "general"
// collide on the uniqueness pre-check.
func normalizeChannelName(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

func (s *channelService) Create(ctx context.Context, callerID string, payload dto.CreateChannelRequest) (models.Channel, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Channel{}, invalidArgument("Invalid channel payload: %v", err)
	}

	name := normalizeChannelName(payload.Name)
	if name == "" {
		return models.Channel{}, invalidArgument("Channel name is required.")
	}

	workspace, err := s.store.Workspaces.Get(ctx, payload.WorkspaceID)
	if err != nil {
		return models.Channel{}, notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return models.Channel{}, permissionDenied("The user is not a member of the workspace.")
	}

	// Uniqueness is checked ahead of the transaction; a racing duplicate is
	// accepted as last-write-wins.
	taken, err := s.store.Channels.NameTaken(ctx, payload.WorkspaceID, name)
	if err != nil {
		return models.Channel{}, upstream(err, "Could not check the channel name.")
	}
	if taken {
		return models.Channel{}, conflict("The channel name already exists.")
	}

	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: payload.WorkspaceID,
		Name:        name,
		Members:     models.StringSet{callerID},
		CreatedBy:   callerID,
		Details:     payload.Details,
		Typing:      models.StringSet{},
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		if err := tx.Channels.Create(ctx, &channel); err != nil {
			return err
		}
		return tx.Details.Create(ctx, &models.Detail{
			ObjectID:    models.DetailID(callerID, channel.ObjectID),
			ChatID:      channel.ObjectID,
			UserID:      callerID,
			WorkspaceID: payload.WorkspaceID,
		})
	})
	if err != nil {
		return models.Channel{}, upstream(err, "Could not create the channel.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionCreated,
		ObjectID:    channel.ObjectID,
		WorkspaceID: payload.WorkspaceID,
		ActorID:     callerID,
	})

	return channel, nil
}

func (s *channelService) Update(ctx context.Context, callerID, channelID string, payload dto.UpdateChannelRequest) (models.Channel, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Channel{}, invalidArgument("Invalid channel payload: %v", err)
	}

	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return models.Channel{}, notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return models.Channel{}, permissionDenied("The user is not a member of the channel.")
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		name := normalizeChannelName(*payload.Name)
		if name == "" {
			return models.Channel{}, invalidArgument("Channel name is required.")
		}
		updates["name"] = name
		channel.Name = name
	}
	if payload.Topic != nil {
		updates["topic"] = *payload.Topic
		channel.Topic = *payload.Topic
	}
	if payload.Details != nil {
		updates["details"] = *payload.Details
		channel.Details = *payload.Details
	}
	if len(updates) == 0 {
		return channel, nil
	}

	if err := s.store.Channels.Update(ctx, channelID, updates); err != nil {
		return models.Channel{}, upstream(err, "Could not update the channel.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionUpdated,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return channel, nil
}

// Delete soft-deletes the channel, then clears its read receipts. The receipt
// sweep runs outside the flag flip and is retriable cleanup, not atomic.
func (s *channelService) Delete(ctx context.Context, callerID, channelID string) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the channel.")
	}

	if err := s.store.Channels.Update(ctx, channelID, map[string]interface{}{"is_deleted": true}); err != nil {
		return upstream(err, "Could not delete the channel.")
	}

	if err := s.store.Details.DeleteByChat(ctx, channelID); err != nil {
		s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to delete channel read receipts")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionDeleted,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *channelService) Archive(ctx context.Context, callerID, channelID string) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the channel.")
	}

	if err := s.store.Channels.Update(ctx, channelID, map[string]interface{}{"is_archived": true}); err != nil {
		return upstream(err, "Could not archive the channel.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionArchived,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

// Unarchive reopens the channel for the caller. A returning caller gets a
// fresh receipt at the current counter so the backlog is not shown as
// unread; an existing member's receipt is left untouched.
func (s *channelService) Unarchive(ctx context.Context, callerID, channelID string) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}

	workspace, err := s.store.Workspaces.Get(ctx, channel.WorkspaceID)
	if err != nil {
		return notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the workspace.")
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		current, err := tx.Channels.Get(ctx, channelID)
		if err != nil {
			return err
		}
		alreadyMember := current.Members.Has(callerID)
		if err := tx.Channels.Update(ctx, channelID, map[string]interface{}{
			"is_archived": false,
			"members":     current.Members.Add(callerID),
		}); err != nil {
			return err
		}
		if alreadyMember {
			return nil
		}
		return upsertDetail(ctx, tx, callerID, channelID, current.WorkspaceID, current.LastMessageCounter)
	})
	if err != nil {
		return upstream(err, "Could not unarchive the channel.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionUpdated,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *channelService) AddMember(ctx context.Context, callerID, channelID string, payload dto.AddMemberRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return invalidArgument("Invalid member payload: %v", err)
	}

	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}

	workspace, err := s.store.Workspaces.Get(ctx, channel.WorkspaceID)
	if err != nil {
		return notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the workspace.")
	}

	target, err := s.store.Users.GetByEmail(ctx, payload.Email)
	if err != nil {
		return notFound("The user is not found.")
	}
	if !workspace.Members.Has(target.ObjectID) {
		return permissionDenied("The user is not a member of the workspace.")
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		current, err := tx.Channels.Get(ctx, channelID)
		if err != nil {
			return err
		}
		if err := tx.Channels.Update(ctx, channelID, map[string]interface{}{
			"members": current.Members.Add(target.ObjectID),
		}); err != nil {
			return err
		}
		return upsertDetail(ctx, tx, target.ObjectID, channelID, current.WorkspaceID, current.LastMessageCounter)
	})
	if err != nil {
		return upstream(err, "Could not add the member.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionUpdated,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *channelService) DeleteMember(ctx context.Context, callerID, channelID, userID string) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the channel.")
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		current, err := tx.Channels.Get(ctx, channelID)
		if err != nil {
			return err
		}
		if err := tx.Channels.Update(ctx, channelID, map[string]interface{}{
			"members": current.Members.Remove(userID),
		}); err != nil {
			return err
		}
		return tx.Details.DeleteByChatUser(ctx, channelID, userID)
	})
	if err != nil {
		return upstream(err, "Could not remove the member.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "channel",
		Action:      events.ActionUpdated,
		ObjectID:    channelID,
		WorkspaceID: channel.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *channelService) SetTyping(ctx context.Context, callerID, channelID string, isTyping bool) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the channel.")
	}

	next, changed := nextTypingSet(channel.Typing, callerID, isTyping)
	if !changed {
		return nil
	}

	if err := s.store.Channels.Update(ctx, channelID, map[string]interface{}{"typing": next}); err != nil {
		return upstream(err, "Could not update the typing indicator.")
	}
	return nil
}

func (s *channelService) ResetTyping(ctx context.Context, callerID, channelID string) error {
	channel, err := s.store.Channels.Get(ctx, channelID)
	if err != nil {
		return notFound("Channel not found.")
	}
	if !channel.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the channel.")
	}

	now := s.now()
	if len(channel.Typing) == 0 || now.Sub(channel.LastTypingReset) < s.typingWindow {
		return nil
	}

	if err := s.store.Channels.Update(ctx, channelID, map[string]interface{}{
		"typing":            models.StringSet{},
		"last_typing_reset": now,
	}); err != nil {
		return upstream(err, "Could not reset the typing indicator.")
	}
	return nil
}

// nextTypingSet applies a typing toggle and reports whether the set changed.
func nextTypingSet(current models.StringSet, userID string, isTyping bool) (models.StringSet, bool) {
	if isTyping {
		if current.Has(userID) {
			return current, false
		}
		return current.Add(userID), true
	}
	if !current.Has(userID) {
		return current, false
	}
	return current.Remove(userID), true
}

// upsertDetail creates the (user, chat) read receipt at lastRead, or rewinds
// an existing one to it.
func upsertDetail(ctx context.Context, tx *repository.Store, userID, chatID, workspaceID string, lastRead int64) error {
	id := models.DetailID(userID, chatID)
	if _, err := tx.Details.Get(ctx, id); err == nil {
		return tx.Details.Update(ctx, id, map[string]interface{}{"last_read": lastRead})
	}
	return tx.Details.Create(ctx, &models.Detail{
		ObjectID:    id,
		ChatID:      chatID,
		UserID:      userID,
		WorkspaceID: workspaceID,
		LastRead:    lastRead,
	})
}
