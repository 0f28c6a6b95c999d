package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

// Name of the channel every workspace starts with.
const defaultChannelName = "general"

// WorkspaceService coordinates workspace lifecycle and team membership.
type WorkspaceService interface {
	Create(ctx context.Context, callerID string, payload dto.CreateWorkspaceRequest) (dto.WorkspaceBootstrapResponse, error)
	Update(ctx context.Context, callerID, workspaceID string, payload dto.UpdateWorkspaceRequest) (models.Workspace, error)
	Delete(ctx context.Context, callerID, workspaceID string) error
	AddTeammate(ctx context.Context, callerID, workspaceID string, payload dto.AddTeammateRequest) error
	DeleteTeammate(ctx context.Context, callerID, workspaceID, userID string) error
}

type workspaceService struct {
	store       *repository.Store
	media       MediaIngestor
	events      *events.Publisher
	validator   *validator.Validate
	logger      zerolog.Logger
	avatarWidth int

	// Test seam. Runs between the permission checks and the membership
	// transaction; nil outside tests.
	beforeMembershipWrite func()
}

// NewWorkspaceService constructs a workspace service.
func NewWorkspaceService(store *repository.Store, media MediaIngestor, publisher *events.Publisher, validate *validator.Validate, avatarWidth int, logger zerolog.Logger) WorkspaceService {
	if avatarWidth <= 0 {
		avatarWidth = 60
	}

	return &workspaceService{
		store:       store,
		media:       media,
		events:      publisher,
		validator:   validate,
		logger:      logger.With().Str("component", "workspace_service").Logger(),
		avatarWidth: avatarWidth,
	}
}

// Create bootstraps a workspace: the default channel, the creator's
// self-direct and both read receipts, then the workspace row itself. The
// sequence is best-effort; a mid-sequence failure leaves retriable debris but
// never a workspace row pointing at missing chats.
func (s *workspaceService) Create(ctx context.Context, callerID string, payload dto.CreateWorkspaceRequest) (dto.WorkspaceBootstrapResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.WorkspaceBootstrapResponse{}, invalidArgument("Invalid workspace payload: %v", err)
	}

	workspaceID := uuid.NewString()
	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        defaultChannelName,
		Members:     models.StringSet{callerID},
		CreatedBy:   callerID,
		Typing:      models.StringSet{},
	}
	direct := models.Direct{
		ObjectID:    uuid.NewString(),
		WorkspaceID: workspaceID,
		Members:     models.StringSet{callerID},
		Active:      models.StringSet{callerID},
		Typing:      models.StringSet{},
	}

	if err := s.store.Channels.Create(ctx, &channel); err != nil {
		return dto.WorkspaceBootstrapResponse{}, upstream(err, "Could not create the workspace.")
	}
	if err := s.store.Directs.Create(ctx, &direct); err != nil {
		return dto.WorkspaceBootstrapResponse{}, upstream(err, "Could not create the workspace.")
	}
	for _, chatID := range []string{channel.ObjectID, direct.ObjectID} {
		if err := s.store.Details.Create(ctx, &models.Detail{
			ObjectID:    models.DetailID(callerID, chatID),
			ChatID:      chatID,
			UserID:      callerID,
			WorkspaceID: workspaceID,
		}); err != nil {
			return dto.WorkspaceBootstrapResponse{}, upstream(err, "Could not create the workspace.")
		}
	}

	workspace := models.Workspace{
		ObjectID:  workspaceID,
		Name:      strings.TrimSpace(payload.Name),
		OwnerID:   callerID,
		Members:   models.StringSet{callerID},
		ChannelID: channel.ObjectID,
		Details:   payload.Details,
	}
	if err := s.store.Workspaces.Create(ctx, &workspace); err != nil {
		return dto.WorkspaceBootstrapResponse{}, upstream(err, "Could not create the workspace.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "workspace",
		Action:      events.ActionCreated,
		ObjectID:    workspaceID,
		WorkspaceID: workspaceID,
		ActorID:     callerID,
	})

	return dto.WorkspaceBootstrapResponse{
		WorkspaceID: workspaceID,
		ChannelID:   channel.ObjectID,
		DirectID:    direct.ObjectID,
	}, nil
}

func (s *workspaceService) Update(ctx context.Context, callerID, workspaceID string, payload dto.UpdateWorkspaceRequest) (models.Workspace, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Workspace{}, invalidArgument("Invalid workspace payload: %v", err)
	}

	workspace, err := s.store.Workspaces.Get(ctx, workspaceID)
	if err != nil {
		return models.Workspace{}, notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return models.Workspace{}, permissionDenied("The user is not a member of the workspace.")
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		if workspace.OwnerID != callerID {
			return models.Workspace{}, permissionDenied("Only the owner can rename the workspace.")
		}
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return models.Workspace{}, invalidArgument("Workspace name is required.")
		}
		updates["name"] = name
		workspace.Name = name
	}
	if payload.Details != nil {
		updates["details"] = *payload.Details
		workspace.Details = *payload.Details
	}
	if payload.PhotoPath != nil && *payload.PhotoPath != "" {
		if !strings.HasPrefix(*payload.PhotoPath, "Workspace/"+workspaceID) {
			return models.Workspace{}, invalidArgument("The photo path is invalid.")
		}
		attachment, err := s.media.Ingest(ctx, *payload.PhotoPath, ThumbnailOptions{
			Width:  s.avatarWidth,
			Height: s.avatarWidth,
		})
		if err != nil {
			return models.Workspace{}, err
		}
		thumbnail := attachment.ThumbnailURL
		if thumbnail == "" {
			thumbnail = attachment.FileURL
		}
		updates["photo_url"] = attachment.FileURL
		updates["thumbnail_url"] = thumbnail
		workspace.PhotoURL = attachment.FileURL
		workspace.ThumbnailURL = thumbnail
	}
	if len(updates) == 0 {
		return workspace, nil
	}

	if err := s.store.Workspaces.Update(ctx, workspaceID, updates); err != nil {
		return models.Workspace{}, upstream(err, "Could not update the workspace.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "workspace",
		Action:      events.ActionUpdated,
		ObjectID:    workspaceID,
		WorkspaceID: workspaceID,
		ActorID:     callerID,
	})

	return workspace, nil
}

// Delete flips the workspace flag, then sweeps receipts and channels as
// independent idempotent writes. A failing sub-write is logged and skipped
// so one error does not block the rest of the cleanup. Directs are left in
// place; they become unreachable once the workspace flag is set.
func (s *workspaceService) Delete(ctx context.Context, callerID, workspaceID string) error {
	workspace, err := s.store.Workspaces.Get(ctx, workspaceID)
	if err != nil {
		return notFound("Workspace not found.")
	}
	if workspace.OwnerID != callerID {
		return permissionDenied("Only the owner can delete the workspace.")
	}

	if err := s.store.Workspaces.Update(ctx, workspaceID, map[string]interface{}{"is_deleted": true}); err != nil {
		return upstream(err, "Could not delete the workspace.")
	}

	if err := s.store.Details.DeleteByWorkspace(ctx, workspaceID); err != nil {
		s.logger.Warn().Err(err).Str("workspace_id", workspaceID).Msg("failed to delete workspace read receipts")
	}

	channels, err := s.store.Channels.ListActiveByWorkspace(ctx, workspaceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace_id", workspaceID).Msg("failed to list workspace channels")
	}
	for _, channel := range channels {
		if err := s.store.Channels.Update(ctx, channel.ObjectID, map[string]interface{}{"is_deleted": true}); err != nil {
			s.logger.Warn().Err(err).Str("channel_id", channel.ObjectID).Msg("failed to delete workspace channel")
		}
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "workspace",
		Action:      events.ActionDeleted,
		ObjectID:    workspaceID,
		WorkspaceID: workspaceID,
		ActorID:     callerID,
	})

	return nil
}

// AddTeammate grants a registered user the full onboarding set in one
// transaction: workspace and default-channel membership, a pair direct, their
// self-direct and the four read receipts.
func (s *workspaceService) AddTeammate(ctx context.Context, callerID, workspaceID string, payload dto.AddTeammateRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return invalidArgument("Invalid teammate payload: %v", err)
	}

	workspace, err := s.store.Workspaces.Get(ctx, workspaceID)
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
	if workspace.Members.Has(target.ObjectID) {
		return conflict("The user is already a member of the workspace.")
	}

	if s.beforeMembershipWrite != nil {
		s.beforeMembershipWrite()
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		// The member set is re-read inside the transaction so a concurrent
		// membership change is never overwritten by the stale pre-check row.
		current, err := tx.Workspaces.Get(ctx, workspaceID)
		if err != nil {
			return err
		}
		if current.Members.Has(target.ObjectID) {
			return conflict("The user is already a member of the workspace.")
		}
		if err := tx.Workspaces.Update(ctx, workspaceID, map[string]interface{}{
			"members": current.Members.Add(target.ObjectID),
		}); err != nil {
			return err
		}

		channel, err := tx.Channels.Get(ctx, workspace.ChannelID)
		if err != nil {
			return err
		}
		if err := tx.Channels.Update(ctx, channel.ObjectID, map[string]interface{}{
			"members": channel.Members.Add(target.ObjectID),
		}); err != nil {
			return err
		}

		pair := models.Direct{
			ObjectID:    uuid.NewString(),
			WorkspaceID: workspaceID,
			Members:     models.StringSet{callerID, target.ObjectID},
			Active:      models.StringSet{callerID},
			Typing:      models.StringSet{},
		}
		if err := tx.Directs.Create(ctx, &pair); err != nil {
			return err
		}

		self := models.Direct{
			ObjectID:    uuid.NewString(),
			WorkspaceID: workspaceID,
			Members:     models.StringSet{target.ObjectID},
			Active:      models.StringSet{target.ObjectID},
			Typing:      models.StringSet{},
		}
		if err := tx.Directs.Create(ctx, &self); err != nil {
			return err
		}

		// The joiner starts reading the default channel at its current
		// counter so history is not shown as unread.
		if err := upsertDetail(ctx, tx, target.ObjectID, channel.ObjectID, workspaceID, channel.LastMessageCounter); err != nil {
			return err
		}
		for _, memberID := range pair.Members {
			if err := tx.Details.Create(ctx, &models.Detail{
				ObjectID:    models.DetailID(memberID, pair.ObjectID),
				ChatID:      pair.ObjectID,
				UserID:      memberID,
				WorkspaceID: workspaceID,
			}); err != nil {
				return err
			}
		}
		return tx.Details.Create(ctx, &models.Detail{
			ObjectID:    models.DetailID(target.ObjectID, self.ObjectID),
			ChatID:      self.ObjectID,
			UserID:      target.ObjectID,
			WorkspaceID: workspaceID,
		})
	})
	if err != nil {
		if KindOf(err) != KindUnknown {
			return err
		}
		return upstream(err, "Could not add the teammate.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "workspace",
		Action:      events.ActionUpdated,
		ObjectID:    workspaceID,
		WorkspaceID: workspaceID,
		ActorID:     callerID,
	})

	return nil
}

// DeleteTeammate revokes workspace membership, then sweeps the user's
// receipts, directs and channel memberships as best-effort cleanup.
func (s *workspaceService) DeleteTeammate(ctx context.Context, callerID, workspaceID, userID string) error {
	workspace, err := s.store.Workspaces.Get(ctx, workspaceID)
	if err != nil {
		return notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the workspace.")
	}
	if userID == workspace.OwnerID {
		return permissionDenied("The owner cannot be removed from the workspace.")
	}

	if s.beforeMembershipWrite != nil {
		s.beforeMembershipWrite()
	}

	// The primary membership flip re-reads the row inside a transaction so
	// concurrent joins committed after the pre-check survive the removal.
	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		current, err := tx.Workspaces.Get(ctx, workspaceID)
		if err != nil {
			return err
		}
		return tx.Workspaces.Update(ctx, workspaceID, map[string]interface{}{
			"members": current.Members.Remove(userID),
		})
	})
	if err != nil {
		return upstream(err, "Could not remove the teammate.")
	}

	if err := s.store.Details.DeleteByWorkspaceUser(ctx, workspaceID, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to delete teammate read receipts")
	}

	directs, err := s.store.Directs.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace_id", workspaceID).Msg("failed to list workspace directs")
	}
	for _, direct := range directs {
		if !direct.Members.Has(userID) {
			continue
		}
		if err := s.store.Directs.Delete(ctx, direct.ObjectID); err != nil {
			s.logger.Warn().Err(err).Str("direct_id", direct.ObjectID).Msg("failed to delete teammate direct")
		}
	}

	channels, err := s.store.Channels.ListActiveByWorkspace(ctx, workspaceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace_id", workspaceID).Msg("failed to list workspace channels")
	}
	for _, channel := range channels {
		if !channel.Members.Has(userID) {
			continue
		}
		if err := s.store.Channels.Update(ctx, channel.ObjectID, map[string]interface{}{
			"members": channel.Members.Remove(userID),
		}); err != nil {
			s.logger.Warn().Err(err).Str("channel_id", channel.ObjectID).Msg("failed to remove teammate from channel")
		}
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "workspace",
		Action:      events.ActionUpdated,
		ObjectID:    workspaceID,
		WorkspaceID: workspaceID,
		ActorID:     callerID,
	})

	return nil
}
