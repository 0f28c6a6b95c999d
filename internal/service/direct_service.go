package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

// DirectService exposes direct-thread use-cases. Create is idempotent: two
// calls against the same pair resolve to the same thread.
type DirectService interface {
	Create(ctx context.Context, callerID string, payload dto.CreateDirectRequest) (models.Direct, error)
	Close(ctx context.Context, callerID, directID string) error
	SetTyping(ctx context.Context, callerID, directID string, isTyping bool) error
	ResetTyping(ctx context.Context, callerID, directID string) error
}

type directService struct {
	store        *repository.Store
	events       *events.Publisher
	validator    *validator.Validate
	logger       zerolog.Logger
	typingWindow time.Duration
	now          func() time.Time
}

// NewDirectService constructs a direct service.
func NewDirectService(store *repository.Store, publisher *events.Publisher, validate *validator.Validate, typingWindow time.Duration, logger zerolog.Logger) DirectService {
	if typingWindow <= 0 {
		typingWindow = 30 * time.Second
	}

	return &directService{
		store:        store,
		events:       publisher,
		validator:    validate,
		logger:       logger.With().Str("component", "direct_service").Logger(),
		typingWindow: typingWindow,
		now:          time.Now,
	}
}

func (s *directService) Create(ctx context.Context, callerID string, payload dto.CreateDirectRequest) (models.Direct, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Direct{}, invalidArgument("Invalid direct payload: %v", err)
	}

	workspace, err := s.store.Workspaces.Get(ctx, payload.WorkspaceID)
	if err != nil {
		return models.Direct{}, notFound("Workspace not found.")
	}
	if !workspace.Members.Has(callerID) {
		return models.Direct{}, permissionDenied("The user is not a member of the workspace.")
	}

	// The listing is ordered created_at DESC, object_id DESC; the first match
	// is the reused thread, keeping repeated calls deterministic.
	directs, err := s.store.Directs.ListByWorkspace(ctx, payload.WorkspaceID)
	if err != nil {
		return models.Direct{}, upstream(err, "Could not list the direct messages.")
	}

	if payload.TargetUserID == callerID {
		for _, direct := range directs {
			if len(direct.Members) == 1 && direct.Members[0] == callerID {
				return s.reactivate(ctx, direct, callerID, callerID)
			}
		}
	} else {
		for _, direct := range directs {
			if direct.Members.Has(callerID) && direct.Members.Has(payload.TargetUserID) && len(direct.Members) == 2 {
				return s.reactivate(ctx, direct, payload.TargetUserID, callerID)
			}
		}
	}

	members := models.StringSet{callerID}
	if payload.TargetUserID != callerID {
		members = members.Add(payload.TargetUserID)
	}

	direct := models.Direct{
		ObjectID:    uuid.NewString(),
		WorkspaceID: payload.WorkspaceID,
		Members:     members,
		Active:      models.StringSet{callerID},
		Typing:      models.StringSet{},
	}

	err = s.store.Atomically(ctx, func(tx *repository.Store) error {
		if err := tx.Directs.Create(ctx, &direct); err != nil {
			return err
		}
		for _, memberID := range members {
			if err := tx.Details.Create(ctx, &models.Detail{
				ObjectID:    models.DetailID(memberID, direct.ObjectID),
				ChatID:      direct.ObjectID,
				UserID:      memberID,
				WorkspaceID: payload.WorkspaceID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Direct{}, upstream(err, "Could not create the direct message.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "direct",
		Action:      events.ActionCreated,
		ObjectID:    direct.ObjectID,
		WorkspaceID: payload.WorkspaceID,
		ActorID:     callerID,
	})

	return direct, nil
}

// reactivate re-surfaces an existing thread for userID.
func (s *directService) reactivate(ctx context.Context, direct models.Direct, userID, callerID string) (models.Direct, error) {
	if direct.Active.Has(userID) {
		return direct, nil
	}

	direct.Active = direct.Active.Add(userID)
	if err := s.store.Directs.Update(ctx, direct.ObjectID, map[string]interface{}{"active": direct.Active}); err != nil {
		return models.Direct{}, upstream(err, "Could not reopen the direct message.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "direct",
		Action:      events.ActionUpdated,
		ObjectID:    direct.ObjectID,
		WorkspaceID: direct.WorkspaceID,
		ActorID:     callerID,
	})

	return direct, nil
}

// Close hides the thread from the caller's list. The thread and its history
// survive; the next message reopens it for everyone.
func (s *directService) Close(ctx context.Context, callerID, directID string) error {
	direct, err := s.store.Directs.Get(ctx, directID)
	if err != nil {
		return notFound("Direct message not found.")
	}
	if !direct.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the direct message.")
	}

	if !direct.Active.Has(callerID) {
		return nil
	}

	if err := s.store.Directs.Update(ctx, directID, map[string]interface{}{"active": direct.Active.Remove(callerID)}); err != nil {
		return upstream(err, "Could not close the direct message.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:      "direct",
		Action:      events.ActionUpdated,
		ObjectID:    directID,
		WorkspaceID: direct.WorkspaceID,
		ActorID:     callerID,
	})

	return nil
}

func (s *directService) SetTyping(ctx context.Context, callerID, directID string, isTyping bool) error {
	direct, err := s.store.Directs.Get(ctx, directID)
	if err != nil {
		return notFound("Direct message not found.")
	}
	if !direct.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the direct message.")
	}

	next, changed := nextTypingSet(direct.Typing, callerID, isTyping)
	if !changed {
		return nil
	}

	if err := s.store.Directs.Update(ctx, directID, map[string]interface{}{"typing": next}); err != nil {
		return upstream(err, "Could not update the typing indicator.")
	}
	return nil
}

func (s *directService) ResetTyping(ctx context.Context, callerID, directID string) error {
	direct, err := s.store.Directs.Get(ctx, directID)
	if err != nil {
		return notFound("Direct message not found.")
	}
	if !direct.Members.Has(callerID) {
		return permissionDenied("The user is not a member of the direct message.")
	}

	now := s.now()
	if len(direct.Typing) == 0 || now.Sub(direct.LastTypingReset) < s.typingWindow {
		return nil
	}

	if err := s.store.Directs.Update(ctx, directID, map[string]interface{}{
		"typing":            models.StringSet{},
		"last_typing_reset": now,
	}); err != nil {
		return upstream(err, "Could not reset the typing indicator.")
	}
	return nil
}
