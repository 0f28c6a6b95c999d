package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

// UserService exposes the collaborator profile surface. All mutations are
// self-only: the caller can touch nothing but their own row.
type UserService interface {
	Create(ctx context.Context, callerID string, payload dto.CreateUserRequest) (models.User, error)
	Update(ctx context.Context, callerID, userID string, payload dto.UpdateUserRequest) (models.User, error)
	UpdatePresence(ctx context.Context, callerID, userID string) error
	MarkRead(ctx context.Context, callerID string, payload dto.MarkReadRequest) error
}

type userService struct {
	store       *repository.Store
	media       MediaIngestor
	validator   *validator.Validate
	events      *events.Publisher
	logger      zerolog.Logger
	avatarWidth int
	now         func() time.Time
}

// NewUserService constructs a user service.
func NewUserService(store *repository.Store, media MediaIngestor, publisher *events.Publisher, validate *validator.Validate, avatarWidth int, logger zerolog.Logger) UserService {
	if avatarWidth <= 0 {
		avatarWidth = 60
	}

	return &userService{
		store:       store,
		media:       media,
		validator:   validate,
		events:      publisher,
		logger:      logger.With().Str("component", "user_service").Logger(),
		avatarWidth: avatarWidth,
		now:         time.Now,
	}
}

func (s *userService) Create(ctx context.Context, callerID string, payload dto.CreateUserRequest) (models.User, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.User{}, invalidArgument("Invalid user payload: %v", err)
	}

	if _, err := s.store.Users.Get(ctx, callerID); err == nil {
		return models.User{}, conflict("The user already exists.")
	}

	user := models.User{
		ObjectID:     callerID,
		FullName:     payload.FullName,
		DisplayName:  payload.DisplayName,
		Email:        payload.Email,
		PhoneNumber:  payload.PhoneNumber,
		Title:        payload.Title,
		Theme:        payload.Theme,
		LastPresence: s.now(),
	}
	if err := s.store.Users.Create(ctx, &user); err != nil {
		return models.User{}, upstream(err, "Could not create the user.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:   "user",
		Action:   events.ActionCreated,
		ObjectID: callerID,
		ActorID:  callerID,
	})

	return user, nil
}

func (s *userService) Update(ctx context.Context, callerID, userID string, payload dto.UpdateUserRequest) (models.User, error) {
	if callerID != userID {
		return models.User{}, permissionDenied("The user can only update their own profile.")
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.User{}, invalidArgument("Invalid user payload: %v", err)
	}

	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		return models.User{}, notFound("The user is not found.")
	}

	updates := map[string]interface{}{}
	if payload.FullName != nil {
		updates["full_name"] = *payload.FullName
		user.FullName = *payload.FullName
	}
	if payload.DisplayName != nil {
		updates["display_name"] = *payload.DisplayName
		user.DisplayName = *payload.DisplayName
	}
	if payload.PhoneNumber != nil {
		updates["phone_number"] = *payload.PhoneNumber
		user.PhoneNumber = *payload.PhoneNumber
	}
	if payload.Title != nil {
		updates["title"] = *payload.Title
		user.Title = *payload.Title
	}
	if payload.Theme != nil {
		updates["theme"] = *payload.Theme
		user.Theme = *payload.Theme
	}
	if payload.PhotoPath != nil && *payload.PhotoPath != "" {
		if !strings.HasPrefix(*payload.PhotoPath, "User/"+userID) {
			return models.User{}, invalidArgument("The photo path is invalid.")
		}
		attachment, err := s.media.Ingest(ctx, *payload.PhotoPath, ThumbnailOptions{
			Width:  s.avatarWidth,
			Height: s.avatarWidth,
		})
		if err != nil {
			return models.User{}, err
		}
		thumbnail := attachment.ThumbnailURL
		if thumbnail == "" {
			thumbnail = attachment.FileURL
		}
		updates["photo_url"] = attachment.FileURL
		updates["thumbnail_url"] = thumbnail
		user.PhotoURL = attachment.FileURL
		user.ThumbnailURL = thumbnail
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.store.Users.Update(ctx, userID, updates); err != nil {
		return models.User{}, upstream(err, "Could not update the user.")
	}

	s.events.Publish(ctx, events.Event{
		Entity:   "user",
		Action:   events.ActionUpdated,
		ObjectID: userID,
		ActorID:  callerID,
	})

	return user, nil
}

func (s *userService) UpdatePresence(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		return permissionDenied("The user can only update their own presence.")
	}

	if err := s.store.Users.Update(ctx, userID, map[string]interface{}{"last_presence": s.now()}); err != nil {
		return upstream(err, "Could not update the presence.")
	}
	return nil
}

// MarkRead advances the caller's read receipt to the chat's newest counter.
func (s *userService) MarkRead(ctx context.Context, callerID string, payload dto.MarkReadRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return invalidArgument("Invalid read payload: %v", err)
	}

	err := s.store.Atomically(ctx, func(tx *repository.Store) error {
		state, err := loadChatState(ctx, tx, payload.ChatType, payload.ChatID)
		if err != nil {
			return err
		}
		if !state.members.Has(callerID) {
			return permissionDenied("The user is not a member of the chat.")
		}
		return tx.Details.Update(ctx, models.DetailID(callerID, payload.ChatID), map[string]interface{}{
			"last_read": state.counter,
		})
	})
	if err != nil {
		if KindOf(err) != KindUnknown {
			return err
		}
		return upstream(err, "Could not mark the chat as read.")
	}
	return nil
}
