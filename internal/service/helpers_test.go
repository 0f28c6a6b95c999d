package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/events"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Workspace{},
		&models.Channel{},
		&models.Direct{},
		&models.Message{},
		&models.Detail{},
		&models.User{},
		&models.SchemaVersion{},
	))
	return repository.NewStore(db)
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newTestPublisher() *events.Publisher {
	return events.NewPublisher(nil, nil, "tide-test", zerolog.Nop())
}

func seedWorkspace(t *testing.T, store *repository.Store, ownerID string, memberIDs ...string) models.Workspace {
	t.Helper()

	members := models.StringSet{ownerID}
	for _, id := range memberIDs {
		members = members.Add(id)
	}
	workspace := models.Workspace{
		ObjectID: uuid.NewString(),
		Name:     "Acme",
		OwnerID:  ownerID,
		Members:  members,
	}
	require.NoError(t, store.Workspaces.Create(context.Background(), &workspace))
	return workspace
}

func seedChannel(t *testing.T, store *repository.Store, workspaceID, name string, memberIDs ...string) models.Channel {
	t.Helper()

	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Members:     models.StringSet(memberIDs),
		Typing:      models.StringSet{},
	}
	require.NoError(t, store.Channels.Create(context.Background(), &channel))
	return channel
}

func seedDirect(t *testing.T, store *repository.Store, workspaceID string, memberIDs []string, activeIDs []string) models.Direct {
	t.Helper()

	direct := models.Direct{
		ObjectID:    uuid.NewString(),
		WorkspaceID: workspaceID,
		Members:     models.StringSet(memberIDs),
		Active:      models.StringSet(activeIDs),
		Typing:      models.StringSet{},
	}
	require.NoError(t, store.Directs.Create(context.Background(), &direct))
	return direct
}

func seedUser(t *testing.T, store *repository.Store, id, email string) models.User {
	t.Helper()

	user := models.User{ObjectID: id, FullName: "User " + id, Email: email}
	require.NoError(t, store.Users.Create(context.Background(), &user))
	return user
}
