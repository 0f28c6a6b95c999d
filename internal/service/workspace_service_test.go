package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/models"
	"github.com/tidechat/tide-api/internal/repository"
)

func newWorkspaceService(store *repository.Store, media MediaIngestor) WorkspaceService {
	if media == nil {
		media = &stubIngestor{}
	}
	return NewWorkspaceService(store, media, newTestPublisher(), newTestValidator(), 60, zerolog.Nop())
}

func TestCreateWorkspaceBootstrapsDefaultChats(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)

	created, err := svc.Create(context.Background(), "u1", dto.CreateWorkspaceRequest{Name: "Acme"})
	require.NoError(t, err)
	require.NotEmpty(t, created.WorkspaceID)

	workspace, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.Equal(t, "u1", workspace.OwnerID)
	require.True(t, workspace.Members.Has("u1"))
	require.Equal(t, created.ChannelID, workspace.ChannelID)

	channel, err := dbStore.Channels.Get(context.Background(), created.ChannelID)
	require.NoError(t, err)
	require.Equal(t, "general", channel.Name)
	require.True(t, channel.Members.Has("u1"))

	direct, err := dbStore.Directs.Get(context.Background(), created.DirectID)
	require.NoError(t, err)
	require.Equal(t, models.StringSet{"u1"}, direct.Members)
	require.Equal(t, models.StringSet{"u1"}, direct.Active)

	for _, chatID := range []string{created.ChannelID, created.DirectID} {
		_, err := dbStore.Details.Get(context.Background(), models.DetailID("u1", chatID))
		require.NoError(t, err)
	}
}

func TestUpdateWorkspaceRenameIsOwnerGated(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	workspace := seedWorkspace(t, dbStore, "u1", "u2")

	name := "Rebranded"
	_, err := svc.Update(context.Background(), "u2", workspace.ObjectID, dto.UpdateWorkspaceRequest{Name: &name})
	require.Error(t, err)
	require.Equal(t, KindPermissionDenied, KindOf(err))

	updated, err := svc.Update(context.Background(), "u1", workspace.ObjectID, dto.UpdateWorkspaceRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Rebranded", updated.Name)
}

func TestUpdateWorkspacePhotoPathMustBeScoped(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	workspace := seedWorkspace(t, dbStore, "u1")

	path := "User/u1/avatar.png"
	_, err := svc.Update(context.Background(), "u1", workspace.ObjectID, dto.UpdateWorkspaceRequest{PhotoPath: &path})
	require.Error(t, err)
	require.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestUpdateWorkspacePhotoRunsIngestion(t *testing.T) {
	dbStore := newTestStore(t)
	ingestor := &stubIngestor{attachment: Attachment{
		FileURL:      "https://media.test/Workspace/w/logo.png?token=abc",
		ThumbnailURL: "https://media.test/Workspace/w/logo_thumbnail.jpeg?token=def",
	}}
	svc := newWorkspaceService(dbStore, ingestor)
	workspace := seedWorkspace(t, dbStore, "u1")

	path := "Workspace/" + workspace.ObjectID + "/logo.png"
	updated, err := svc.Update(context.Background(), "u1", workspace.ObjectID, dto.UpdateWorkspaceRequest{PhotoPath: &path})
	require.NoError(t, err)
	require.Equal(t, 1, ingestor.calls)
	require.Equal(t, ingestor.attachment.FileURL, updated.PhotoURL)
	require.Equal(t, ingestor.attachment.ThumbnailURL, updated.ThumbnailURL)
}

func TestAddTeammateKeepsMemberJoinedMidFlight(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	seedUser(t, dbStore, "u2", "u2@acme.test")

	created, err := svc.Create(context.Background(), "u1", dto.CreateWorkspaceRequest{Name: "Acme"})
	require.NoError(t, err)

	// Another caller commits a membership change after the pre-check read
	// but before the transaction opens.
	svc.(*workspaceService).beforeMembershipWrite = func() {
		current, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
		require.NoError(t, err)
		require.NoError(t, dbStore.Workspaces.Update(context.Background(), created.WorkspaceID, map[string]interface{}{
			"members": current.Members.Add("u3"),
		}))
	}

	require.NoError(t, svc.AddTeammate(context.Background(), "u1", created.WorkspaceID, dto.AddTeammateRequest{Email: "u2@acme.test"}))

	workspace, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.True(t, workspace.Members.Has("u2"))
	require.True(t, workspace.Members.Has("u3"))
}

func TestDeleteTeammateKeepsMemberJoinedMidFlight(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	workspace := seedWorkspace(t, dbStore, "u1", "u2")

	svc.(*workspaceService).beforeMembershipWrite = func() {
		current, err := dbStore.Workspaces.Get(context.Background(), workspace.ObjectID)
		require.NoError(t, err)
		require.NoError(t, dbStore.Workspaces.Update(context.Background(), workspace.ObjectID, map[string]interface{}{
			"members": current.Members.Add("u3"),
		}))
	}

	require.NoError(t, svc.DeleteTeammate(context.Background(), "u1", workspace.ObjectID, "u2"))

	stored, err := dbStore.Workspaces.Get(context.Background(), workspace.ObjectID)
	require.NoError(t, err)
	require.False(t, stored.Members.Has("u2"))
	require.True(t, stored.Members.Has("u3"))
}

func TestAddTeammateOnboardsEverything(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	seedUser(t, dbStore, "u2", "u2@acme.test")

	created, err := svc.Create(context.Background(), "u1", dto.CreateWorkspaceRequest{Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, dbStore.Channels.Update(context.Background(), created.ChannelID, map[string]interface{}{
		"last_message_counter": int64(9),
	}))

	require.NoError(t, svc.AddTeammate(context.Background(), "u1", created.WorkspaceID, dto.AddTeammateRequest{Email: "u2@acme.test"}))

	workspace, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.True(t, workspace.Members.Has("u2"))

	channel, err := dbStore.Channels.Get(context.Background(), created.ChannelID)
	require.NoError(t, err)
	require.True(t, channel.Members.Has("u2"))

	channelDetail, err := dbStore.Details.Get(context.Background(), models.DetailID("u2", created.ChannelID))
	require.NoError(t, err)
	require.Equal(t, int64(9), channelDetail.LastRead)

	directs, err := dbStore.Directs.ListByWorkspace(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	// Creator's self-direct, the pair thread and the teammate's self-direct.
	require.Len(t, directs, 3)

	var pair, self *models.Direct
	for i := range directs {
		direct := directs[i]
		if len(direct.Members) == 2 {
			pair = &directs[i]
		}
		if len(direct.Members) == 1 && direct.Members[0] == "u2" {
			self = &directs[i]
		}
	}
	require.NotNil(t, pair)
	require.NotNil(t, self)
	require.Equal(t, models.StringSet{"u1"}, pair.Active)

	for _, userID := range []string{"u1", "u2"} {
		_, err := dbStore.Details.Get(context.Background(), models.DetailID(userID, pair.ObjectID))
		require.NoError(t, err)
	}
	_, err = dbStore.Details.Get(context.Background(), models.DetailID("u2", self.ObjectID))
	require.NoError(t, err)
}

func TestAddTeammateAlreadyMemberConflicts(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	seedUser(t, dbStore, "u2", "u2@acme.test")
	workspace := seedWorkspace(t, dbStore, "u1", "u2")

	err := svc.AddTeammate(context.Background(), "u1", workspace.ObjectID, dto.AddTeammateRequest{Email: "u2@acme.test"})
	require.Error(t, err)
	require.Equal(t, KindConflict, KindOf(err))
}

func TestDeleteTeammateCascades(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	seedUser(t, dbStore, "u2", "u2@acme.test")

	created, err := svc.Create(context.Background(), "u1", dto.CreateWorkspaceRequest{Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, svc.AddTeammate(context.Background(), "u1", created.WorkspaceID, dto.AddTeammateRequest{Email: "u2@acme.test"}))

	require.NoError(t, svc.DeleteTeammate(context.Background(), "u1", created.WorkspaceID, "u2"))

	workspace, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.False(t, workspace.Members.Has("u2"))

	channel, err := dbStore.Channels.Get(context.Background(), created.ChannelID)
	require.NoError(t, err)
	require.False(t, channel.Members.Has("u2"))

	directs, err := dbStore.Directs.ListByWorkspace(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, directs, 1)
	require.Equal(t, models.StringSet{"u1"}, directs[0].Members)

	_, err = dbStore.Details.Get(context.Background(), models.DetailID("u2", created.ChannelID))
	require.Error(t, err)
}

func TestDeleteTeammateCannotRemoveOwner(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	workspace := seedWorkspace(t, dbStore, "u1", "u2")

	err := svc.DeleteTeammate(context.Background(), "u2", workspace.ObjectID, "u1")
	require.Error(t, err)
	require.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)

	created, err := svc.Create(context.Background(), "u1", dto.CreateWorkspaceRequest{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "u1", created.WorkspaceID))

	workspace, err := dbStore.Workspaces.Get(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.True(t, workspace.IsDeleted)

	channel, err := dbStore.Channels.Get(context.Background(), created.ChannelID)
	require.NoError(t, err)
	require.True(t, channel.IsDeleted)

	// Directs survive the sweep; the dead workspace flag is what hides them.
	directs, err := dbStore.Directs.ListByWorkspace(context.Background(), created.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, directs, 1)

	details, err := dbStore.Details.ListByChat(context.Background(), created.ChannelID)
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestDeleteWorkspaceIsOwnerGated(t *testing.T) {
	dbStore := newTestStore(t)
	svc := newWorkspaceService(dbStore, nil)
	workspace := seedWorkspace(t, dbStore, "u1", "u2")

	err := svc.Delete(context.Background(), "u2", workspace.ObjectID)
	require.Error(t, err)
	require.Equal(t, KindPermissionDenied, KindOf(err))
}
