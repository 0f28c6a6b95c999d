package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/models"
)

func TestChannelCreateStripsPrefixAndCreatesReceipt(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")

	channel, err := svc.Create(context.Background(), "u1", dto.CreateChannelRequest{
		WorkspaceID: workspace.ObjectID,
		Name:        "#random",
	})
	require.NoError(t, err)
	require.Equal(t, "random", channel.Name)
	require.True(t, channel.Members.Has("u1"))

	detail, err := dbStore.Details.Get(context.Background(), models.DetailID("u1", channel.ObjectID))
	require.NoError(t, err)
	require.Equal(t, int64(0), detail.LastRead)
}

func TestChannelCreateDuplicateNameRejected(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")

	_, err := svc.Create(context.Background(), "u1", dto.CreateChannelRequest{
		WorkspaceID: workspace.ObjectID,
		Name:        "#random",
	})
	require.Error(t, err)
	require.Equal(t, KindConflict, KindOf(err))
}

func TestChannelCreateRequiresWorkspaceMembership(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")

	_, err := svc.Create(context.Background(), "intruder", dto.CreateChannelRequest{
		WorkspaceID: workspace.ObjectID,
		Name:        "random",
	})
	require.Error(t, err)
	require.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestChannelUpdatePatchesOnlyProvidedFields(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")
	require.NoError(t, dbStore.Channels.Update(context.Background(), channel.ObjectID, map[string]interface{}{"details": "keep me"}))

	topic := "weekly sync"
	_, err := svc.Update(context.Background(), "u1", channel.ObjectID, dto.UpdateChannelRequest{Topic: &topic})
	require.NoError(t, err)

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.Equal(t, "weekly sync", stored.Topic)
	require.Equal(t, "keep me", stored.Details)
	require.Equal(t, "random", stored.Name)
}

func TestChannelUnarchiveRestoresMembershipAtCurrentCounter(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1", "u2")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")
	require.NoError(t, dbStore.Channels.Update(context.Background(), channel.ObjectID, map[string]interface{}{
		"is_archived":          true,
		"last_message_counter": int64(7),
	}))

	require.NoError(t, svc.Unarchive(context.Background(), "u2", channel.ObjectID))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.False(t, stored.IsArchived)
	require.True(t, stored.Members.Has("u2"))

	detail, err := dbStore.Details.Get(context.Background(), models.DetailID("u2", channel.ObjectID))
	require.NoError(t, err)
	require.Equal(t, int64(7), detail.LastRead)
}

func TestChannelUnarchiveKeepsExistingMemberReceipt(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")
	require.NoError(t, dbStore.Channels.Update(context.Background(), channel.ObjectID, map[string]interface{}{
		"is_archived":          true,
		"last_message_counter": int64(7),
	}))
	require.NoError(t, dbStore.Details.Create(context.Background(), &models.Detail{
		ObjectID:    models.DetailID("u1", channel.ObjectID),
		ChatID:      channel.ObjectID,
		UserID:      "u1",
		WorkspaceID: workspace.ObjectID,
		LastRead:    2,
	}))

	require.NoError(t, svc.Unarchive(context.Background(), "u1", channel.ObjectID))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.False(t, stored.IsArchived)

	// The unread backlog of a member who never left must survive unarchiving.
	detail, err := dbStore.Details.Get(context.Background(), models.DetailID("u1", channel.ObjectID))
	require.NoError(t, err)
	require.Equal(t, int64(2), detail.LastRead)
}

func TestChannelAddMemberCreatesReceiptAtCurrentCounter(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	seedUser(t, dbStore, "u2", "u2@acme.test")
	workspace := seedWorkspace(t, dbStore, "u1", "u2")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")
	require.NoError(t, dbStore.Channels.Update(context.Background(), channel.ObjectID, map[string]interface{}{"last_message_counter": int64(3)}))

	require.NoError(t, svc.AddMember(context.Background(), "u1", channel.ObjectID, dto.AddMemberRequest{Email: "u2@acme.test"}))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.True(t, stored.Members.Has("u2"))

	detail, err := dbStore.Details.Get(context.Background(), models.DetailID("u2", channel.ObjectID))
	require.NoError(t, err)
	require.Equal(t, int64(3), detail.LastRead)
}

func TestChannelDeleteMemberRemovesReceipt(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1", "u2")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1", "u2")
	require.NoError(t, dbStore.Details.Create(context.Background(), &models.Detail{
		ObjectID: models.DetailID("u2", channel.ObjectID),
		ChatID:   channel.ObjectID,
		UserID:   "u2",
	}))

	require.NoError(t, svc.DeleteMember(context.Background(), "u1", channel.ObjectID, "u2"))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.False(t, stored.Members.Has("u2"))

	_, err = dbStore.Details.Get(context.Background(), models.DetailID("u2", channel.ObjectID))
	require.Error(t, err)
}

func TestChannelDeleteSoftDeletesAndSweepsReceipts(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")
	require.NoError(t, dbStore.Details.Create(context.Background(), &models.Detail{
		ObjectID: models.DetailID("u1", channel.ObjectID),
		ChatID:   channel.ObjectID,
		UserID:   "u1",
	}))

	require.NoError(t, svc.Delete(context.Background(), "u1", channel.ObjectID))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.True(t, stored.IsDeleted)

	details, err := dbStore.Details.ListByChat(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestSetTypingIsIdempotent(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")

	require.NoError(t, svc.SetTyping(context.Background(), "u1", channel.ObjectID, true))
	require.NoError(t, svc.SetTyping(context.Background(), "u1", channel.ObjectID, true))

	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.Equal(t, models.StringSet{"u1"}, stored.Typing)

	require.NoError(t, svc.SetTyping(context.Background(), "u1", channel.ObjectID, false))
	stored, err = dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.False(t, stored.Typing.Has("u1"))
}

func TestResetTypingDebouncesInsideWindow(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1", "u2")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1", "u2")

	base := time.Now()
	require.NoError(t, dbStore.Channels.Update(context.Background(), channel.ObjectID, map[string]interface{}{
		"typing":            models.StringSet{"u2"},
		"last_typing_reset": base,
	}))

	impl := svc.(*channelService)

	// Inside the window the reset is a no-op.
	impl.now = func() time.Time { return base.Add(10 * time.Second) }
	require.NoError(t, svc.ResetTyping(context.Background(), "u1", channel.ObjectID))
	stored, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.True(t, stored.Typing.Has("u2"))

	impl.now = func() time.Time { return base.Add(31 * time.Second) }
	require.NoError(t, svc.ResetTyping(context.Background(), "u1", channel.ObjectID))
	stored, err = dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.Empty(t, stored.Typing)
}

func TestResetTypingSkipsEmptySet(t *testing.T) {
	dbStore := newTestStore(t)
	svc := NewChannelService(dbStore, newTestPublisher(), newTestValidator(), 30*time.Second, zerolog.Nop())
	workspace := seedWorkspace(t, dbStore, "u1")
	channel := seedChannel(t, dbStore, workspace.ObjectID, "random", "u1")

	before, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)

	impl := svc.(*channelService)
	impl.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, svc.ResetTyping(context.Background(), "u1", channel.ObjectID))

	after, err := dbStore.Channels.Get(context.Background(), channel.ObjectID)
	require.NoError(t, err)
	require.Equal(t, before.LastTypingReset.UTC(), after.LastTypingReset.UTC())
}
