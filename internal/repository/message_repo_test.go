package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tidechat/tide-api/internal/models"
)

func setupChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
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
	return db
}

func TestMessageRepositoryLastVisibleSkipsDeleted(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.Message{
			ObjectID: uuid.NewString(),
			ChatID:   "chan-1",
			ChatType: "Channel",
			Text:     text,
			Counter:  int64(i + 1),
		}))
	}

	last, err := repo.LastVisible(ctx, "chan-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "third", last.Text)

	require.NoError(t, repo.Update(ctx, last.ObjectID, map[string]interface{}{"is_deleted": true}))

	last, err = repo.LastVisible(ctx, "chan-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "second", last.Text)
}

func TestMessageRepositoryLastVisibleEmptyChat(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewMessageRepository(db)

	last, err := repo.LastVisible(context.Background(), "no-such-chat")
	require.NoError(t, err)
	require.Nil(t, last)
}

func TestChannelRepositoryIncrementCounterIsMonotonic(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChannelRepository(db)
	ctx := context.Background()

	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: "ws-1",
		Name:        "general",
		Members:     models.StringSet{"u1"},
	}
	require.NoError(t, repo.Create(ctx, &channel))

	for want := int64(1); want <= 5; want++ {
		got, err := repo.IncrementCounter(ctx, channel.ObjectID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := repo.IncrementCounter(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChannelRepositoryIncrementCounterConcurrentCallers(t *testing.T) {
	// File-backed so every goroutine sees one shared database; a single
	// pooled connection makes the transactions queue instead of failing
	// with a busy error.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "chat.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Channel{}))

	store := NewStore(db)
	ctx := context.Background()

	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: "ws-1",
		Name:        "general",
		Members:     models.StringSet{"u1"},
	}
	require.NoError(t, store.Channels.Create(ctx, &channel))

	const writers = 16
	counters := make(chan int64, writers)
	errs := make(chan error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Atomically(ctx, func(tx *Store) error {
				got, err := tx.Channels.IncrementCounter(ctx, channel.ObjectID)
				if err != nil {
					return err
				}
				counters <- got
				return nil
			})
		}()
	}
	wg.Wait()
	close(counters)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int64]bool, writers)
	for counter := range counters {
		require.False(t, seen[counter], "counter %d handed out twice", counter)
		seen[counter] = true
	}
	require.Len(t, seen, writers)

	stored, err := store.Channels.Get(ctx, channel.ObjectID)
	require.NoError(t, err)
	require.Equal(t, int64(writers), stored.LastMessageCounter)
}

func TestDirectRepositoryListByWorkspaceNewestFirst(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewDirectRepository(db)
	ctx := context.Background()

	older := models.Direct{ObjectID: "dm-a", WorkspaceID: "ws-1", Members: models.StringSet{"u1", "u2"}}
	newer := models.Direct{ObjectID: "dm-b", WorkspaceID: "ws-1", Members: models.StringSet{"u1", "u2"}}
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	backdated := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Direct{}).
		Where("object_id = ?", older.ObjectID).
		UpdateColumn("created_at", backdated).Error)

	directs, err := repo.ListByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, directs, 2)
	require.Equal(t, "dm-b", directs[0].ObjectID)
	require.Equal(t, "dm-a", directs[1].ObjectID)
}

func TestStoreAtomicallyRollsBackOnError(t *testing.T) {
	db := setupChatTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	channel := models.Channel{
		ObjectID:    uuid.NewString(),
		WorkspaceID: "ws-1",
		Name:        "general",
		Members:     models.StringSet{"u1"},
	}
	require.NoError(t, store.Channels.Create(ctx, &channel))

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(tx *Store) error {
		if _, err := tx.Channels.IncrementCounter(ctx, channel.ObjectID); err != nil {
			return err
		}
		if err := tx.Messages.Create(ctx, &models.Message{
			ObjectID: uuid.NewString(),
			ChatID:   channel.ObjectID,
			ChatType: "Channel",
			Text:     "never lands",
			Counter:  1,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := store.Channels.Get(ctx, channel.ObjectID)
	require.NoError(t, err)
	require.Zero(t, reloaded.LastMessageCounter)

	last, err := store.Messages.LastVisible(ctx, channel.ObjectID)
	require.NoError(t, err)
	require.Nil(t, last)
}
