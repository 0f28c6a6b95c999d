package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store aggregates the entity repositories over a single database handle.
// Atomically rebinds every repository to one transaction so multi-document
// invariants (membership, counters, read receipts, summaries) commit or roll
// back together.
type Store struct {
	db *gorm.DB

	Workspaces WorkspaceRepository
	Channels   ChannelRepository
	Directs    DirectRepository
	Messages   MessageRepository
	Details    DetailRepository
	Users      UserRepository
	Versions   VersionRepository
}

// NewStore constructs a store over the given handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Workspaces: NewWorkspaceRepository(db),
		Channels:   NewChannelRepository(db),
		Directs:    NewDirectRepository(db),
		Messages:   NewMessageRepository(db),
		Details:    NewDetailRepository(db),
		Users:      NewUserRepository(db),
		Versions:   NewVersionRepository(db),
	}
}

// Atomically runs fn inside one database transaction. The callback receives a
// store bound to the transaction; any error aborts the whole unit of work.
func (s *Store) Atomically(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
