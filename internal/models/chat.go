package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Chat type discriminators used by Message.ChatType and the read-receipt API.
const (
	ChatTypeChannel = "Channel"
	ChatTypeDirect  = "Direct"
)

// Workspace groups channels, directs and members under a single team.
type Workspace struct {
	ObjectID     string    `gorm:"primaryKey;size:64" json:"objectId"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	OwnerID      string    `gorm:"size:64;index" json:"ownerId"`
	Members      StringSet `gorm:"type:text" json:"members"`
	ChannelID    string    `gorm:"size:64" json:"channelId"`
	Details      string    `gorm:"type:text" json:"details"`
	PhotoURL     string    `gorm:"size:1024" json:"photoURL"`
	ThumbnailURL string    `gorm:"size:1024" json:"thumbnailURL"`
	IsDeleted    bool      `gorm:"index" json:"isDeleted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Channel is a named group chat scoped to a workspace.
type Channel struct {
	ObjectID           string    `gorm:"primaryKey;size:64" json:"objectId"`
	WorkspaceID        string    `gorm:"size:64;index" json:"workspaceId"`
	Name               string    `gorm:"size:255;not null" json:"name"`
	Members            StringSet `gorm:"type:text" json:"members"`
	CreatedBy          string    `gorm:"size:64" json:"createdBy"`
	IsDeleted          bool      `gorm:"index" json:"isDeleted"`
	IsArchived         bool      `json:"isArchived"`
	Topic              string    `gorm:"type:text" json:"topic"`
	Details            string    `gorm:"type:text" json:"details"`
	LastMessageCounter int64     `gorm:"not null;default:0" json:"lastMessageCounter"`
	LastMessageText    string    `gorm:"type:text" json:"lastMessageText"`
	Typing             StringSet `gorm:"type:text" json:"typing"`
	LastTypingReset    time.Time `json:"lastTypingReset"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Direct is a one-to-one (or self) conversation. Active holds the subset of
// members for whom the thread is currently visible in their list.
type Direct struct {
	ObjectID           string    `gorm:"primaryKey;size:64" json:"objectId"`
	WorkspaceID        string    `gorm:"size:64;index" json:"workspaceId"`
	Members            StringSet `gorm:"type:text" json:"members"`
	Active             StringSet `gorm:"type:text" json:"active"`
	Typing             StringSet `gorm:"type:text" json:"typing"`
	LastTypingReset    time.Time `json:"lastTypingReset"`
	LastMessageCounter int64     `gorm:"not null;default:0" json:"lastMessageCounter"`
	LastMessageText    string    `gorm:"type:text" json:"lastMessageText"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Message carries the text and optional media of a single chat entry.
// Counter is assigned once at creation and never changes.
type Message struct {
	ObjectID      string    `gorm:"primaryKey;size:64" json:"objectId"`
	ChatID        string    `gorm:"size:64;index:idx_messages_chat_counter" json:"chatId"`
	ChatType      string    `gorm:"size:16" json:"chatType"`
	WorkspaceID   string    `gorm:"size:64;index" json:"workspaceId"`
	SenderID      string    `gorm:"size:64;index" json:"senderId"`
	Text          string    `gorm:"type:text" json:"text"`
	Counter       int64     `gorm:"not null;index:idx_messages_chat_counter" json:"counter"`
	IsDeleted     bool      `json:"isDeleted"`
	IsEdited      bool      `json:"isEdited"`
	FileURL       string    `gorm:"size:1024" json:"fileURL"`
	ThumbnailURL  string    `gorm:"size:1024" json:"thumbnailURL"`
	FileSize      int64     `json:"fileSize"`
	FileType      string    `gorm:"size:128" json:"fileType"`
	FileName      string    `gorm:"size:512" json:"fileName"`
	MediaWidth    int       `json:"mediaWidth"`
	MediaHeight   int       `json:"mediaHeight"`
	MediaDuration float64   `json:"mediaDuration"`
	Sticker       string    `gorm:"size:255" json:"sticker"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Detail is the per-(user, chat) read receipt. It exists exactly while the
// user is a member of the chat; LastRead tracks the highest counter seen.
type Detail struct {
	ObjectID    string    `gorm:"primaryKey;size:64" json:"objectId"`
	ChatID      string    `gorm:"size:64;index" json:"chatId"`
	UserID      string    `gorm:"size:64;index" json:"userId"`
	WorkspaceID string    `gorm:"size:64;index" json:"workspaceId"`
	LastRead    int64     `gorm:"not null;default:0" json:"lastRead"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DetailID derives the deterministic read-receipt id for a (user, chat) pair.
func DetailID(userID, chatID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%s", userID, chatID)))
	return hex.EncodeToString(sum[:])
}
