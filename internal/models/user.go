package models

import "time"

// User mirrors the profile fields the chat core depends on. Credentials live
// with the external identity provider.
type User struct {
	ObjectID     string    `gorm:"primaryKey;size:64" json:"objectId"`
	FullName     string    `gorm:"size:255" json:"fullName"`
	DisplayName  string    `gorm:"size:255" json:"displayName"`
	Email        string    `gorm:"size:255;index" json:"email"`
	PhoneNumber  string    `gorm:"size:64" json:"phoneNumber"`
	Title        string    `gorm:"size:255" json:"title"`
	Theme        string    `gorm:"size:64" json:"theme"`
	PhotoURL     string    `gorm:"size:1024" json:"photoURL"`
	ThumbnailURL string    `gorm:"size:1024" json:"thumbnailURL"`
	LastPresence time.Time `json:"lastPresence"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SchemaVersion is a singleton row recording the database schema version used
// by the client compatibility gate.
type SchemaVersion struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DatabaseVersion string    `gorm:"size:32;not null" json:"databaseVersion"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
