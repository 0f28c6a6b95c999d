package dto

// CreateChannelRequest creates a named channel in a workspace. A leading "#"
// in the name is stripped before validation and storage.
type CreateChannelRequest struct {
	WorkspaceID string `json:"workspaceId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Details     string `json:"details" validate:"omitempty,max=2000"`
}

// UpdateChannelRequest captures a partial channel patch. Only the provided
// fields are written.
type UpdateChannelRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Topic   *string `json:"topic" validate:"omitempty,max=2000"`
	Details *string `json:"details" validate:"omitempty,max=2000"`
}

// AddMemberRequest invites a workspace member to a channel by email.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TypingRequest toggles the caller's typing indicator for a chat.
type TypingRequest struct {
	IsTyping *bool `json:"isTyping" validate:"required"`
}

// CreateDirectRequest opens (or reactivates) a direct thread with a teammate.
type CreateDirectRequest struct {
	WorkspaceID  string `json:"workspaceId" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required"`
}

// CreateMessageRequest appends a message to a chat. FilePath optionally
// references an already uploaded object to run through the media pipeline.
type CreateMessageRequest struct {
	ChatID      string `json:"chatId" validate:"required"`
	ChatType    string `json:"chatType" validate:"required,oneof=Channel Direct"`
	WorkspaceID string `json:"workspaceId" validate:"required"`
	Text        string `json:"text" validate:"omitempty,max=20000"`
	FilePath    string `json:"filePath" validate:"omitempty,max=1024"`
	FileName    string `json:"fileName" validate:"omitempty,max=512"`
	Sticker     string `json:"sticker" validate:"omitempty,max=255"`
}

// EditMessageRequest replaces a message's text.
type EditMessageRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

// MarkReadRequest advances the caller's read receipt to the chat's newest
// counter.
type MarkReadRequest struct {
	ChatType string `json:"chatType" validate:"required,oneof=Channel Direct"`
	ChatID   string `json:"chatId" validate:"required"`
}
