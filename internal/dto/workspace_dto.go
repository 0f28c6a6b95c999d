package dto

// CreateWorkspaceRequest bootstraps a workspace with its default channel and
// the creator's self-direct.
type CreateWorkspaceRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Details string `json:"details" validate:"omitempty,max=2000"`
}

// UpdateWorkspaceRequest captures a partial workspace patch. Renaming is
// owner-gated; PhotoPath must live under the workspace's storage prefix.
type UpdateWorkspaceRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	Details   *string `json:"details" validate:"omitempty,max=2000"`
	PhotoPath *string `json:"photoPath" validate:"omitempty,max=1024"`
}

// AddTeammateRequest invites a registered user into a workspace by email.
type AddTeammateRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// WorkspaceBootstrapResponse returns the ids created by CreateWorkspace.
type WorkspaceBootstrapResponse struct {
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId"`
	DirectID    string `json:"directId"`
}
