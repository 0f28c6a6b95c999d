package dto

// CreateUserRequest registers the caller's collaborator profile. The row id
// is the authenticated user id; credentials live outside this service.
type CreateUserRequest struct {
	FullName    string `json:"fullName" validate:"required,min=1,max=255"`
	DisplayName string `json:"displayName" validate:"omitempty,max=255"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Title       string `json:"title" validate:"omitempty,max=255"`
	Theme       string `json:"theme" validate:"omitempty,max=64"`
}

// UpdateUserRequest captures a partial profile patch. PhotoPath must live
// under the caller's own storage prefix.
type UpdateUserRequest struct {
	FullName    *string `json:"fullName" validate:"omitempty,min=1,max=255"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=255"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Theme       *string `json:"theme" validate:"omitempty,max=64"`
	PhotoPath   *string `json:"photoPath" validate:"omitempty,max=1024"`
}
