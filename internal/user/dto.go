// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type CreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
}

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Tier      string    `json:"tier"`
	TierID    *string   `json:"tier_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// ListUsersParams filters the admin listing. TierID and Tier both narrow
// to one tier; Untiered keeps only users without a tier and wins over both.
type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"      validate:"omitempty,oneof=user admin"`
	Tier     string `json:"tier"      validate:"omitempty,max=100"`
	TierID   string `json:"tier_id"   validate:"omitempty,uuid"`
	Untiered bool   `json:"untiered"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TierAssignment counts live users on one tier. TierID is nil for the
// users that have no tier.
type TierAssignment struct {
	TierID   *string `json:"tier_id"   db:"tier_id"`
	TierName string  `json:"tier_name" db:"tier_name"`
	Users    int     `json:"users"     db:"users"`
}

type UserTierResponse struct {
	UserID       string    `json:"user_id"`
	TierID       *string   `json:"tier_id"`
	Tier         string    `json:"tier"`
	TokenVersion int       `json:"token_version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToUserTierResponse(u *User) UserTierResponse {
	return UserTierResponse{
		UserID:       u.ID,
		TierID:       u.TierID,
		Tier:         u.Tier(),
		TokenVersion: u.TokenVersion,
		UpdatedAt:    u.UpdatedAt,
	}
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Tier:      u.Tier(),
		TierID:    u.TierID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
