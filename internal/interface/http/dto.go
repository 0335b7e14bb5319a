package handlers

import (
	"time"

	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

// userResponse is the outward shape of a user; credentials and reset state are never included.
type userResponse struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	IsActive    bool               `json:"isActive"`
	Roles       []string           `json:"roles"`
	LastLogin   time.Time          `json:"lastLogin"`
	Preferences entity.Preferences `json:"preferences"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toUserResponse(u *entity.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = entity.Roles{}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		Roles:       roles,
		LastLogin:   u.LastLogin,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUserResponses(us []*entity.User) []userResponse {
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResponse(u))
	}
	return out
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type dashboardResponse struct {
	User        dashboardUser `json:"user"`
	DashboardID string        `json:"dashboardId"`
}

type dashboardUser struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Roles       []string           `json:"roles"`
	LastLogin   time.Time          `json:"lastLogin"`
	Preferences entity.Preferences `json:"preferences"`
}
