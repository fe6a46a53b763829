package dto

import (
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	"github.com/sanctuary/sanctuary-api/internal/service"
	"github.com/sanctuary/sanctuary-api/internal/types"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	TS      string `json:"ts"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type MeResponse struct {
	OK   bool           `json:"ok"`
	User UserResponse   `json:"user"`
	Plan types.PlanTier `json:"plan"`
}

// NewMeResponse builds the /auth/me body from a resolved session
func NewMeResponse(session *service.Session) *MeResponse {
	user := session.User
	if user == nil {
		user = &identity.Identity{}
	}
	return &MeResponse{
		OK:   true,
		User: UserResponse{ID: user.ID, Email: user.Email},
		Plan: session.Plan,
	}
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}
