package gotrue

import (
	"strings"
	"time"
)

// Settings are the public settings of an auth API instance.
type Settings struct {
	External      External `json:"external"`
	DisableSignup bool     `json:"disable_signup"`
	Autoconfirm   bool     `json:"autoconfirm"`
}

// External lists which external identity providers are enabled.
type External struct {
	Bitbucket bool `json:"bitbucket"`
	Github    bool `json:"github"`
	Gitlab    bool `json:"gitlab"`
	Google    bool `json:"google"`
}

type UserResponse struct {
	ID                 string     `json:"id" validate:"required"`
	Email              string     `json:"email" validate:"required"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" validate:"required"`
	UpdatedAt          time.Time  `json:"updated_at" validate:"required"`
}

// TokenResponse is a session issued by the auth API. ExpiresIn is not
// checked because 0 is a valid value.
type TokenResponse struct {
	AccessToken  string `json:"access_token" validate:"required"`
	TokenType    string `json:"token_type" validate:"required"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserAttributes is the body of an update. Nil fields are left untouched on the server.
type UserAttributes struct {
	Email    *string        `json:"email,omitempty"`
	Password *string        `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type VerifyType string

const (
	VerifySignup    VerifyType = "signup"
	VerifyRecovery  VerifyType = "recovery"
	VerifyInvite    VerifyType = "invite"
	VerifyMagicLink VerifyType = "magiclink"
)

// ParseVerifyType accepts any casing of a known verify type.
func ParseVerifyType(s string) (VerifyType, bool) {
	switch t := VerifyType(strings.ToLower(s)); t {
	case VerifySignup, VerifyRecovery, VerifyInvite, VerifyMagicLink:
		return t, true
	}
	return "", false
}

// Wire bodies. Optional fields are pointers so absent values are dropped.

type emailPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Type     VerifyType `json:"type"`
	Token    string     `json:"token"`
	Password *string    `json:"password,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
