package types

import (
	"strings"
	"time"
)

type AdminProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (a *AdminProfile) DisplayName() string {
	if a == nil {
		return ""
	}
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Email
	}
	return name
}

// Session holds the credentials of the signed-in admin.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at,omitempty"`
	Admin        *AdminProfile `json:"admin,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.AccessToken) != ""
}

func (s *Session) CanRefresh() bool {
	return s != nil && strings.TrimSpace(s.RefreshToken) != ""
}

// ExpiresWithin reports whether the access token expires inside the window.
// Sessions without a known expiry never report expiring.
func (s *Session) ExpiresWithin(now time.Time, window time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(window).Before(s.ExpiresAt)
}
