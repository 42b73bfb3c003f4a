// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// IssuedVia records how a session row came to exist.
type IssuedVia string

const (
	IssuedLogin         IssuedVia = "login"
	IssuedRegister      IssuedVia = "register"
	IssuedCookieRefresh IssuedVia = "cookie_refresh"
	IssuedBodyRefresh   IssuedVia = "body_refresh"
)

// RevokeReason is stored with a revoked session. A family revoked for
// reuse keeps answering refreshes with ErrTokenReuse.
type RevokeReason string

const (
	RevokedLogout          RevokeReason = "logout"
	RevokedLogoutAll       RevokeReason = "logout_all"
	RevokedReuse           RevokeReason = "reuse_detected"
	RevokedByUser          RevokeReason = "revoked_by_user"
	RevokedPasswordChanged RevokeReason = "password_changed"
)

type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionRotated SessionState = "rotated"
	SessionRevoked SessionState = "revoked"
	SessionExpired SessionState = "expired"
)

// Session is one refresh token in a rotation chain. Refreshing rotates the
// row into a new one of the same family; Tier is the user's tier name when
// the row was issued.
type Session struct {
	ID            string        `db:"id"`
	UserID        string        `db:"user_id"`
	TokenHash     string        `db:"token_hash"`
	FamilyID      string        `db:"family_id"`
	Tier          string        `db:"tier"`
	IssuedVia     IssuedVia     `db:"issued_via"`
	ExpiresAt     time.Time     `db:"expires_at"`
	CreatedAt     time.Time     `db:"created_at"`
	UsedAt        *time.Time    `db:"used_at"`
	ReplacedByID  *string       `db:"replaced_by_id"`
	RevokedAt     *time.Time    `db:"revoked_at"`
	RevokedReason *RevokeReason `db:"revoked_reason"`
	UserAgent     string        `db:"user_agent"`
	IPAddress     string        `db:"ip_address"`
}

// State orders the checks so a rotated token is reported as rotated even
// after its family is revoked; that is what reuse detection keys on.
func (s *Session) State(now time.Time) SessionState {
	switch {
	case s.UsedAt != nil:
		return SessionRotated
	case s.RevokedAt != nil:
		return SessionRevoked
	case !now.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}

func (s *Session) revokedFor(reason RevokeReason) bool {
	return s.RevokedReason != nil && *s.RevokedReason == reason
}
