package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Portal roles, as carried in the `role` claim of backend-issued tokens.
// Each role maps to its own portal area.
const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

var (
	ErrTokenDecode = errors.New("invalid token")

	nowFunc = time.Now // mockable
)

type Role string

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Claims is the decoded payload of an access token. It is advisory only:
// it routes the UI to the right portal; the backend independently re-validates
// the token (and its signature) on every request.
type Claims struct {
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claims are expired at `now`.
// A missing expiry is treated as already expired (fail safe).
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// DecodeToken parses the middle segment of a three-part dot-delimited token as
// base64url JSON into Claims. The signature is NOT checked here; verification
// is the backend's job. A payload missing the subject or carrying an unknown
// role fails with ErrTokenDecode rather than yielding partial data.
func DecodeToken(token string) (Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, ErrTokenDecode
	}

	role := Role(tc.Role)
	if tc.Subject == "" || !role.Valid() {
		return Claims{}, ErrTokenDecode
	}

	claims := Claims{
		Subject: tc.Subject,
		Role:    role,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}
