package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/darasa/tests"
)

func TestDecodeToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantSub string
		wantRol Role
		wantErr bool
	}{
		{
			name:    "valid student token",
			token:   testutil.MakeToken(t, "42", "Student", exp),
			wantSub: "42",
			wantRol: RoleStudent,
		},
		{
			name:    "valid admin token",
			token:   testutil.MakeToken(t, "1", "Admin", exp),
			wantSub: "1",
			wantRol: RoleAdmin,
		},
		{
			name:    "missing subject",
			token:   testutil.MakeToken(t, "", "Teacher", exp),
			wantErr: true,
		},
		{
			name:    "missing role",
			token:   testutil.MakeToken(t, "42", "", exp),
			wantErr: true,
		},
		{
			name:    "unknown role",
			token:   testutil.MakeToken(t, "42", "Superuser", exp),
			wantErr: true,
		},
		{
			name:    "not a token",
			token:   "definitely-not-a-jwt",
			wantErr: true,
		},
		{
			name:    "two segments only",
			token:   "abc.def",
			wantErr: true,
		},
		{
			name:    "garbage payload segment",
			token:   "eyJhbGciOiJIUzI1NiJ9.%%%%.sig",
			wantErr: true,
		},
		{
			name:    "empty",
			token:   "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := DecodeToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenDecode)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.Subject)
			assert.Equal(t, tt.wantRol, claims.Role)
			assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
		})
	}
}

func TestDecodeToken_idempotent(t *testing.T) {
	token := testutil.MakeToken(t, "42", "Teacher", time.Now().Add(time.Hour))

	first, err := DecodeToken(token)
	assert.NoError(t, err)
	second, err := DecodeToken(token)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClaims_Expired(t *testing.T) {
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{"future expiry", Claims{ExpiresAt: now.Add(time.Minute)}, false},
		{"past expiry", Claims{ExpiresAt: now.Add(-time.Minute)}, true},
		{"expires exactly now", Claims{ExpiresAt: now}, true},
		{"no expiry is expired", Claims{}, true}, // fail safe
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.Expired(now))
		})
	}
}

func TestDecodeToken_missingExpiry(t *testing.T) {
	// decoding succeeds; the expiry check is what rejects it
	token := testutil.MakeToken(t, "42", "Student", time.Time{})

	claims, err := DecodeToken(token)
	assert.NoError(t, err)
	assert.True(t, claims.ExpiresAt.IsZero())
	assert.True(t, claims.Expired(time.Now()))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleTeacher.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("admin").Valid()) // case sensitive
}
