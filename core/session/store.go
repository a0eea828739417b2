package session

import (
	"context"
	"errors"
)

// Credential store keys. All three are cleared together on logout.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var ErrNotFound = errors.New("credential not found")

// Store persists the credentials of portal sessions. Writes are immediately
// visible to subsequent reads. Implementations must handle concurrent access
// safely.
type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Clear(ctx context.Context, sid, key string) error
	// ClearAll removes every credential held for the session.
	ClearAll(ctx context.Context, sid string) error
}
