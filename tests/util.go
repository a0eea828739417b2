package testutil

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("test-signing-key")

// MakeToken mints a signed access token carrying the given subject, role and
// expiry. The gateway never checks signatures, so the key is arbitrary.
func MakeToken(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{"iat": time.Now().Unix()}
	if sub != "" {
		claims["sub"] = sub
	}
	if role != "" {
		claims["role"] = role
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	return token
}

// WriteEnvelope writes the backend's `{success, data, message}` response shape.
func WriteEnvelope(t *testing.T, w http.ResponseWriter, code int, data interface{}, message string) {
	t.Helper()

	body := map[string]interface{}{"success": code < 400}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("WriteEnvelope() failed: %v", err)
	}
}

// Logger discards everything; it satisfies the application logger interface
// in tests.
type Logger struct{}

func (Logger) Enable(bool)                  {}
func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}
