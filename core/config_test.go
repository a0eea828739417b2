package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_defaults(t *testing.T) {
	conf := NewConfig()

	assert.Equal(t, "DEV", conf.Env)
	assert.True(t, conf.Debug)
	assert.Equal(t, "Darasa", conf.AppName)
	assert.Equal(t, ":8000", conf.Server.Addr)
	assert.Equal(t, 5*time.Second, conf.Server.ShutdownTimeout)
	assert.Equal(t, "darasa_session", conf.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, conf.Session.CookieTTL)
	assert.Equal(t, "http://localhost:3000", conf.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, conf.Backend.Timeout)
	assert.Equal(t, "memory", conf.Storage)
	assert.Equal(t, "localhost:5432", conf.DatabaseAddress())
}

func TestNewConfig_envOverrides(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_BACKEND_BASEURL", "http://academia.internal:3000/")
	t.Setenv("TEST_STORAGE", "redis")

	conf := NewConfig()

	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	// trailing slash is dropped so path joins stay clean
	assert.Equal(t, "http://academia.internal:3000", conf.Backend.BaseURL)
	assert.Equal(t, "redis", conf.Storage)
}
