package inmemstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/session"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Get(ctx, "sid", session.KeyAccessToken)
	assert.Equal(t, session.ErrNotFound, err)

	assert.NoError(t, store.Set(ctx, "sid", session.KeyAccessToken, "tok"))
	assert.NoError(t, store.Set(ctx, "sid", session.KeyRefreshToken, "ref"))
	assert.NoError(t, store.Set(ctx, "sid2", session.KeyAccessToken, "tok2"))

	val, err := store.Get(ctx, "sid", session.KeyAccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "tok", val)

	// overwrite
	assert.NoError(t, store.Set(ctx, "sid", session.KeyAccessToken, "tok9"))
	val, _ = store.Get(ctx, "sid", session.KeyAccessToken)
	assert.Equal(t, "tok9", val)

	// clear a single key
	assert.NoError(t, store.Clear(ctx, "sid", session.KeyAccessToken))
	_, err = store.Get(ctx, "sid", session.KeyAccessToken)
	assert.Equal(t, session.ErrNotFound, err)
	val, _ = store.Get(ctx, "sid", session.KeyRefreshToken)
	assert.Equal(t, "ref", val)

	// clear all; other sessions untouched
	assert.NoError(t, store.ClearAll(ctx, "sid"))
	_, err = store.Get(ctx, "sid", session.KeyRefreshToken)
	assert.Equal(t, session.ErrNotFound, err)
	val, _ = store.Get(ctx, "sid2", session.KeyAccessToken)
	assert.Equal(t, "tok2", val)

	// clearing what is not there is not an error
	assert.NoError(t, store.Clear(ctx, "nope", session.KeyUser))
	assert.NoError(t, store.ClearAll(ctx, "nope"))
}

func TestStore_concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set(ctx, "sid", session.KeyAccessToken, "tok")
			_, _ = store.Get(ctx, "sid", session.KeyAccessToken)
			_ = store.Clear(ctx, "sid", session.KeyUser)
		}()
	}
	wg.Wait()

	val, err := store.Get(ctx, "sid", session.KeyAccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "tok", val)
}
