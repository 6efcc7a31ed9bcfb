package integration_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/integration"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := integration.New(store, store, integration.NewHTTPFetcher(time.Second, 3, time.Minute))

	for _, c := range []struct{ name, url string }{
		{"", "https://example.com"},
		{"bank", ""},
		{"bank", "ftp://example.com/feed"},
		{"bank", "/relative/path"},
	} {
		_, err := svc.Create(ctx, c.name, c.url)
		assert.ErrorIs(t, err, errs.ErrInvalid, "%s %s", c.name, c.url)
	}

	_, err := svc.Create(ctx, "Bank", "https://example.com/feed")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bank", "https://example.com/other")
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestSyncUpdatesLastSynced(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	store := memory.New()
	svc := integration.New(store, store, integration.NewHTTPFetcher(time.Second, 3, time.Minute))
	in, err := svc.Create(ctx, "Bank", srv.URL)
	require.NoError(t, err)
	assert.Nil(t, in.LastSyncedAt)

	synced, err := svc.Sync(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, synced.LastSyncedAt)

	_, err = svc.Sync(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSyncFailureOpensBreaker(t *testing.T) {
	ctx := context.Background()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := memory.New()
	svc := integration.New(store, store, integration.NewHTTPFetcher(time.Second, 2, time.Minute))
	in, err := svc.Create(ctx, "Flaky", srv.URL)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Sync(ctx, in.ID)
		assert.ErrorIs(t, err, errs.ErrUpstream)
	}
	// The breaker opens after two failures and short-circuits the rest.
	assert.Equal(t, int32(2), hits.Load())

	got, err := svc.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncedAt)
}
