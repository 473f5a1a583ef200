package newsletter_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/meritan/go-curator/internal/newsletter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisposableListLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nmailinator.com\nTRASHMAIL.COM\n\n"), 0o644))

	list := newsletter.NewDisposableList(path, "", slog.Default())
	require.NoError(t, list.Load())

	assert.True(t, list.IsDisposable("user@mailinator.com"))
	assert.True(t, list.IsDisposable("user@TrashMail.com"))
	assert.False(t, list.IsDisposable("user@example.com"))
	assert.False(t, list.IsDisposable("not-an-email"))
}

func TestDisposableListLoadMissingFile(t *testing.T) {
	list := newsletter.NewDisposableList(filepath.Join(t.TempDir(), "absent.txt"), "", slog.Default())
	// Missing cache is a clean start, not an error
	require.NoError(t, list.Load())
	assert.False(t, list.IsDisposable("user@mailinator.com"))
}

func TestDisposableListRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# header\nthrowaway.email\nguerrillamail.com\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "blocklist.txt")
	list := newsletter.NewDisposableList(path, srv.URL, slog.Default())

	require.NoError(t, list.Refresh(context.Background()))
	assert.True(t, list.IsDisposable("x@throwaway.email"))
	assert.True(t, list.IsDisposable("x@guerrillamail.com"))

	// Cache file rewritten for the next boot
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "throwaway.email")
	assert.NotContains(t, string(data), "# header")
}

func TestDisposableListRefreshFailureKeepsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "blocklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("mailinator.com\n"), 0o644))

	list := newsletter.NewDisposableList(path, srv.URL, slog.Default())
	require.NoError(t, list.Load())

	require.Error(t, list.Refresh(context.Background()))
	// Old entries still served
	assert.True(t, list.IsDisposable("user@mailinator.com"))
}
