package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbxmgr/rbxmgr/internal/logging"
)

type call struct {
	name string
	args []string
}

func stubbedBrowser(t *testing.T, calls *[]call, fail map[string]error) *Browser {
	t.Helper()
	b := NewBrowser(t.TempDir(), logging.NewNop())
	b.runCommand = func(ctx context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return fail[name]
	}
	return b
}

func TestOpen_IsolatedProfile(t *testing.T) {
	t.Setenv("BROWSER", "chromium")

	var calls []call
	b := stubbedBrowser(t, &calls, nil)

	require.NoError(t, b.Open(context.Background(), "https://example.com", "profile-1"))

	require.Len(t, calls, 1)
	assert.Equal(t, "chromium", calls[0].name)
	assert.Contains(t, calls[0].args[0], filepath.Join("browser-profiles", "profile-1"))
	assert.Equal(t, "https://example.com", calls[0].args[1])

	// profile dir was created
	_, err := os.Stat(b.profileDir("profile-1"))
	assert.NoError(t, err)
}

func TestOpen_FallsBackWhenIsolatedFails(t *testing.T) {
	t.Setenv("BROWSER", "chromium")

	var calls []call
	b := stubbedBrowser(t, &calls, map[string]error{"chromium": errors.New("exec failed")})

	require.NoError(t, b.Open(context.Background(), "https://example.com", "profile-1"))

	require.Len(t, calls, 2)
	assert.Equal(t, "chromium", calls[0].name)
	assert.NotEqual(t, "chromium", calls[1].name, "second call is the default opener")
}

func TestOpen_NoBrowserEnvUsesDefault(t *testing.T) {
	t.Setenv("BROWSER", "")

	var calls []call
	b := stubbedBrowser(t, &calls, nil)

	require.NoError(t, b.Open(context.Background(), "https://example.com", "profile-1"))
	require.Len(t, calls, 1)
}

func TestRemoveProfile(t *testing.T) {
	var calls []call
	b := stubbedBrowser(t, &calls, nil)

	dir := b.profileDir("gone")
	require.NoError(t, os.MkdirAll(dir, 0o700))

	require.NoError(t, b.RemoveProfile("gone"))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, b.RemoveProfile(""), ErrNoProfile)
}
