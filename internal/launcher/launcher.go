// Package launcher opens remote resources in a local browser, giving each
// account its own isolated profile directory so sessions never bleed into
// each other.
package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rbxmgr/rbxmgr/internal/logging"
)

// Opener launches an external resource with session isolation per account.
type Opener interface {
	Open(ctx context.Context, url string, profileID string) error
}

// ProfileCleaner removes per-account launch state.
type ProfileCleaner interface {
	RemoveProfile(profileID string) error
}

var ErrNoProfile = errors.New("empty profile id")

// Browser opens URLs in the user's browser. When a browser binary is known
// (the BROWSER environment variable), it is started with an isolated
// --user-data-dir per profile; otherwise, or when that fails, the URL is
// handed to the platform's default opener without isolation.
type Browser struct {
	dataDir string
	log     logging.Logger

	// runCommand is a test seam around exec.CommandContext.
	runCommand func(ctx context.Context, name string, args ...string) error
}

func NewBrowser(dataDir string, log logging.Logger) *Browser {
	return &Browser{
		dataDir: dataDir,
		log:     log,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Start()
		},
	}
}

func (b *Browser) profileDir(profileID string) string {
	return filepath.Join(b.dataDir, "browser-profiles", profileID)
}

// Open launches url inside the isolated profile, falling back to a plain,
// non-isolated open when the isolated variant is unavailable.
func (b *Browser) Open(ctx context.Context, url string, profileID string) error {
	if browser := os.Getenv("BROWSER"); browser != "" && profileID != "" {
		dir := b.profileDir(profileID)
		if err := os.MkdirAll(dir, 0o700); err == nil {
			if err := b.runCommand(ctx, browser, "--user-data-dir="+dir, url); err == nil {
				return nil
			}
			b.log.Warn(ctx, "isolated launch failed, falling back to default opener", "url", url)
		}
	}
	return b.openDefault(ctx, url)
}

func (b *Browser) openDefault(ctx context.Context, url string) error {
	switch runtime.GOOS {
	case "darwin":
		return b.runCommand(ctx, "open", url)
	case "windows":
		return b.runCommand(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return b.runCommand(ctx, "xdg-open", url)
	}
}

// RemoveProfile deletes the profile's browser state. Called when the
// owning account is removed.
func (b *Browser) RemoveProfile(profileID string) error {
	if profileID == "" {
		return ErrNoProfile
	}
	return os.RemoveAll(b.profileDir(profileID))
}
