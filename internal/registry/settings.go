package registry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rbxmgr/rbxmgr/internal/common"
)

// Settings is the flat user-preference record persisted under the
// "settings" key.
type Settings struct {
	Theme             string `json:"theme"`
	CheckOnStartup    bool   `json:"checkOnStartup"`
	SavePasswords     bool   `json:"savePasswords"`
	ShowNotifications bool   `json:"showNotifications"`
	MaxRecentItems    int    `json:"maxRecentItems"`
	LaunchMethod      string `json:"launchMethod"` // browser | app | protocol
	SortBy            string `json:"sortBy"`
	SortOrder         string `json:"sortOrder"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Theme:             "dark",
		CheckOnStartup:    true,
		SavePasswords:     true,
		ShowNotifications: true,
		MaxRecentItems:    10,
		LaunchMethod:      "browser",
		SortBy:            "username",
		SortOrder:         "asc",
	}
}

// Settings returns a copy of the current settings.
func (r *Registry) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings replaces the settings record, persists it and notifies
// listeners.
func (r *Registry) UpdateSettings(ctx context.Context, s Settings) error {
	if s.MaxRecentItems <= 0 {
		s.MaxRecentItems = DefaultSettings().MaxRecentItems
	}

	r.mu.Lock()
	r.settings = s
	err := r.store.Set(ctx, keySettings, s)
	r.mu.Unlock()

	if err != nil {
		r.log.Error(ctx, "failed to persist settings", "error", err)
		r.notifier.Notify(ctx, LevelError, "Settings", "Failed to save settings")
		return err
	}

	r.bus.emit(ctx, Event{Type: EventSettingsChanged})
	return nil
}

// SetSetting updates one named setting from its string form. Booleans
// accept anything strconv.ParseBool does.
func (r *Registry) SetSetting(ctx context.Context, key, value string) error {
	s := r.Settings()

	switch key {
	case "theme":
		s.Theme = value
	case "checkOnStartup", "savePasswords", "showNotifications":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s wants true or false, got %q", common.ErrValidation, key, value)
		}
		switch key {
		case "checkOnStartup":
			s.CheckOnStartup = b
		case "savePasswords":
			s.SavePasswords = b
		case "showNotifications":
			s.ShowNotifications = b
		}
	case "maxRecentItems":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: maxRecentItems wants a positive number, got %q", common.ErrValidation, value)
		}
		s.MaxRecentItems = n
	case "launchMethod":
		s.LaunchMethod = value
	case "sortBy":
		s.SortBy = value
	case "sortOrder":
		if value != "asc" && value != "desc" {
			return fmt.Errorf("%w: sortOrder wants asc or desc, got %q", common.ErrValidation, value)
		}
		s.SortOrder = value
	default:
		return fmt.Errorf("%w: unknown setting %q", common.ErrValidation, key)
	}

	return r.UpdateSettings(ctx, s)
}
