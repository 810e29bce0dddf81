// Package models defines the account entity: stored credentials plus the
// state derived from the remote service (validity, profile, presence).
package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rbxmgr/rbxmgr/internal/logging"
)

const (
	// DefaultGroup is the group every account belongs to unless told otherwise.
	DefaultGroup = "Default"

	homeURL     = "https://www.roblox.com/home"
	gameURLBase = "https://www.roblox.com/games/"
)

// UserInfo is the authenticated-profile payload returned by the remote
// service for a live session.
type UserInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Presence describes where a user currently is, as reported by the
// presence endpoint. UserPresenceType: 0 offline, 1 online, 2 in game,
// 3 in studio.
type Presence struct {
	UserPresenceType int    `json:"userPresenceType"`
	LastLocation     string `json:"lastLocation"`
	PlaceID          *int64 `json:"placeId"`
	UserID           int64  `json:"userId"`
	LastOnline       string `json:"lastOnline"`
}

// StatusClient is the slice of the remote service client the entity needs
// to verify and enrich itself. *roblox.Client satisfies it.
type StatusClient interface {
	// AuthenticatedUser fetches the profile behind the account's session
	// artifact. An error means the session did not authenticate.
	AuthenticatedUser(ctx context.Context, acct *Account) (*UserInfo, error)

	// AvatarURL resolves the headshot thumbnail URL for a user id.
	AvatarURL(ctx context.Context, userID int64) (string, error)

	// PresenceForUsers fetches presence records for the given user ids.
	PresenceForUsers(ctx context.Context, userIDs []int64, acct *Account) ([]Presence, error)
}

// Opener launches an external resource with session isolation per account.
type Opener interface {
	Open(ctx context.Context, url string, profileID string) error
}

// Account is the core mutable entity. The identity is the generated ID;
// everything else can change over the account's lifetime. Instances are
// owned by the registry, which serializes mutating access.
type Account struct {
	ID          string
	Username    string
	Password    string
	Alias       string
	Description string
	Group       string

	// Derived remote-service state.
	Valid     Validity
	UserID    *int64
	AvatarURL string
	Presence  *Presence

	// Session artifacts. SecurityToken is cleared whenever a check fails.
	SecurityToken string
	CSRFToken     string

	LastUse   *time.Time
	LastCheck *time.Time
	UpdatedAt time.Time

	// Fields is an open bag for extension metadata. Exported on data
	// export; never holds credentials.
	Fields map[string]string

	// BrowserProfileID names the isolated browser profile directory used
	// when launching this account.
	BrowserProfileID string
}

// Draft carries user-supplied data for creating or importing an account.
type Draft struct {
	Username      string            `json:"username"`
	Password      string            `json:"password"`
	Alias         string            `json:"alias"`
	Description   string            `json:"description"`
	Group         string            `json:"group"`
	SecurityToken string            `json:"securityToken,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// New builds an account from a draft, assigning fresh identifiers.
// The draft is assumed to have passed Validate.
func New(d Draft) *Account {
	group := d.Group
	if group == "" {
		group = DefaultGroup
	}
	fields := d.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return &Account{
		ID:               uuid.NewString(),
		Username:         d.Username,
		Password:         d.Password,
		Alias:            d.Alias,
		Description:      d.Description,
		Group:            group,
		SecurityToken:    d.SecurityToken,
		Fields:           fields,
		BrowserProfileID: uuid.NewString(),
		UpdatedAt:        time.Now().UTC(),
	}
}

// Validate checks a draft for well-formedness. It is pure: no side effects,
// no remote calls. Returns one message per violated rule; an empty slice
// means the draft is acceptable.
//
// Rules: username required, 3–20 characters; password required.
func Validate(d Draft) []string {
	var errs []string

	username := strings.TrimSpace(d.Username)
	switch {
	case username == "":
		errs = append(errs, "username is required")
	case len(username) < 3:
		errs = append(errs, "username must be at least 3 characters")
	case len(username) > 20:
		errs = append(errs, "username must be 20 characters or less")
	}

	if d.Password == "" {
		errs = append(errs, "password is required")
	}

	return errs
}

// DisplayName is the alias when set, the username otherwise.
func (a *Account) DisplayName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Username
}

// IsValid reports whether the last check confirmed the session.
func (a *Account) IsValid() bool {
	return a.Valid == ValidityValid
}

// NeedsValidation reports whether the account should be re-checked:
// either it was never checked conclusively, or the last check is older
// than maxAge.
func (a *Account) NeedsValidation(now time.Time, maxAge time.Duration) bool {
	if a.Valid == ValidityUnknown || a.LastCheck == nil {
		return true
	}
	return now.Sub(*a.LastCheck) > maxAge
}

// Compare orders accounts by group, then display name, case-insensitively.
// Used as the default sort.
func (a *Account) Compare(other *Account) int {
	if other == nil {
		return 1
	}
	if c := strings.Compare(strings.ToLower(a.Group), strings.ToLower(other.Group)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(other.DisplayName()))
}

// CheckStatus performs one round-trip through the remote client to verify
// the stored session artifact. On success the derived profile fields are
// refreshed; avatar and presence are each best-effort. On failure the
// account flips to invalid and the session artifact is cleared.
//
// LastCheck is stamped regardless of outcome. The method never returns an
// error: the boolean is the outcome, details go to the logger.
func (a *Account) CheckStatus(ctx context.Context, client StatusClient, log logging.Logger) bool {
	now := time.Now().UTC()
	a.LastCheck = &now
	a.UpdatedAt = now

	info, err := client.AuthenticatedUser(ctx, a)
	if err != nil {
		log.Warn(ctx, "account check failed", "account", a.DisplayName(), "error", err)
		a.Valid = ValidityInvalid
		a.SecurityToken = ""
		return false
	}

	a.Valid = ValidityValid
	a.UserID = &info.ID
	if info.Name != "" {
		a.Username = info.Name
	}

	if url, err := client.AvatarURL(ctx, info.ID); err != nil {
		log.Debug(ctx, "avatar refresh failed", "account", a.DisplayName(), "error", err)
	} else {
		a.AvatarURL = url
	}

	if presences, err := client.PresenceForUsers(ctx, []int64{info.ID}, a); err != nil {
		log.Debug(ctx, "presence refresh failed", "account", a.DisplayName(), "error", err)
	} else if len(presences) > 0 {
		p := presences[0]
		a.Presence = &p
	}

	return true
}

// RefreshToken distrusts the current session and re-verifies it: validity
// and last-check are reset to unknown, then a fresh check runs.
func (a *Account) RefreshToken(ctx context.Context, client StatusClient, log logging.Logger) bool {
	a.Valid = ValidityUnknown
	a.LastCheck = nil
	return a.CheckStatus(ctx, client, log)
}

// Launch stamps last-use and asks the opener to open either the landing
// page or a specific target resource inside this account's isolated
// profile. Never returns an error; failures are logged and reflected in
// the boolean.
func (a *Account) Launch(ctx context.Context, opener Opener, target string, log logging.Logger) bool {
	now := time.Now().UTC()
	a.LastUse = &now
	a.UpdatedAt = now

	url := homeURL
	if target != "" {
		url = gameURLBase + target
	}

	if err := opener.Open(ctx, url, a.BrowserProfileID); err != nil {
		log.Warn(ctx, "launch failed", "account", a.DisplayName(), "url", url, "error", err)
		return false
	}
	return true
}
