// Package registry owns the account collection: uniqueness and validation
// invariants, bulk operations with partial-failure tolerance, selection,
// groups, recent items and settings. It is the single writer to the store
// for account data and the emitter of change notifications consumed by the
// presentation layer.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rbxmgr/rbxmgr/internal/launcher"
	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/models"
	"github.com/rbxmgr/rbxmgr/internal/secrets"
)

const (
	keyAccounts = "accounts"
	keyGroups   = "groups"
	keyRecent   = "recentGames"
	keySettings = "settings"
)

// Store is the slice of the persistence layer the registry needs.
// *storage.Store satisfies it.
type Store interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// Deps wires the registry's collaborators. Vault and Cleaner are optional;
// without a vault, passwords persist in cleartext.
type Deps struct {
	Store    Store
	Client   models.StatusClient
	Opener   launcher.Opener
	Cleaner  launcher.ProfileCleaner
	Vault    *secrets.Vault
	Notifier Notifier
	Log      logging.Logger
}

// Options tunes product policy knobs.
type Options struct {
	// ValidityMaxAge is how old a conclusive check may get before the
	// account counts as stale. Zero means 24h.
	ValidityMaxAge time.Duration
}

// Registry is safe for concurrent use. All collection mutation and every
// persistence write happens under one mutex; bulk sweeps mutate individual
// accounts from worker goroutines but join before anything is persisted.
type Registry struct {
	store    Store
	client   models.StatusClient
	opener   launcher.Opener
	cleaner  launcher.ProfileCleaner
	vault    *secrets.Vault
	notifier Notifier
	log      logging.Logger
	bus      *eventBus
	maxAge   time.Duration

	mu       sync.Mutex
	accounts []*models.Account
	groups   []string
	selected map[string]struct{}
	recent   []RecentItem
	settings Settings
}

func New(d Deps, opts Options) *Registry {
	maxAge := opts.ValidityMaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	return &Registry{
		store:    d.Store,
		client:   d.Client,
		opener:   d.Opener,
		cleaner:  d.Cleaner,
		vault:    d.Vault,
		notifier: d.Notifier,
		log:      d.Log,
		bus:      newEventBus(d.Log),
		maxAge:   maxAge,
		groups:   []string{models.DefaultGroup},
		selected: map[string]struct{}{},
		settings: DefaultSettings(),
	}
}

// Subscribe registers a listener for the given event type. Emission is
// synchronous; a panicking listener never blocks others.
func (r *Registry) Subscribe(t EventType, fn Listener) {
	r.bus.subscribe(t, fn)
}

// SetNotifier swaps the notifier after construction. The presentation
// layer needs the registry to exist before it can register itself, hence
// the late binding. Call before Load.
func (r *Registry) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	r.notifier = n
}

// Load reads the persisted state. Sealed passwords that no longer open are
// dropped (logged), not fatal.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings := DefaultSettings()
	if _, err := r.store.GetJSON(ctx, keySettings, &settings); err != nil {
		return err
	}
	if settings.MaxRecentItems <= 0 {
		settings.MaxRecentItems = DefaultSettings().MaxRecentItems
	}
	r.settings = settings

	var stored []models.StoredAccount
	if _, err := r.store.GetJSON(ctx, keyAccounts, &stored); err != nil {
		return err
	}
	r.accounts = r.accounts[:0]
	for _, s := range stored {
		acct := models.FromStored(s)
		if secrets.IsSealed(acct.Password) {
			if r.vault == nil {
				r.log.Warn(ctx, "sealed password but no vault, dropping", "account", acct.DisplayName())
				acct.Password = ""
			} else if pw, err := r.vault.Open(acct.Password); err != nil {
				r.log.Warn(ctx, "failed to unseal password, dropping", "account", acct.DisplayName(), "error", err)
				acct.Password = ""
			} else {
				acct.Password = pw
			}
		}
		r.accounts = append(r.accounts, acct)
	}

	groups := []string{models.DefaultGroup}
	if _, err := r.store.GetJSON(ctx, keyGroups, &groups); err != nil {
		return err
	}
	r.groups = groups
	r.ensureGroupLocked(models.DefaultGroup)
	for _, a := range r.accounts {
		r.ensureGroupLocked(a.Group)
	}

	var recent []RecentItem
	if _, err := r.store.GetJSON(ctx, keyRecent, &recent); err != nil {
		return err
	}
	r.recent = recent
	if len(r.recent) > r.settings.MaxRecentItems {
		r.recent = r.recent[:r.settings.MaxRecentItems]
	}

	return nil
}

// Accounts returns a snapshot of the collection in insertion order.
func (r *Registry) Accounts() []*models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.accounts)
}

// Groups returns the known group names.
func (r *Registry) Groups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.groups)
}

// Get returns the account with the given id, or nil.
func (r *Registry) Get(id string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByIDLocked(id)
}

func (r *Registry) findByIDLocked(id string) *models.Account {
	for _, a := range r.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (r *Registry) findByUsernameLocked(username string) *models.Account {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Username, username) {
			return a
		}
	}
	return nil
}

func (r *Registry) ensureGroupLocked(group string) {
	if group == "" {
		return
	}
	if !slices.Contains(r.groups, group) {
		r.groups = append(r.groups, group)
	}
}

// persistAccountsLocked writes the full account serialization, sealing
// passwords when a vault is present. With SavePasswords disabled the
// persisted copy carries no password at all.
func (r *Registry) persistAccountsLocked(ctx context.Context) error {
	stored := make([]models.StoredAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		s := a.ToStored()
		switch {
		case !r.settings.SavePasswords:
			s.Password = ""
		case r.vault != nil && s.Password != "":
			sealed, err := r.vault.Seal(s.Password)
			if err != nil {
				return fmt.Errorf("seal password for %s: %w", a.DisplayName(), err)
			}
			s.Password = sealed
		}
		stored = append(stored, s)
	}
	return r.store.Set(ctx, keyAccounts, stored)
}

func (r *Registry) persistAllLocked(ctx context.Context) error {
	if err := r.persistAccountsLocked(ctx); err != nil {
		return err
	}
	if err := r.store.Set(ctx, keyGroups, r.groups); err != nil {
		return err
	}
	if err := r.store.Set(ctx, keyRecent, r.recent); err != nil {
		return err
	}
	return r.store.Set(ctx, keySettings, r.settings)
}
