package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

// Add validates and inserts a new account. ErrValidation and ErrDuplicate
// propagate so the caller can show field-specific messages; persistence
// failures are reported through the notifier and returned.
//
// When the check-on-startup setting is enabled, the new account is checked
// immediately and the outcome persisted.
func (r *Registry) Add(ctx context.Context, d models.Draft) (*models.Account, error) {
	if msgs := models.Validate(d); len(msgs) > 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
	}

	r.mu.Lock()
	if existing := r.findByUsernameLocked(d.Username); existing != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: an account with username %q", common.ErrDuplicate, d.Username)
	}

	acct := models.New(d)
	r.accounts = append(r.accounts, acct)
	r.ensureGroupLocked(acct.Group)
	err := r.persistAllLocked(ctx)
	checkNow := r.settings.CheckOnStartup
	r.mu.Unlock()

	if err != nil {
		r.log.Error(ctx, "failed to persist new account", "account", acct.DisplayName(), "error", err)
		r.notifier.Notify(ctx, LevelError, "Add Account Failed",
			fmt.Sprintf("Failed to save %s", acct.DisplayName()))
		return nil, err
	}

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "add", Account: acct})
	r.notifier.Notify(ctx, LevelSuccess, "Account Added",
		fmt.Sprintf("%s has been added", acct.DisplayName()))

	if checkNow {
		acct.CheckStatus(ctx, r.client, r.log)
		r.mu.Lock()
		if err := r.persistAccountsLocked(ctx); err != nil {
			r.log.Error(ctx, "failed to persist check outcome", "account", acct.DisplayName(), "error", err)
		}
		r.mu.Unlock()
		r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "check", Account: acct})
	}

	return acct, nil
}

// Update describes a partial account update; nil fields stay untouched.
type Update struct {
	Username      *string
	Password      *string
	Alias         *string
	Description   *string
	Group         *string
	SecurityToken *string
	Fields        map[string]string
}

// Update merges the partial data into the account, re-validates the result
// and re-checks username uniqueness excluding the account itself.
func (r *Registry) Update(ctx context.Context, id string, upd Update) (*models.Account, error) {
	r.mu.Lock()

	acct := r.findByIDLocked(id)
	if acct == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: account %q", common.ErrNotFound, id)
	}

	merged := models.Draft{
		Username:    valueOr(upd.Username, acct.Username),
		Password:    valueOr(upd.Password, acct.Password),
		Alias:       valueOr(upd.Alias, acct.Alias),
		Description: valueOr(upd.Description, acct.Description),
		Group:       valueOr(upd.Group, acct.Group),
	}
	if msgs := models.Validate(merged); len(msgs) > 0 {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
	}
	if dup := r.findByUsernameLocked(merged.Username); dup != nil && dup.ID != id {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: an account with username %q", common.ErrDuplicate, merged.Username)
	}

	acct.Username = merged.Username
	acct.Password = merged.Password
	acct.Alias = merged.Alias
	acct.Description = merged.Description
	if acct.Group != merged.Group {
		acct.Group = merged.Group
		r.ensureGroupLocked(acct.Group)
	}
	if upd.SecurityToken != nil {
		acct.SecurityToken = *upd.SecurityToken
	}
	for k, v := range upd.Fields {
		acct.Fields[k] = v
	}
	acct.UpdatedAt = time.Now().UTC()

	err := r.persistAllLocked(ctx)
	r.mu.Unlock()

	if err != nil {
		r.log.Error(ctx, "failed to persist account update", "account", acct.DisplayName(), "error", err)
		r.notifier.Notify(ctx, LevelError, "Update Account Failed",
			fmt.Sprintf("Failed to save %s", acct.DisplayName()))
		return nil, err
	}

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "update", Account: acct})
	r.notifier.Notify(ctx, LevelSuccess, "Account Updated",
		fmt.Sprintf("%s has been updated", acct.DisplayName()))
	return acct, nil
}

// Remove deletes the account and its external launch state. It fails
// silently (logged, user notified) rather than returning an error: removal
// runs out of confirm-dialog flows where a failure must not crash the flow.
func (r *Registry) Remove(ctx context.Context, id string) {
	r.mu.Lock()

	idx := slices.IndexFunc(r.accounts, func(a *models.Account) bool { return a.ID == id })
	if idx < 0 {
		r.mu.Unlock()
		r.log.Warn(ctx, "remove: account not found", "id", id)
		r.notifier.Notify(ctx, LevelError, "Delete Account Failed", "Account not found")
		return
	}

	acct := r.accounts[idx]
	r.accounts = slices.Delete(r.accounts, idx, idx+1)
	delete(r.selected, id)
	err := r.persistAllLocked(ctx)
	r.mu.Unlock()

	if r.cleaner != nil {
		if cerr := r.cleaner.RemoveProfile(acct.BrowserProfileID); cerr != nil {
			r.log.Warn(ctx, "failed to remove browser profile", "account", acct.DisplayName(), "error", cerr)
		}
	}

	if err != nil {
		r.log.Error(ctx, "failed to persist account removal", "account", acct.DisplayName(), "error", err)
		r.notifier.Notify(ctx, LevelError, "Delete Account Failed",
			fmt.Sprintf("Failed to save after deleting %s", acct.DisplayName()))
		return
	}

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "delete", Account: acct})
	r.notifier.Notify(ctx, LevelSuccess, "Account Deleted",
		fmt.Sprintf("%s has been deleted", acct.DisplayName()))
}

// Select marks or unmarks an account for bulk operations. Unknown ids are
// ignored.
func (r *Registry) Select(ctx context.Context, id string, selected bool) {
	r.mu.Lock()
	acct := r.findByIDLocked(id)
	if acct == nil {
		r.mu.Unlock()
		return
	}
	if selected {
		r.selected[id] = struct{}{}
	} else {
		delete(r.selected, id)
	}
	count := len(r.selected)
	r.mu.Unlock()

	r.bus.emit(ctx, Event{
		Type:          EventAccountSelected,
		Account:       acct,
		Selected:      selected,
		SelectedCount: count,
	})
}

// SelectAll marks or unmarks every account.
func (r *Registry) SelectAll(ctx context.Context, selected bool) {
	r.mu.Lock()
	if selected {
		for _, a := range r.accounts {
			r.selected[a.ID] = struct{}{}
		}
	} else {
		r.selected = map[string]struct{}{}
	}
	count := len(r.selected)
	r.mu.Unlock()

	r.bus.emit(ctx, Event{Type: EventAccountSelected, Selected: selected, SelectedCount: count})
}

// SelectedAccounts returns the current selection in insertion order.
func (r *Registry) SelectedAccounts() []*models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectedLocked()
}

func (r *Registry) selectedLocked() []*models.Account {
	out := make([]*models.Account, 0, len(r.selected))
	for _, a := range r.accounts {
		if _, ok := r.selected[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func valueOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}
