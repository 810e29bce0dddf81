package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

// sweep runs fn once per account in its own goroutine and joins, returning
// one outcome slot per account. A panicking worker is logged and counts as
// a failure; it never disturbs the other workers.
func (r *Registry) sweep(ctx context.Context, accounts []*models.Account, fn func(context.Context, *models.Account) bool) []bool {
	results := make([]bool, len(accounts))
	var wg sync.WaitGroup
	for i, acct := range accounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.log.Error(ctx, "worker panicked", "account", acct.DisplayName(), "panic", p)
				}
			}()
			results[i] = fn(ctx, acct)
		}()
	}
	wg.Wait()
	return results
}

// CheckAll verifies every account against the remote service concurrently.
// One failing or panicking account never aborts the sweep; the collection
// is persisted once after all workers join. Returns valid and total counts.
func (r *Registry) CheckAll(ctx context.Context) (valid, total int) {
	r.mu.Lock()
	accounts := make([]*models.Account, len(r.accounts))
	copy(accounts, r.accounts)
	r.mu.Unlock()

	total = len(accounts)
	if total == 0 {
		r.notifier.Notify(ctx, LevelInfo, "Check Accounts", "No accounts to check")
		return 0, 0
	}

	results := r.sweep(ctx, accounts, func(ctx context.Context, a *models.Account) bool {
		return a.CheckStatus(ctx, r.client, r.log)
	})
	for _, ok := range results {
		if ok {
			valid++
		}
	}

	r.mu.Lock()
	err := r.persistAccountsLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		r.log.Error(ctx, "failed to persist check results", "error", err)
	}

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "check"})
	r.notifier.Notify(ctx, LevelInfo, "Check Complete",
		fmt.Sprintf("%d/%d accounts valid", valid, total))
	return valid, total
}

// CheckStale re-verifies only the accounts whose last conclusive check is
// missing or older than the configured maximum age. Meant for startup,
// where hammering the remote service for fresh accounts buys nothing.
func (r *Registry) CheckStale(ctx context.Context) (checked int) {
	now := time.Now().UTC()

	r.mu.Lock()
	var stale []*models.Account
	for _, a := range r.accounts {
		if a.NeedsValidation(now, r.maxAge) {
			stale = append(stale, a)
		}
	}
	r.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}
	r.log.Info(ctx, "checking stale accounts", "count", len(stale))

	r.sweep(ctx, stale, func(ctx context.Context, a *models.Account) bool {
		return a.CheckStatus(ctx, r.client, r.log)
	})

	r.mu.Lock()
	err := r.persistAccountsLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		r.log.Error(ctx, "failed to persist check results", "error", err)
	}

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "check"})
	return len(stale)
}

// CheckAccount re-verifies a single account by id.
func (r *Registry) CheckAccount(ctx context.Context, id string) (bool, error) {
	acct := r.Get(id)
	if acct == nil {
		return false, fmt.Errorf("%w: account %q", common.ErrNotFound, id)
	}

	ok := acct.CheckStatus(ctx, r.client, r.log)

	r.mu.Lock()
	if err := r.persistAccountsLocked(ctx); err != nil {
		r.log.Error(ctx, "failed to persist check result", "account", acct.DisplayName(), "error", err)
	}
	r.mu.Unlock()

	r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "check", Account: acct})
	if ok {
		r.notifier.Notify(ctx, LevelSuccess, "Account Valid",
			fmt.Sprintf("%s is logged in", acct.DisplayName()))
	} else {
		r.notifier.Notify(ctx, LevelWarning, "Account Invalid",
			fmt.Sprintf("%s has no working session", acct.DisplayName()))
	}
	return ok, nil
}

// LaunchAccount opens the landing page, or the target resource when given,
// for a single account inside its isolated profile.
func (r *Registry) LaunchAccount(ctx context.Context, id, target string) (bool, error) {
	acct := r.Get(id)
	if acct == nil {
		return false, fmt.Errorf("%w: account %q", common.ErrNotFound, id)
	}

	ok := acct.Launch(ctx, r.opener, target, r.log)

	r.mu.Lock()
	if err := r.persistAccountsLocked(ctx); err != nil {
		r.log.Error(ctx, "failed to persist launch state", "account", acct.DisplayName(), "error", err)
	}
	r.mu.Unlock()

	r.bus.emit(ctx, Event{Type: EventAccountLaunched, Account: acct, Target: target})
	if !ok {
		r.notifier.Notify(ctx, LevelError, "Launch Failed",
			fmt.Sprintf("Failed to launch %s", acct.DisplayName()))
	}
	return ok, nil
}

// LaunchSelected launches every selected account concurrently, each in its
// own isolated profile. Per-account failures are tolerated; the outcome is
// reported in aggregate. When a target is given the launch is recorded in
// the recent list.
func (r *Registry) LaunchSelected(ctx context.Context, target, targetName string) (launched, total int) {
	accounts := r.SelectedAccounts()
	total = len(accounts)
	if total == 0 {
		r.notifier.Notify(ctx, LevelWarning, "Launch", "No accounts selected")
		return 0, 0
	}

	results := r.sweep(ctx, accounts, func(ctx context.Context, a *models.Account) bool {
		return a.Launch(ctx, r.opener, target, r.log)
	})
	for _, ok := range results {
		if ok {
			launched++
		}
	}

	r.mu.Lock()
	err := r.persistAccountsLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		r.log.Error(ctx, "failed to persist launch state", "error", err)
	}

	if target != "" && launched > 0 {
		name := targetName
		if name == "" {
			name = target
		}
		r.AddRecent(ctx, target, name)
	}

	r.bus.emit(ctx, Event{Type: EventAccountLaunched, Target: target})
	if launched == total {
		r.notifier.Notify(ctx, LevelSuccess, "Launch Complete",
			fmt.Sprintf("Launched %d account(s)", launched))
	} else {
		r.notifier.Notify(ctx, LevelWarning, "Launch Partial",
			fmt.Sprintf("Launched %d/%d accounts", launched, total))
	}
	return launched, total
}
