package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

// ImportAccounts ingests account data in either of two shapes: a JSON
// array (or single object) of drafts, or plain text with one
// "username:password" pair per line. Records that fail validation or
// collide with an existing username are skipped and counted, never fatal.
func (r *Registry) ImportAccounts(ctx context.Context, data string) (added, skipped int, err error) {
	drafts, err := parseImport(data)
	if err != nil {
		return 0, 0, err
	}
	if len(drafts) == 0 {
		return 0, 0, fmt.Errorf("%w: no accounts found in import data", common.ErrValidation)
	}

	r.mu.Lock()
	for _, d := range drafts {
		if msgs := models.Validate(d); len(msgs) > 0 {
			r.log.Warn(ctx, "import: skipping invalid record", "username", d.Username, "reason", strings.Join(msgs, "; "))
			skipped++
			continue
		}
		if r.findByUsernameLocked(d.Username) != nil {
			r.log.Warn(ctx, "import: skipping duplicate", "username", d.Username)
			skipped++
			continue
		}
		acct := models.New(d)
		r.accounts = append(r.accounts, acct)
		r.ensureGroupLocked(acct.Group)
		added++
	}
	var perr error
	if added > 0 {
		perr = r.persistAllLocked(ctx)
	}
	r.mu.Unlock()

	if perr != nil {
		r.log.Error(ctx, "failed to persist imported accounts", "error", perr)
		r.notifier.Notify(ctx, LevelError, "Import Failed", "Failed to save imported accounts")
		return 0, 0, perr
	}

	if added > 0 {
		r.bus.emit(ctx, Event{Type: EventAccountsChanged, Change: "import"})
	}
	r.notifier.Notify(ctx, LevelInfo, "Import Complete",
		fmt.Sprintf("Imported %d account(s), skipped %d", added, skipped))
	return added, skipped, nil
}

// parseImport sniffs the payload shape. JSON wins when the first
// non-space byte says so; anything else is treated as colon-separated
// lines. Lines starting with # are comments.
func parseImport(data string) ([]models.Draft, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: import data is empty", common.ErrValidation)
	}

	switch trimmed[0] {
	case '[':
		var drafts []models.Draft
		if err := json.Unmarshal([]byte(trimmed), &drafts); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", common.ErrValidation, err)
		}
		return drafts, nil
	case '{':
		var d models.Draft
		if err := json.Unmarshal([]byte(trimmed), &d); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", common.ErrValidation, err)
		}
		return []models.Draft{d}, nil
	}

	var drafts []models.Draft
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		username, password, found := strings.Cut(line, ":")
		if !found {
			// A bare username still becomes a draft; validation
			// rejects it and counts it as skipped.
			drafts = append(drafts, models.Draft{Username: strings.TrimSpace(line)})
			continue
		}
		drafts = append(drafts, models.Draft{
			Username: strings.TrimSpace(username),
			Password: strings.TrimSpace(password),
		})
	}
	return drafts, nil
}

// Export formats and scopes.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"

	ScopeAll      = "all"
	ScopeSelected = "selected"
	ScopeValid    = "valid"
)

// ExportOptions controls what ExportAccounts emits. Credentials are
// excluded unless IncludePasswords is set explicitly.
type ExportOptions struct {
	Format           string // json | csv | text; default json
	Scope            string // all | selected | valid; default all
	IncludePasswords bool
}

// ExportAccounts renders the scoped accounts in the requested format.
func (r *Registry) ExportAccounts(ctx context.Context, opts ExportOptions) (string, error) {
	r.mu.Lock()
	var accounts []*models.Account
	switch opts.Scope {
	case ScopeSelected:
		accounts = r.selectedLocked()
	case ScopeValid:
		for _, a := range r.accounts {
			if a.IsValid() {
				accounts = append(accounts, a)
			}
		}
	case ScopeAll, "":
		accounts = append(accounts, r.accounts...)
	default:
		r.mu.Unlock()
		return "", fmt.Errorf("%w: unknown export scope %q", common.ErrValidation, opts.Scope)
	}
	r.mu.Unlock()

	if len(accounts) == 0 {
		return "", fmt.Errorf("%w: no accounts to export", common.ErrNotFound)
	}

	switch opts.Format {
	case FormatJSON, "":
		return exportJSON(accounts, opts.IncludePasswords)
	case FormatCSV:
		return exportCSV(accounts)
	case FormatText:
		return exportText(accounts, opts.IncludePasswords), nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", common.ErrValidation, opts.Format)
	}
}

func exportJSON(accounts []*models.Account, includePasswords bool) (string, error) {
	var payload any
	if includePasswords {
		recs := make([]models.Draft, 0, len(accounts))
		for _, a := range accounts {
			recs = append(recs, models.Draft{
				Username:    a.Username,
				Password:    a.Password,
				Alias:       a.Alias,
				Description: a.Description,
				Group:       a.Group,
				Fields:      a.Fields,
			})
		}
		payload = recs
	} else {
		recs := make([]models.ExportRecord, 0, len(accounts))
		for _, a := range accounts {
			recs = append(recs, a.ExportData())
		}
		payload = recs
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// exportCSV carries no credentials in any configuration: passwords ride
// only the JSON and text formats.
func exportCSV(accounts []*models.Account) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Username", "Alias", "Group", "Description"}); err != nil {
		return "", err
	}
	for _, a := range accounts {
		if err := w.Write([]string{a.Username, a.Alias, a.Group, a.Description}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func exportText(accounts []*models.Account, includePasswords bool) string {
	var sb strings.Builder
	for _, a := range accounts {
		sb.WriteString(a.Username)
		if includePasswords {
			sb.WriteByte(':')
			sb.WriteString(a.Password)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
