package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rbxmgr/rbxmgr/internal/models"
	"github.com/rbxmgr/rbxmgr/internal/registry"
)

func (a *App) findAccount(username string) (*models.Account, error) {
	for _, acct := range a.registry.Accounts() {
		if strings.EqualFold(acct.Username, username) || strings.EqualFold(acct.Alias, username) {
			return acct, nil
		}
	}
	return nil, fmt.Errorf("no account named %q", username)
}

func (a *App) Add(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	alias, err := GetSimpleText(a.reader, "Enter alias (optional)", a.out)
	if err != nil {
		return err
	}
	group, err := GetSimpleText(a.reader, "Enter group (optional)", a.out)
	if err != nil {
		return err
	}

	_, err = a.registry.Add(ctx, models.Draft{
		Username: username,
		Password: password,
		Alias:    alias,
		Group:    group,
	})
	return err
}

func validityMark(v models.Validity) string {
	switch v {
	case models.ValidityValid:
		return "ok"
	case models.ValidityInvalid:
		return "invalid"
	default:
		return "?"
	}
}

func (a *App) List(ctx context.Context, args []string) error {
	q := registry.Query{Search: strings.Join(args, " ")}
	accounts := a.registry.GetFiltered(q)
	if len(accounts) == 0 {
		fmt.Fprintln(a.out, "No accounts")
		return nil
	}

	selected := map[string]bool{}
	for _, acct := range a.registry.SelectedAccounts() {
		selected[acct.ID] = true
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, " \tUSERNAME\tALIAS\tGROUP\tSTATUS\tLAST USE")
	for _, acct := range accounts {
		mark := " "
		if selected[acct.ID] {
			mark = "*"
		}
		lastUse := "-"
		if acct.LastUse != nil {
			lastUse = acct.LastUse.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, acct.Username, acct.Alias, acct.Group, validityMark(acct.Valid), lastUse)
	}
	return w.Flush()
}

func (a *App) Check(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: check <username>")
	}
	acct, err := a.findAccount(args[0])
	if err != nil {
		return err
	}
	_, err = a.registry.CheckAccount(ctx, acct.ID)
	return err
}

func (a *App) CheckAll(ctx context.Context) error {
	a.registry.CheckAll(ctx)
	return nil
}

func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: select <username> [off]")
	}
	acct, err := a.findAccount(args[0])
	if err != nil {
		return err
	}
	selected := !(len(args) > 1 && args[1] == "off")
	a.registry.Select(ctx, acct.ID, selected)
	return nil
}

func (a *App) SelectAll(ctx context.Context, selected bool) error {
	a.registry.SelectAll(ctx, selected)
	return nil
}

func (a *App) Launch(ctx context.Context, args []string) error {
	target, name := "", ""
	if len(args) > 0 {
		target = args[0]
	}
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}
	a.registry.LaunchSelected(ctx, target, name)
	return nil
}

// Login acquires a fresh session from the remote service and stores its
// artifacts on the account. The stored password is used when present.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: login <username>")
	}
	acct, err := a.findAccount(args[0])
	if err != nil {
		return err
	}

	upd := registry.Update{}
	password := acct.Password
	if password == "" {
		password, err = GetPassword(a.out, "Enter password for "+acct.Username)
		if err != nil {
			return err
		}
		upd.Password = &password
	}

	session, err := a.remote.Login(ctx, acct.Username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	upd.SecurityToken = &session.SecurityToken

	if _, err := a.registry.Update(ctx, acct.ID, upd); err != nil {
		return err
	}
	_, err = a.registry.CheckAccount(ctx, acct.ID)
	return err
}

// Update edits an account interactively. Empty answers keep the current
// value.
func (a *App) Update(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: update <username>")
	}
	acct, err := a.findAccount(args[0])
	if err != nil {
		return err
	}

	upd := registry.Update{}
	if v, err := GetSimpleText(a.reader, fmt.Sprintf("Username [%s]", acct.Username), a.out); err != nil {
		return err
	} else if v != "" {
		upd.Username = &v
	}
	if v, err := GetSimpleText(a.reader, fmt.Sprintf("Alias [%s]", acct.Alias), a.out); err != nil {
		return err
	} else if v != "" {
		upd.Alias = &v
	}
	if v, err := GetSimpleText(a.reader, fmt.Sprintf("Group [%s]", acct.Group), a.out); err != nil {
		return err
	} else if v != "" {
		upd.Group = &v
	}
	if v, err := GetSimpleText(a.reader, "Description", a.out); err != nil {
		return err
	} else if v != "" {
		upd.Description = &v
	}

	_, err = a.registry.Update(ctx, acct.ID, upd)
	return err
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: delete <username>")
	}
	acct, err := a.findAccount(args[0])
	if err != nil {
		return err
	}

	confirm, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %s? (yes/no)", acct.DisplayName()), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") && !strings.EqualFold(confirm, "y") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	a.registry.Remove(ctx, acct.ID)
	return nil
}

func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, _, err = a.registry.ImportAccounts(ctx, string(data))
	return err
}

func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: export <file> [json|csv|text] [-p]")
	}
	opts := registry.ExportOptions{Format: registry.FormatJSON}
	for _, arg := range args[1:] {
		switch arg {
		case registry.FormatJSON, registry.FormatCSV, registry.FormatText:
			opts.Format = arg
		case "-p", "--passwords":
			opts.IncludePasswords = true
		case "selected", "valid", "all":
			opts.Scope = arg
		default:
			return fmt.Errorf("unknown export option %q", arg)
		}
	}

	out, err := a.registry.ExportAccounts(ctx, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], []byte(out), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", args[0])
	return nil
}

func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <key> <value>")
	}
	return a.registry.SetSetting(ctx, args[0], strings.Join(args[1:], " "))
}

func (a *App) ShowSettings(ctx context.Context) error {
	s := a.registry.Settings()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "theme\t%s\n", s.Theme)
	fmt.Fprintf(w, "checkOnStartup\t%t\n", s.CheckOnStartup)
	fmt.Fprintf(w, "savePasswords\t%t\n", s.SavePasswords)
	fmt.Fprintf(w, "showNotifications\t%t\n", s.ShowNotifications)
	fmt.Fprintf(w, "maxRecentItems\t%d\n", s.MaxRecentItems)
	fmt.Fprintf(w, "launchMethod\t%s\n", s.LaunchMethod)
	fmt.Fprintf(w, "sortBy\t%s\n", s.SortBy)
	fmt.Fprintf(w, "sortOrder\t%s\n", s.SortOrder)
	return w.Flush()
}

func (a *App) Recent(ctx context.Context) error {
	items := a.registry.RecentItems()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No recent games")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tPLAYS\tLAST PLAYED")
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.ID
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, item.PlayCount, item.LastPlayed.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
