// Package cli is the interactive presentation layer: a line-oriented REPL
// over the registry. It renders notifications and tables; all account
// semantics live in the registry.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rbxmgr/rbxmgr/internal/registry"
	"github.com/rbxmgr/rbxmgr/internal/roblox"
)

type App struct {
	registry *registry.Registry
	remote   *roblox.Client
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(reg *registry.Registry, remote *roblox.Client) *App {
	return &App{
		registry: reg,
		remote:   remote,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
}

// Notify satisfies registry.Notifier: notifications render as console
// lines. Honors the showNotifications setting, except errors, which always
// print.
func (a *App) Notify(ctx context.Context, level registry.Level, title, message string) {
	if level != registry.LevelError && !a.registry.Settings().ShowNotifications {
		return
	}
	fmt.Fprintf(a.out, "[%s] %s: %s\n", level, title, message)
}

func (a *App) status() string {
	accounts := a.registry.Accounts()
	selected := len(a.registry.SelectedAccounts())
	if selected > 0 {
		return fmt.Sprintf("(%d accounts, %d selected)", len(accounts), selected)
	}
	return fmt.Sprintf("(%d accounts)", len(accounts))
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Roblox account manager (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}
