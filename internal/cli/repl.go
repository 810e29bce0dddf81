package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	Add(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Check(ctx context.Context, args []string) error
	CheckAll(ctx context.Context) error
	Select(ctx context.Context, args []string) error
	SelectAll(ctx context.Context, selected bool) error
	Launch(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	ShowSettings(ctx context.Context) error
	Recent(ctx context.Context) error
}

const helpText = `Available commands:
  add                          add an account (interactive)
  list [search]                list accounts, optionally filtered
  check <username>             verify one account's session
  checkall                     verify every account
  select <username> [off]      select or deselect an account
  selectall | selectnone       select or clear all
  launch [gameId] [name]       launch selected accounts
  login <username>             log in and store a fresh session
  update <username>            edit an account (interactive)
  delete <username>            remove an account
  import <file>                import accounts from a file
  export <file> [json|csv|text] [-p]  export accounts
  set <key> <value>            change a setting
  settings                     show settings
  recent                       show recently launched games
  exit | quit                  leave the program`

// runREPL starts a read–eval–print loop. It reads a line from the scanner,
// parses the first token as the command and dispatches to methods on 'a'.
// Unknown commands are reported back to the user. The loop exits on scanner
// EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and swallowed; the loop
// itself never fails.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	report := func(err error) {
		if err != nil {
			printlnFn("error:", err.Error())
		}
	}

	for {
		printlnFn(fmt.Sprintf("rbx %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "add":
			report(a.Add(ctx))

		case "l", "list":
			report(a.List(ctx, args))

		case "check":
			report(a.Check(ctx, args))

		case "checkall":
			report(a.CheckAll(ctx))

		case "select":
			report(a.Select(ctx, args))

		case "selectall":
			report(a.SelectAll(ctx, true))

		case "selectnone":
			report(a.SelectAll(ctx, false))

		case "launch":
			report(a.Launch(ctx, args))

		case "login":
			report(a.Login(ctx, args))

		case "update":
			report(a.Update(ctx, args))

		case "delete":
			report(a.Delete(ctx, args))

		case "import":
			report(a.Import(ctx, args))

		case "export":
			report(a.Export(ctx, args))

		case "set":
			report(a.Set(ctx, args))

		case "settings":
			report(a.ShowSettings(ctx))

		case "recent":
			report(a.Recent(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
