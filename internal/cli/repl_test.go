package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) Add(ctx context.Context) error { return f.record("add") }
func (f *fakeExec) List(ctx context.Context, args []string) error {
	return f.record("list " + strings.Join(args, " "))
}
func (f *fakeExec) Check(ctx context.Context, args []string) error {
	return f.record("check " + strings.Join(args, " "))
}
func (f *fakeExec) CheckAll(ctx context.Context) error { return f.record("checkall") }
func (f *fakeExec) Select(ctx context.Context, args []string) error {
	return f.record("select " + strings.Join(args, " "))
}
func (f *fakeExec) SelectAll(ctx context.Context, selected bool) error {
	if selected {
		return f.record("selectall")
	}
	return f.record("selectnone")
}
func (f *fakeExec) Launch(ctx context.Context, args []string) error {
	return f.record("launch " + strings.Join(args, " "))
}
func (f *fakeExec) Login(ctx context.Context, args []string) error  { return f.record("login") }
func (f *fakeExec) Update(ctx context.Context, args []string) error { return f.record("update") }
func (f *fakeExec) Delete(ctx context.Context, args []string) error { return f.record("delete") }
func (f *fakeExec) Import(ctx context.Context, args []string) error { return f.record("import") }
func (f *fakeExec) Export(ctx context.Context, args []string) error { return f.record("export") }
func (f *fakeExec) Set(ctx context.Context, args []string) error    { return f.record("set") }
func (f *fakeExec) ShowSettings(ctx context.Context) error          { return f.record("settings") }
func (f *fakeExec) Recent(ctx context.Context) error                { return f.record("recent") }

func TestRunREPL_DispatchAndExit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"list alice",
		"check bob",
		"checkall",
		"select alice off",
		"selectall",
		"launch 123 Tower",
		"foobar",
		"",
		"exit",
		"list never-reached",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	want := []string{
		"list alice",
		"check bob",
		"checkall",
		"select alice off",
		"selectall",
		"launch 123 Tower",
	}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, want)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Fatalf("call %d: got %q, want %q", i, exec.calls[i], want[i])
		}
	}
}

func TestRunREPL_QuitOnEOF(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(strings.NewReader("")))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
