package registry

import "context"

// Level grades user-facing notifications.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier is the user-visible reporting side channel. The presentation
// layer renders these however it likes (toasts, console lines); the
// registry only promises that every failure path produces a message naming
// the account and operation.
type Notifier interface {
	Notify(ctx context.Context, level Level, title, message string)
}

// NopNotifier discards notifications. Default in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, level Level, title, message string) {}
