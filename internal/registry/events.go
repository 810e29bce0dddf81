package registry

import (
	"context"
	"sync"

	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

// EventType names a registry change notification.
type EventType string

const (
	EventAccountsChanged EventType = "accountsChanged"
	EventAccountSelected EventType = "accountSelected"
	EventAccountLaunched EventType = "accountLaunched"
	EventSettingsChanged EventType = "settingsChanged"
)

// Event is delivered synchronously to subscribed listeners. Fields are
// populated depending on Type.
type Event struct {
	Type EventType

	// Change qualifies an accountsChanged event: "add", "update",
	// "delete", "check" or "import".
	Change string

	// Account is the entity the event is about, when there is one.
	Account *models.Account

	// Selection details for accountSelected events.
	Selected      bool
	SelectedCount int

	// Target carries the launched resource id for accountLaunched events.
	Target string
}

// Listener receives events. A panicking listener is isolated: it neither
// stops other listeners nor the emitting call.
type Listener func(Event)

type eventBus struct {
	mu        sync.Mutex
	listeners map[EventType][]Listener
	log       logging.Logger
}

func newEventBus(log logging.Logger) *eventBus {
	return &eventBus{listeners: map[EventType][]Listener{}, log: log}
}

func (b *eventBus) subscribe(t EventType, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[t] = append(b.listeners[t], fn)
}

// emit runs listeners synchronously, in subscription order.
func (b *eventBus) emit(ctx context.Context, ev Event) {
	b.mu.Lock()
	fns := make([]Listener, len(b.listeners[ev.Type]))
	copy(fns, b.listeners[ev.Type])
	b.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if p := recover(); p != nil {
					b.log.Error(ctx, "event listener panicked", "event", string(ev.Type), "panic", p)
				}
			}()
			fn(ev)
		}()
	}
}
