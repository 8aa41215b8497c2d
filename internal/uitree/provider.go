package uitree

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoMatch is returned by lookups when no node satisfies the query.
	ErrNoMatch = errors.New("uitree: no matching node")
	// ErrNotInstalled is returned by a Launcher for unknown package identifiers.
	ErrNotInstalled = errors.New("uitree: app not installed")
)

// Node is an opaque handle to one element of the live tree.
type Node interface {
	Text() string
}

// Provider exposes a live element tree and the physical interactions on it.
//
// Lookups return ErrNoMatch when nothing matches; any other error is a fault
// of the provider itself. The boolean results of the actions report whether
// the underlying platform accepted the action.
type Provider interface {
	// FindByText searches label and description depth-first and returns the
	// first match in document order. Non-exact matching is case-insensitive
	// containment.
	FindByText(ctx context.Context, text string, exact bool) (Node, error)
	// FindEditable returns the first editable node. A non-empty hint further
	// filters by label, description or placeholder containment.
	FindEditable(ctx context.Context, hint string) (Node, error)
	Click(ctx context.Context, n Node) (bool, error)
	SetText(ctx context.Context, n Node, text string) (bool, error)
	PressBack(ctx context.Context) (bool, error)
	ScrollForward(ctx context.Context) (bool, error)
	ScrollBackward(ctx context.Context) (bool, error)
}

// Homer is implemented by providers that can return to the home screen.
type Homer interface {
	PressHome(ctx context.Context) (bool, error)
}

// Launcher starts an application by package identifier.
type Launcher interface {
	LaunchApp(ctx context.Context, packageID string) error
}

// Holder tracks the currently attached provider. A provider is attached
// when the platform facility becomes active and detached when it goes away.
type Holder struct {
	mu       sync.RWMutex
	provider Provider
}

// NewHolder returns a holder with p attached. p may be nil.
func NewHolder(p Provider) *Holder {
	return &Holder{provider: p}
}

func (h *Holder) Attach(p Provider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.provider = p
}

func (h *Holder) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.provider = nil
}

// Current returns the attached provider or nil.
func (h *Holder) Current() Provider {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.provider
}
