package notifications

import (
	"context"
	"sync"
)

// PermissionState is the gate's view of the platform notification
// capability.
type PermissionState string

const (
	PermissionUnrequested PermissionState = "unrequested"
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
)

// Capability abstracts the platform primitive behind the permission gate:
// whether notifications can be shown at all, and the one user-triggered
// prompt. Implementations: push-token registration against FCM, or the
// test fakes.
type Capability interface {
	// Supported reports whether the platform can display notifications.
	Supported() bool
	// Request triggers the platform permission prompt.
	Request(ctx context.Context) (PermissionState, error)
}

// Gate wraps a Capability in the three-state permission machine:
// unrequested → granted | denied, with denied terminal. It never re-prompts
// after a denial — the platform would refuse silently, so the gate reports
// "still denied" instead. State is session-visible only; nothing persists.
type Gate struct {
	mu    sync.Mutex
	cap   Capability
	state PermissionState
}

// NewGate creates a gate in the unrequested state. An unsupported
// capability collapses straight to denied.
func NewGate(capability Capability) *Gate {
	g := &Gate{cap: capability, state: PermissionUnrequested}
	if capability == nil || !capability.Supported() {
		g.state = PermissionDenied
	}
	return g
}

// State returns the current permission state.
func (g *Gate) State() PermissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Granted reports whether scheduling is allowed.
func (g *Gate) Granted() bool { return g.State() == PermissionGranted }

// Request runs the single permitted transition. From granted it is a no-op
// returning the cached result; from denied it returns denied without
// prompting. Platform errors degrade to denied locally — a permission
// failure is a status indicator, never a blocking error.
func (g *Gate) Request(ctx context.Context) PermissionState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != PermissionUnrequested {
		return g.state
	}

	state, err := g.cap.Request(ctx)
	if err != nil {
		g.state = PermissionDenied
		return g.state
	}
	// A dismissed prompt reports unrequested and stays requestable.
	if state == PermissionGranted || state == PermissionDenied {
		g.state = state
	}
	return g.state
}
