package sync

import "sync"

// Connectivity exposes the external "is online" and "is authenticated"
// signals the engine consumes. Both are owned by collaborators outside this
// subsystem (the UI shell and the auth layer); the engine never manages
// either itself.
type Connectivity interface {
	Online() bool
	Authenticated() bool
}

// NetState is a settable Connectivity implementation fed by the UI shell's
// connectivity and auth events. Callbacks registered with OnRegain fire when
// sync becomes possible again (offline to online, or logged out to logged in
// while online), mirroring the app's "sync on reconnect" trigger.
type NetState struct {
	mu            sync.Mutex
	online        bool
	authenticated bool
	onRegain      []func()
}

var _ Connectivity = (*NetState)(nil)

// NewNetState returns a NetState that assumes connectivity and no session,
// matching a fresh app start before the shell reports anything.
func NewNetState() *NetState {
	return &NetState{online: true}
}

// Online implements Connectivity.
func (n *NetState) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

// Authenticated implements Connectivity.
func (n *NetState) Authenticated() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.authenticated
}

// OnRegain registers a callback invoked (on its own goroutine) whenever the
// combined online+authenticated state transitions from false to true.
func (n *NetState) OnRegain(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onRegain = append(n.onRegain, fn)
}

// SetOnline records a connectivity change reported by the shell.
func (n *NetState) SetOnline(online bool) {
	n.transition(func() { n.online = online })
}

// SetAuthenticated records an auth-session change reported by the shell.
func (n *NetState) SetAuthenticated(authenticated bool) {
	n.transition(func() { n.authenticated = authenticated })
}

func (n *NetState) transition(apply func()) {
	n.mu.Lock()
	before := n.online && n.authenticated
	apply()
	after := n.online && n.authenticated
	callbacks := n.onRegain
	n.mu.Unlock()

	if !before && after {
		for _, fn := range callbacks {
			go fn()
		}
	}
}
