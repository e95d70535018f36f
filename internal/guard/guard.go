package guard

import (
	"context"
	"sync"

	"gadget-hub/internal/models"
)

// State is the resolution state of an access guard.
type State int

const (
	// StateResolving means the identity provider has not reported yet.
	// Protected content must not render; show a loading affordance.
	StateResolving State = iota
	// StateAuthorized means a non-anonymous identity was reported.
	StateAuthorized
	// StateUnauthorized means resolution completed with no identity.
	StateUnauthorized
)

func (s State) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "resolving"
	}
}

// Decision is the guard's verdict for a protected view.
type Decision struct {
	State      State
	Session    *models.Session
	RedirectTo string // sign-in target when unauthorized; replaces history
}

// IdentityProvider delivers the current identity asynchronously. The
// callback fires at least once, possibly with nil for "no identity".
type IdentityProvider interface {
	OnIdentity(callback func(*models.Session)) (cancel func())
}

// SessionSource yields a fallback session snapshot, typically the
// persisted session store. May report nil.
type SessionSource interface {
	Current() *models.Session
}

// Guard gates access to a protected view. It resolves exactly once per
// instance: Resolving transitions to Authorized or Unauthorized on the
// provider's first report and never transitions again.
type Guard struct {
	signInPath string
	fallback   SessionSource

	mu       sync.Mutex
	state    State
	session  *models.Session
	resolved chan struct{}
	cancel   func()
	once     sync.Once
}

// New creates a guard and subscribes to the provider. fallback may be nil;
// when present it is consulted if the provider reports anonymous.
func New(provider IdentityProvider, fallback SessionSource, signInPath string) *Guard {
	g := &Guard{
		signInPath: signInPath,
		fallback:   fallback,
		state:      StateResolving,
		resolved:   make(chan struct{}),
	}

	cancel := provider.OnIdentity(g.resolve)

	// The provider may report from another goroutine, or synchronously
	// before the subscription call returns. Publish the cancel func under
	// the lock, and run it here if resolution already happened.
	g.mu.Lock()
	pending := g.state == StateResolving
	if pending {
		g.cancel = cancel
	}
	g.mu.Unlock()

	if !pending && cancel != nil {
		cancel()
	}
	return g
}

// resolve handles the provider's report. Only the first report counts.
func (g *Guard) resolve(sess *models.Session) {
	g.once.Do(func() {
		g.mu.Lock()

		if !sess.Valid() && g.fallback != nil {
			sess = g.fallback.Current()
		}

		if sess.Valid() {
			g.state = StateAuthorized
			copied := *sess
			g.session = &copied
		} else {
			g.state = StateUnauthorized
			g.session = nil
		}

		cancel := g.cancel
		g.cancel = nil
		g.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		close(g.resolved)
	})
}

// State returns the current resolution state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Decision returns the current verdict without blocking. While the state
// is Resolving the decision carries no session and no redirect.
func (g *Guard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := Decision{State: g.state}
	if g.session != nil {
		copied := *g.session
		d.Session = &copied
	}
	if g.state == StateUnauthorized {
		d.RedirectTo = g.signInPath
	}
	return d
}

// Wait blocks until the provider's first report resolves the guard, or
// the context ends. The provider contract guarantees the callback fires
// at least once, so Wait cannot block forever under a live provider.
func (g *Guard) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-g.resolved:
		return g.Decision(), nil
	case <-ctx.Done():
		return g.Decision(), ctx.Err()
	}
}
