package guard

import (
	"context"
	"testing"
	"time"

	"gadget-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider lets tests control when the identity report fires.
type fakeProvider struct {
	callback  func(*models.Session)
	cancelled bool
}

func (p *fakeProvider) OnIdentity(callback func(*models.Session)) (cancel func()) {
	p.callback = callback
	return func() { p.cancelled = true }
}

func (p *fakeProvider) fire(sess *models.Session) {
	p.callback(sess)
}

// staticSource is a SessionSource with a fixed snapshot.
type staticSource struct {
	sess *models.Session
}

func (s *staticSource) Current() *models.Session {
	return s.sess
}

func signedIn() *models.Session {
	return &models.Session{UserID: "user-1", Email: "alice@example.com"}
}

func TestGuardStartsResolving(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	assert.Equal(t, StateResolving, g.State())

	d := g.Decision()
	assert.Equal(t, StateResolving, d.State)
	assert.Nil(t, d.Session)
	assert.Empty(t, d.RedirectTo)
}

func TestGuardAuthorizesOnIdentity(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	provider.fire(signedIn())

	assert.Equal(t, StateAuthorized, g.State())

	d := g.Decision()
	require.NotNil(t, d.Session)
	assert.Equal(t, "alice@example.com", d.Session.Email)
	assert.Empty(t, d.RedirectTo)
}

func TestGuardUnauthorizedRedirectsToSignIn(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	provider.fire(nil)

	d := g.Decision()
	assert.Equal(t, StateUnauthorized, d.State)
	assert.Nil(t, d.Session)
	assert.Equal(t, "/login", d.RedirectTo)
}

func TestGuardResolvesExactlyOnce(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	provider.fire(signedIn())
	provider.fire(nil) // late report must not flip the decision

	assert.Equal(t, StateAuthorized, g.State())
	assert.True(t, provider.cancelled)
}

func TestGuardFallsBackToSessionStore(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, &staticSource{sess: signedIn()}, "/login")

	// Provider reports anonymous but the persisted store has a session.
	provider.fire(nil)

	d := g.Decision()
	assert.Equal(t, StateAuthorized, d.State)
	require.NotNil(t, d.Session)
	assert.Equal(t, "user-1", d.Session.UserID)
}

func TestGuardEmptyFallbackIsUnauthorized(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, &staticSource{}, "/login")

	provider.fire(nil)

	assert.Equal(t, StateUnauthorized, g.State())
}

func TestGuardPartialIdentityIsUnauthorized(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	provider.fire(&models.Session{Email: "no-id@example.com"})

	assert.Equal(t, StateUnauthorized, g.State())
}

func TestWaitBlocksUntilResolution(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	go func() {
		time.Sleep(10 * time.Millisecond)
		provider.fire(signedIn())
	}()

	d, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, d.State)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d, err := g.Wait(ctx)
	assert.Error(t, err)
	assert.Equal(t, StateResolving, d.State)
}

// asyncProvider delivers the report from its own goroutine, the way a
// polling identity source does.
type asyncProvider struct {
	sess      *models.Session
	cancelled chan struct{}
}

func (p *asyncProvider) OnIdentity(callback func(*models.Session)) (cancel func()) {
	go callback(p.sess)
	return func() { close(p.cancelled) }
}

func TestGuardResolvesAsynchronousReport(t *testing.T) {
	provider := &asyncProvider{sess: signedIn(), cancelled: make(chan struct{})}
	g := New(provider, nil, "/login")

	d, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, d.State)
	require.NotNil(t, d.Session)
	assert.Equal(t, "user-1", d.Session.UserID)

	select {
	case <-provider.cancelled:
	case <-time.After(time.Second):
		t.Fatal("subscription was not cancelled after resolution")
	}
}

// eagerProvider reports synchronously during subscription, before the
// cancel func is even returned.
type eagerProvider struct {
	sess      *models.Session
	cancelled bool
}

func (p *eagerProvider) OnIdentity(callback func(*models.Session)) (cancel func()) {
	callback(p.sess)
	return func() { p.cancelled = true }
}

func TestGuardHandlesSynchronousReport(t *testing.T) {
	provider := &eagerProvider{sess: signedIn()}
	g := New(provider, nil, "/login")

	assert.Equal(t, StateAuthorized, g.State())
	assert.True(t, provider.cancelled)
}

func TestDecisionReturnsSessionCopy(t *testing.T) {
	provider := &fakeProvider{}
	g := New(provider, nil, "/login")
	provider.fire(signedIn())

	first := g.Decision()
	first.Session.Email = "mutated@example.com"

	second := g.Decision()
	assert.Equal(t, "alice@example.com", second.Session.Email)
}
