package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/laundry-backend/internal/storage"
)

var testEpoch = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e OrderEvent) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *recordingNotifier) Types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type authFixture struct {
	clock   *fakeClock
	backend *storage.MemoryBackend
	users   *CredentialStore
	tokens  *TokenService
	gateway *AuthGateway
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newFakeClock()
	backend := storage.NewMemoryBackend()
	users := NewCredentialStore(backend, clock.Now)
	require.NoError(t, users.Load(context.Background()))

	tokens, err := NewHMACTokenService("test-secret", clock.Now)
	require.NoError(t, err)

	gw := NewAuthGateway(users, tokens, nil)
	gw.now = clock.Now
	return &authFixture{clock: clock, backend: backend, users: users, tokens: tokens, gateway: gw}
}

type orderFixture struct {
	clock    *fakeClock
	backend  *storage.MemoryBackend
	store    *OrderStore
	notifier *recordingNotifier
	svc      *OrderService
}

func newOrderFixture(t *testing.T, strict bool) *orderFixture {
	t.Helper()

	clock := newFakeClock()
	backend := storage.NewMemoryBackend()
	store := NewOrderStore(backend, nil)
	require.NoError(t, store.Load(context.Background()))

	notifier := &recordingNotifier{}
	svc := NewOrderService(store, OrderServiceOptions{
		Notifier:          notifier,
		StrictTransitions: strict,
		Now:               clock.Now,
	})
	return &orderFixture{clock: clock, backend: backend, store: store, notifier: notifier, svc: svc}
}
