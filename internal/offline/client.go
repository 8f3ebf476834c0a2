// Package offline is the local-first variant: the same credential and order
// services running over local storage, with changes forwarded to a server
// when one is configured.
//
// An embedding application opens a client over its data directory, logs in,
// and connects when the server is reachable:
//
//	c, err := offline.Open(ctx, offline.Options{
//		DataDir:     dir,
//		ServerURL:   "http://localhost:3000",
//		TokenSecret: secret,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	if _, err := c.Login(ctx, email, password); err != nil {
//		return err
//	}
//	if err := c.Connect(ctx); err != nil {
//		// Orders still work locally and are forwarded over REST.
//	}
//	order, err := c.Orders.Create(ctx, models.Order{Customer: customer, Services: items})
package offline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/services"
	"github.com/AnshRaj112/laundry-backend/internal/storage"
)

var (
	ErrNoServer  = errors.New("offline: no server configured")
	ErrNoSession = errors.New("offline: not logged in")
)

type Options struct {
	// DataDir holds users.json, orders.json and session.json. Empty keeps
	// everything in memory.
	DataDir string
	// ServerURL enables forwarding, e.g. "http://localhost:3000".
	ServerURL         string
	TokenSecret       string
	StrictTransitions bool
	HTTPClient        *http.Client
	Logger            *zap.Logger
	Now               func() time.Time
}

type Client struct {
	Users  *services.CredentialStore
	Auth   *services.AuthGateway
	Orders *services.OrderService
	// Remote is nil when no ServerURL was given.
	Remote *Remote

	sessions *storage.Collection[models.Session]
	now      func() time.Time
	log      *zap.Logger
}

// Open loads the local collections and wires the services.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.With(zap.String("component", "offline"))

	var backend storage.Backend = storage.NewMemoryBackend()
	if opts.DataDir != "" {
		fb, err := storage.NewFileBackend(opts.DataDir)
		if err != nil {
			return nil, err
		}
		backend = fb
	}

	users := services.NewCredentialStore(backend, opts.Now)
	if err := users.Load(ctx); err != nil {
		return nil, err
	}
	tokens, err := services.NewHMACTokenService(opts.TokenSecret, opts.Now)
	if err != nil {
		return nil, err
	}
	orders := services.NewOrderStore(backend, opts.Logger)
	if err := orders.Load(ctx); err != nil {
		return nil, err
	}
	sessions := storage.NewCollection(backend, storage.Sessions, func(s models.Session) models.Session { return s })
	if err := sessions.Load(ctx); err != nil {
		return nil, err
	}

	c := &Client{
		Users:    users,
		Auth:     services.NewAuthGateway(users, tokens, opts.Logger),
		sessions: sessions,
		now:      opts.Now,
		log:      log,
	}

	var notifier services.Notifier = services.NopNotifier{}
	if opts.ServerURL != "" {
		remote, err := NewRemote(opts.ServerURL, orders, opts.HTTPClient, opts.Now, opts.Logger)
		if err != nil {
			return nil, err
		}
		c.Remote = remote
		notifier = remote
	}
	c.Orders = services.NewOrderService(orders, services.OrderServiceOptions{
		Notifier:          notifier,
		StrictTransitions: opts.StrictTransitions,
		Now:               opts.Now,
		Logger:            opts.Logger,
	})

	if s, ok := c.CurrentSession(ctx); ok && c.Remote != nil {
		c.Remote.SetToken(s.Token)
	}
	return c, nil
}

// Login authenticates locally and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	user, token, err := c.Auth.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}
	session := models.Session{User: user, Token: token, Timestamp: c.now().UTC()}
	if err := c.sessions.Mutate(ctx, func([]models.Session) ([]models.Session, error) {
		return []models.Session{session}, nil
	}); err != nil {
		return models.Session{}, err
	}
	if c.Remote != nil {
		c.Remote.SetToken(token)
	}
	c.log.Info("logged in", zap.String("user_id", user.ID))
	return session, nil
}

// CurrentSession returns the stored session while its token still verifies.
// An expired or unreadable session is cleared.
func (c *Client) CurrentSession(ctx context.Context) (models.Session, bool) {
	var (
		session models.Session
		found   bool
	)
	c.sessions.Read(func(items []models.Session) {
		if len(items) > 0 {
			session, found = items[0], true
		}
	})
	if !found {
		return models.Session{}, false
	}
	if _, err := c.Auth.Authenticate(session.Token); err != nil {
		if err := c.clearSession(ctx); err != nil {
			c.log.Warn("clear expired session failed", zap.Error(err))
		}
		return models.Session{}, false
	}
	return session, true
}

// Logout clears the session and closes any server session.
func (c *Client) Logout(ctx context.Context) error {
	if c.Remote != nil {
		c.Remote.Disconnect()
		c.Remote.SetToken("")
	}
	return c.clearSession(ctx)
}

// DeleteUser removes an account from the local store. The server has no
// equivalent; this only exists locally.
func (c *Client) DeleteUser(ctx context.Context, id string) (models.PublicUser, error) {
	user, err := c.Auth.DeleteAccount(ctx, id)
	if err != nil {
		return models.PublicUser{}, err
	}
	var current bool
	c.sessions.Read(func(items []models.Session) {
		current = len(items) > 0 && items[0].User.ID == id
	})
	if current {
		if err := c.Logout(ctx); err != nil {
			return user, err
		}
	}
	return user, nil
}

// Connect opens the realtime session with the stored login and reconciles
// local orders with the server.
func (c *Client) Connect(ctx context.Context) error {
	if c.Remote == nil {
		return ErrNoServer
	}
	session, ok := c.CurrentSession(ctx)
	if !ok {
		return ErrNoSession
	}
	return c.Remote.Connect(ctx, session.Token)
}

// Close stops forwarding after in-flight calls finish.
func (c *Client) Close() {
	if c.Remote != nil {
		c.Remote.Close()
	}
}

func (c *Client) clearSession(ctx context.Context) error {
	return c.sessions.Mutate(ctx, func([]models.Session) ([]models.Session, error) {
		return nil, nil
	})
}
