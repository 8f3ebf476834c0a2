package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/services"
)

const (
	restTimeout      = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Remote forwards local order changes to the server. While a websocket
// session is open, creates and status changes travel as commands on it;
// everything else, and everything while disconnected, goes over REST.
// Forwarding failures are logged and never surface to the local caller.
type Remote struct {
	baseURL string
	wsURL   string
	http    *http.Client
	dialer  *websocket.Dialer
	store   *services.OrderStore
	now     func() time.Time
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	token   string
	conn    *websocket.Conn
	writeMu sync.Mutex

	syncResults chan services.SyncResult
}

// NewRemote targets the server at baseURL (http or https). Incoming server
// events are applied to store, with status changes stamped by now.
func NewRemote(baseURL string, store *services.OrderStore, httpClient *http.Client, now func() time.Time, log *zap.Logger) (*Remote, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	ws.Path += "/ws/orders"

	if httpClient == nil {
		httpClient = &http.Client{Timeout: restTimeout}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Remote{
		baseURL:     u.String(),
		wsURL:       ws.String(),
		http:        httpClient,
		dialer:      &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		store:       store,
		now:         now,
		log:         log.With(zap.String("component", "remote")),
		ctx:         ctx,
		cancel:      cancel,
		syncResults: make(chan services.SyncResult, 1),
	}, nil
}

// SetToken sets the bearer token sent with REST calls.
func (r *Remote) SetToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

func (r *Remote) bearer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

func (r *Remote) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// SyncResults delivers the server's reply to the syncOrders sent on connect.
func (r *Remote) SyncResults() <-chan services.SyncResult { return r.syncResults }

// Connect opens the websocket session, pushes every local order for the
// server to merge and starts applying server events to the local store.
func (r *Remote) Connect(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Unauthenticated("Authentication token required")
	}
	r.SetToken(token)

	conn, resp, err := r.dialer.DialContext(ctx, r.wsURL, http.Header{"Authorization": {"Bearer " + token}})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.wsURL, err)
	}

	r.mu.Lock()
	old := r.conn
	r.conn = conn
	r.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	r.wg.Add(1)
	go r.readLoop(conn)

	env, err := services.NewEnvelope(services.MsgSyncOrders, r.store.All())
	if err != nil {
		return err
	}
	if err := r.write(conn, env); err != nil {
		r.drop(conn)
		return fmt.Errorf("send sync: %w", err)
	}
	return nil
}

// Disconnect closes the websocket session. Later changes go over REST.
func (r *Remote) Disconnect() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn == nil {
		return
	}
	r.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
	_ = conn.Close()
}

// Flush waits for REST calls in flight.
func (r *Remote) Flush() {
	r.wg.Wait()
}

// Close disconnects, waits for pending forwards and stops the remote.
func (r *Remote) Close() {
	r.Disconnect()
	r.wg.Wait()
	r.cancel()
}

func (r *Remote) Notify(ctx context.Context, event services.OrderEvent) {
	if r.sendCommand(event) {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restTimeout)
		defer cancel()
		if err := r.forward(fctx, event); err != nil {
			r.log.Warn("forward order change failed",
				zap.String("event", string(event.Type)),
				zap.String("order_id", event.Order.ID),
				zap.Error(err),
			)
		}
	}()
}

// sendCommand reports whether event went out on the websocket.
func (r *Remote) sendCommand(event services.OrderEvent) bool {
	var (
		msgType string
		data    any
	)
	switch event.Type {
	case services.EventCreated:
		msgType, data = services.MsgCreateOrder, event.Order
	case services.EventStatusUpdated:
		msgType, data = services.MsgUpdateOrderStatus, services.StatusChange{OrderID: event.Order.ID, Status: event.Order.Status}
	default:
		return false
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return false
	}

	env, err := services.NewEnvelope(msgType, data)
	if err != nil {
		return false
	}
	if err := r.write(conn, env); err != nil {
		r.log.Warn("websocket send failed, using REST", zap.Error(err))
		r.drop(conn)
		return false
	}
	return true
}

func (r *Remote) write(conn *websocket.Conn, env services.Envelope) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(restTimeout))
	return conn.WriteJSON(env)
}

// drop forgets conn if it is still the current session.
func (r *Remote) drop(conn *websocket.Conn) {
	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()
	_ = conn.Close()
}

func (r *Remote) forward(ctx context.Context, event services.OrderEvent) error {
	id := url.PathEscape(event.Order.ID)
	var (
		method, path string
		body         any
	)
	switch event.Type {
	case services.EventCreated:
		method, path, body = http.MethodPost, "/api/orders", event.Order
	case services.EventStatusUpdated:
		method, path, body = http.MethodPut, "/api/orders/"+id+"/status", map[string]models.OrderStatus{"status": event.Order.Status}
	case services.EventUpdated:
		method, path, body = http.MethodPut, "/api/orders/"+id, event.Order
	case services.EventDeleted:
		method, path = http.MethodDelete, "/api/orders/"+id
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := r.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (r *Remote) readLoop(conn *websocket.Conn) {
	defer r.wg.Done()
	defer r.drop(conn)

	for {
		var env services.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			r.log.Debug("websocket session ended", zap.Error(err))
			return
		}
		if err := r.apply(r.ctx, env); err != nil {
			r.log.Warn("apply server event failed", zap.String("type", env.Type), zap.Error(err))
		}
	}
}

// apply mirrors a server event into the local store. It writes the store
// directly so the change is not forwarded back.
func (r *Remote) apply(ctx context.Context, env services.Envelope) error {
	switch env.Type {
	case services.MsgOrderCreated:
		var o models.Order
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return err
		}
		_, err := r.store.InsertMissing(ctx, []models.Order{o})
		return err

	case services.MsgOrderUpdated:
		var o models.Order
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return err
		}
		if !r.store.ContainsExact(o.ID) {
			return nil
		}
		_, err := r.store.Put(ctx, o)
		return err

	case services.MsgStatusUpdated:
		var change services.StatusChange
		if err := json.Unmarshal(env.Data, &change); err != nil {
			return err
		}
		if !r.store.ContainsExact(change.ID) || !change.Status.Valid() {
			return nil
		}
		_, err := r.store.Replace(ctx, change.ID, func(o models.Order) (models.Order, error) {
			o.Status = change.Status
			o.StatusHistory.Set(change.Status, r.now().UTC())
			return o, nil
		})
		return err

	case services.MsgOrderDeleted:
		var ref services.OrderRef
		if err := json.Unmarshal(env.Data, &ref); err != nil {
			return err
		}
		if !r.store.ContainsExact(ref.ID) {
			return nil
		}
		_, err := r.store.Delete(ctx, ref.ID)
		return err

	case services.MsgSyncResult:
		var result services.SyncResult
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return err
		}
		r.log.Info("orders synced",
			zap.Int("added", result.Added),
			zap.Int("skipped", result.Skipped),
			zap.Int("invalid", result.Invalid),
		)
		select {
		case r.syncResults <- result:
		default:
		}
		return nil

	case services.MsgError:
		r.log.Warn("server rejected command", zap.String("error", env.Error))
		return nil
	}
	return nil
}
