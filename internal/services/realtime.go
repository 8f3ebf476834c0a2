package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/metrics"
	"github.com/AnshRaj112/laundry-backend/internal/models"
)

type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusUpdated EventType = "statusUpdated"
	EventDeleted       EventType = "deleted"
)

// OrderEvent describes a persisted order change.
type OrderEvent struct {
	Type  EventType
	Order models.Order
}

// Notifier is told about every persisted order change. Implementations must
// not block the caller for long and never fail the originating request.
type Notifier interface {
	Notify(ctx context.Context, event OrderEvent)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, OrderEvent) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event OrderEvent)

func (f NotifierFunc) Notify(ctx context.Context, event OrderEvent) { f(ctx, event) }

// Wire message types on the realtime channel.
const (
	MsgOrderCreated      = "orderCreated"
	MsgOrderUpdated      = "orderUpdated"
	MsgStatusUpdated     = "statusUpdated"
	MsgOrderDeleted      = "orderDeleted"
	MsgCreateOrder       = "createOrder"
	MsgUpdateOrderStatus = "updateOrderStatus"
	MsgSyncOrders        = "syncOrders"
	MsgSyncResult        = "syncResult"
	MsgPing              = "ping"
	MsgPong              = "pong"
	MsgError             = "error"
)

// Envelope is the frame exchanged over the realtime channel.
type Envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StatusChange is the payload of statusUpdated and updateOrderStatus.
type StatusChange struct {
	ID      string             `json:"id,omitempty"`
	OrderID string             `json:"orderId,omitempty"`
	Status  models.OrderStatus `json:"status"`
}

// OrderRef is the payload of orderDeleted.
type OrderRef struct {
	ID string `json:"id"`
}

// NewEnvelope marshals data into an envelope of type msgType.
func NewEnvelope(msgType string, data any) (Envelope, error) {
	env := Envelope{Type: msgType}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

// ErrorEnvelope builds the reply sent to a peer whose message failed.
func ErrorEnvelope(msg string) Envelope {
	return Envelope{Type: MsgError, Error: msg}
}

// EnvelopesFor maps an order event to the frames broadcast to peers. A status
// change is sent both as the compact statusUpdated and as the full order.
func EnvelopesFor(event OrderEvent) ([]Envelope, error) {
	type frame struct {
		typ  string
		data any
	}
	var frames []frame
	switch event.Type {
	case EventCreated:
		frames = []frame{{MsgOrderCreated, event.Order}}
	case EventUpdated:
		frames = []frame{{MsgOrderUpdated, event.Order}}
	case EventStatusUpdated:
		frames = []frame{
			{MsgStatusUpdated, StatusChange{ID: event.Order.ID, Status: event.Order.Status}},
			{MsgOrderUpdated, event.Order},
		}
	case EventDeleted:
		frames = []frame{{MsgOrderDeleted, OrderRef{ID: event.Order.ID}}}
	}

	out := make([]Envelope, 0, len(frames))
	for _, f := range frames {
		env, err := NewEnvelope(f.typ, f.data)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// DefaultPeerQueue is the number of frames buffered per peer.
const DefaultPeerQueue = 64

// Peer is one connected realtime client. Its queue is drained by exactly one
// writer owned by the transport.
type Peer struct {
	ID     string
	UserID string
	send   chan []byte
}

// Outbound yields encoded frames for the peer. It is closed on Unregister.
func (p *Peer) Outbound() <-chan []byte { return p.send }

// Hub is the registry of connected peers. Fan-out never blocks: a peer whose
// queue is full misses the frame.
type Hub struct {
	mu        sync.RWMutex
	peers     map[*Peer]struct{}
	queueSize int
	log       *zap.Logger
}

func NewHub(queueSize int, log *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultPeerQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		peers:     make(map[*Peer]struct{}),
		queueSize: queueSize,
		log:       log.With(zap.String("component", "realtime_hub")),
	}
}

func (h *Hub) Register(userID string) *Peer {
	p := &Peer{ID: uuid.NewString(), UserID: userID, send: make(chan []byte, h.queueSize)}

	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()

	metrics.RealtimePeers.Inc()
	h.log.Debug("peer connected", zap.String("peer_id", p.ID), zap.String("user_id", userID), zap.Int("peers", n))
	return p
}

// Unregister removes the peer and closes its queue. Safe to call twice.
func (h *Hub) Unregister(p *Peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	if ok {
		delete(h.peers, p)
		close(p.send)
	}
	h.mu.Unlock()

	if ok {
		metrics.RealtimePeers.Dec()
		h.log.Debug("peer disconnected", zap.String("peer_id", p.ID))
	}
}

func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Notify broadcasts the frames for event to every peer.
func (h *Hub) Notify(_ context.Context, event OrderEvent) {
	envs, err := EnvelopesFor(event)
	if err != nil {
		h.log.Error("encode order event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	for _, env := range envs {
		h.Broadcast(env)
	}
}

// Broadcast sends env to every peer.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("encode envelope", zap.String("type", env.Type), zap.Error(err))
		return
	}
	h.broadcastRaw(data)
}

func (h *Hub) broadcastRaw(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		h.enqueue(p, data)
	}
}

// SendTo queues env for a single peer, e.g. a reply to its own message.
// It returns false if the peer is gone or its queue is full.
func (h *Hub) SendTo(p *Peer, env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("encode envelope", zap.String("type", env.Type), zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.peers[p]; !ok {
		return false
	}
	return h.enqueue(p, data)
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(p *Peer, data []byte) bool {
	select {
	case p.send <- data:
		return true
	default:
		metrics.RealtimeDropped.Inc()
		h.log.Warn("peer queue full, dropping frame", zap.String("peer_id", p.ID))
		return false
	}
}
