package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/middleware"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/services"
)

const (
	wsReadLimit    = 1 << 20
	wsPongWait     = 90 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
)

// RealtimeHandler serves GET /ws/orders. Each connection is a Hub peer: it
// receives every order event and may send createOrder, updateOrderStatus,
// syncOrders and ping messages.
type RealtimeHandler struct {
	hub      *services.Hub
	orders   *services.OrderService
	auth     middleware.Authenticator
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewRealtimeHandler(hub *services.Hub, orders *services.OrderService, auth middleware.Authenticator, allowedOrigins []string, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		orders: orders,
		auth:   auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.With(zap.String("component", "realtime_ws")),
	}
}

// originChecker accepts non-browser clients (no Origin) and the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSpace(a), origin) {
				return true
			}
		}
		return false
	}
}

func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		// browsers cannot set headers on a websocket handshake
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "Authentication token required"})
		return
	}
	payload, err := h.auth.Authenticate(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "Invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peer := h.hub.Register(payload.UserID)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, peer)
	}()

	h.readLoop(ctx, conn, peer, payload)

	h.hub.Unregister(peer)
	<-writerDone
	_ = conn.Close()
}

// writeLoop is the only goroutine writing to conn.
func (h *RealtimeHandler) writeLoop(conn *websocket.Conn, peer *services.Peer) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-peer.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug("websocket write failed", zap.String("peer_id", peer.ID), zap.Error(err))
				_ = conn.Close()
				drain(peer)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(peer)
				return
			}
		}
	}
}

// drain discards frames until the hub closes the queue.
func drain(peer *services.Peer) {
	for range peer.Outbound() {
	}
}

func (h *RealtimeHandler) readLoop(ctx context.Context, conn *websocket.Conn, peer *services.Peer, payload models.TokenPayload) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket closed", zap.String("peer_id", peer.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg services.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.SendTo(peer, services.ErrorEnvelope("Invalid message"))
			continue
		}
		h.dispatch(ctx, peer, payload, msg)
	}
}

func (h *RealtimeHandler) dispatch(ctx context.Context, peer *services.Peer, payload models.TokenPayload, msg services.Envelope) {
	reply := func(err error) {
		h.hub.SendTo(peer, services.ErrorEnvelope(apperr.PublicMessage(err)))
	}

	switch msg.Type {
	case services.MsgCreateOrder:
		var order models.Order
		if err := json.Unmarshal(msg.Data, &order); err != nil {
			reply(apperr.Validation("Invalid order data"))
			return
		}
		if order.Customer.Email == "" {
			order.Customer.Email = payload.Email
		}
		if _, err := h.orders.Create(ctx, order); err != nil {
			reply(err)
		}

	case services.MsgUpdateOrderStatus:
		var change services.StatusChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			reply(apperr.Validation("Invalid status data"))
			return
		}
		id := change.OrderID
		if id == "" {
			id = change.ID
		}
		if _, err := h.orders.UpdateStatus(ctx, id, change.Status); err != nil {
			reply(err)
		}

	case services.MsgSyncOrders:
		var orders []models.Order
		if err := json.Unmarshal(msg.Data, &orders); err != nil {
			reply(apperr.Validation("Invalid sync data"))
			return
		}
		result, err := h.orders.Merge(ctx, orders)
		if err != nil {
			reply(err)
			return
		}
		env, err := services.NewEnvelope(services.MsgSyncResult, result)
		if err != nil {
			reply(err)
			return
		}
		h.hub.SendTo(peer, env)

	case services.MsgPing:
		h.hub.SendTo(peer, services.Envelope{Type: services.MsgPong})

	default:
		reply(apperr.Validation("Unknown message type '" + msg.Type + "'"))
	}
}
