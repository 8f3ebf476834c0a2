package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/laundry-backend/internal/models"
)

func decodeFrame(t *testing.T, raw []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestEnvelopesFor(t *testing.T) {
	t.Parallel()

	order := models.Order{ID: "LD-1", Status: models.StatusReady}

	envs, err := EnvelopesFor(OrderEvent{Type: EventStatusUpdated, Order: order})
	require.NoError(t, err)
	require.Len(t, envs, 2)
	require.Equal(t, MsgStatusUpdated, envs[0].Type)
	require.JSONEq(t, `{"id":"LD-1","status":"ready"}`, string(envs[0].Data))
	require.Equal(t, MsgOrderUpdated, envs[1].Type)

	envs, err = EnvelopesFor(OrderEvent{Type: EventDeleted, Order: order})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Equal(t, MsgOrderDeleted, envs[0].Type)
	require.JSONEq(t, `{"id":"LD-1"}`, string(envs[0].Data))

	envs, err = EnvelopesFor(OrderEvent{Type: EventCreated, Order: order})
	require.NoError(t, err)
	require.Equal(t, MsgOrderCreated, envs[0].Type)
}

func TestHub_BroadcastReachesEveryPeer(t *testing.T) {
	t.Parallel()

	hub := NewHub(4, nil)
	a := hub.Register("u1")
	b := hub.Register("u2")
	require.Equal(t, 2, hub.PeerCount())

	hub.Notify(context.Background(), OrderEvent{Type: EventCreated, Order: models.Order{ID: "LD-1"}})

	for _, p := range []*Peer{a, b} {
		select {
		case raw := <-p.Outbound():
			require.Equal(t, MsgOrderCreated, decodeFrame(t, raw).Type)
		case <-time.After(time.Second):
			t.Fatal("no frame delivered")
		}
	}
}

func TestHub_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	hub := NewHub(1, nil)
	p := hub.Register("u1")

	hub.Broadcast(Envelope{Type: MsgPong})
	hub.Broadcast(Envelope{Type: MsgOrderCreated})
	require.False(t, hub.SendTo(p, Envelope{Type: MsgPong}))

	require.Equal(t, MsgPong, decodeFrame(t, <-p.Outbound()).Type)
	select {
	case raw := <-p.Outbound():
		t.Fatalf("unexpected frame %s", raw)
	default:
	}
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	t.Parallel()

	hub := NewHub(1, nil)
	p := hub.Register("u1")
	hub.Unregister(p)
	hub.Unregister(p)

	_, open := <-p.Outbound()
	require.False(t, open)
	require.Zero(t, hub.PeerCount())
	require.False(t, hub.SendTo(p, Envelope{Type: MsgPong}))

	// broadcasting after a peer left must not panic on its closed queue
	hub.Broadcast(Envelope{Type: MsgPong})
}

func TestRedisRelay_FallsBackToLocalFanOut(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	hub := NewHub(4, nil)
	p := hub.Register("u1")
	relay := NewRedisRelay(client, hub, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	relay.Notify(ctx, OrderEvent{Type: EventDeleted, Order: models.Order{ID: "LD-7"}})

	select {
	case raw := <-p.Outbound():
		require.Equal(t, MsgOrderDeleted, decodeFrame(t, raw).Type)
	case <-time.After(time.Second):
		t.Fatal("frame was not delivered locally")
	}
}

func TestTransitionPolicy_ValidNext(t *testing.T) {
	t.Parallel()

	require.Equal(t, []models.OrderStatus{models.StatusProcessing, models.StatusReady, models.StatusCompleted},
		ValidTransitionsFrom(models.StatusProcessing))
	require.Equal(t, []models.OrderStatus{models.StatusCompleted}, ValidTransitionsFrom(models.StatusCompleted))

	strict := TransitionPolicy{Strict: true}
	require.NoError(t, strict.Check(models.StatusPending, models.StatusPending))
	require.NoError(t, strict.Check("", models.StatusReady), "records without a status accept any known one")
	require.Error(t, strict.Check(models.StatusReady, models.StatusProcessing))
}
