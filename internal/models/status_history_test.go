package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusHistory_SetOverwritesInPlace(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var h StatusHistory
	h.Set(StatusPending, t0)
	h.Set(StatusProcessing, t0.Add(time.Hour))
	h.Set(StatusProcessing, t0.Add(2*time.Hour))

	require.Equal(t, 2, h.Len())
	at, ok := h.Get(StatusProcessing)
	require.True(t, ok)
	require.Equal(t, t0.Add(2*time.Hour), at)
	require.Equal(t, StatusPending, h.Entries()[0].Status)
}

func TestStatusHistory_JSONKeepsTransitionOrder(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewStatusHistory(
		StatusEntry{StatusPending, t0},
		StatusEntry{StatusProcessing, t0.Add(time.Hour)},
		StatusEntry{StatusReady, t0.Add(2 * time.Hour)},
	)

	data, err := json.Marshal(h)
	require.NoError(t, err)
	require.Equal(t,
		`{"pending":"2024-03-01T09:00:00Z","processing":"2024-03-01T10:00:00Z","ready":"2024-03-01T11:00:00Z"}`,
		string(data))

	var back StatusHistory
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, h.Entries(), back.Entries())
}

func TestStatusHistory_UnmarshalAcceptsJavaScriptISOStrings(t *testing.T) {
	t.Parallel()

	var h StatusHistory
	require.NoError(t, json.Unmarshal([]byte(`{"pending":"2024-03-01T09:00:00.000Z"}`), &h))
	at, ok := h.Get(StatusPending)
	require.True(t, ok)
	require.Equal(t, 2024, at.Year())

	require.Error(t, json.Unmarshal([]byte(`["pending"]`), &h))
}

func TestOrder_CloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	o := Order{
		ID:       "LD-1",
		Services: []ServiceItem{{Name: "Ironing", Quantity: 1, Price: 2}},
	}
	o.StatusHistory.Set(StatusPending, time.Now())

	c := o.Clone()
	c.Services[0].Quantity = 9
	c.StatusHistory.Set(StatusReady, time.Now())

	require.Equal(t, 1, o.Services[0].Quantity)
	require.False(t, o.StatusHistory.Has(StatusReady))
}

func TestOrderStatus_Rank(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, StatusPending.Rank())
	require.Equal(t, 3, StatusCompleted.Rank())
	require.Equal(t, -1, OrderStatus("shipped").Rank())
	require.False(t, OrderStatus("").Valid())
}
