package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/storage"
)

func sampleOrder(services ...models.ServiceItem) models.Order {
	if len(services) == 0 {
		services = []models.ServiceItem{{Name: "Wash & Fold", Quantity: 3, Price: 10}}
	}
	return models.Order{
		Customer: models.Customer{Name: "Ada", Phone: "555-0100", Address: "1 Main St", Email: "ada@example.com"},
		Pickup:   models.Pickup{Date: "2024-03-02", TimeSlot: "09:00-11:00"},
		Services: services,
	}
}

func TestCreate_Defaults(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	order, err := f.svc.Create(context.Background(), sampleOrder())
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^LD-\d{9}$`), order.ID)
	require.Equal(t, models.StatusPending, order.Status)
	require.Equal(t, testEpoch, order.CreatedAt)
	at, ok := order.StatusHistory.Get(models.StatusPending)
	require.True(t, ok)
	require.Equal(t, testEpoch, at)
	require.Equal(t, 1, order.StatusHistory.Len())
	require.InDelta(t, 30.0, order.TotalAmount, 1e-9)
	require.Equal(t, []EventType{EventCreated}, f.notifier.Types())
}

func TestCreate_IgnoresCallerStatus(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	in := sampleOrder()
	in.ID = "  LD-42  "
	in.Status = models.StatusCompleted
	in.TotalAmount = 99

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "LD-42", order.ID)
	require.Equal(t, models.StatusPending, order.Status)
	require.InDelta(t, 99.0, order.TotalAmount, 1e-9)
}

func TestCreate_ExpectedDelivery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		service string
		want    time.Duration
	}{
		{"wash and fold", "Wash & Fold", 48 * time.Hour},
		{"dry cleaning", "Premium Dry Cleaning", 72 * time.Hour},
		{"stain removal", "STAIN REMOVAL", 72 * time.Hour},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newOrderFixture(t, true)
			order, err := f.svc.Create(context.Background(), sampleOrder(models.ServiceItem{Name: tc.service, Quantity: 1, Price: 5}))
			require.NoError(t, err)
			require.Equal(t, testEpoch.Add(tc.want), order.ExpectedDelivery)
		})
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()

	in := sampleOrder()
	in.ExpectedDelivery = testEpoch.Add(-time.Hour)
	_, err := f.svc.Create(ctx, in)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, sampleOrder(models.ServiceItem{Name: "Ironing", Quantity: -1, Price: 2}))
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.Empty(t, f.svc.List())
	require.Empty(t, f.notifier.Types())
}

func TestCreate_CallerIDCollisionReplaces(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()

	first := sampleOrder()
	first.ID = "LD-1"
	_, err := f.svc.Create(ctx, first)
	require.NoError(t, err)

	second := sampleOrder()
	second.ID = "LD-1"
	second.Customer.Name = "Grace"
	_, err = f.svc.Create(ctx, second)
	require.NoError(t, err)

	all := f.svc.List()
	require.Len(t, all, 1)
	require.Equal(t, "Grace", all[0].Customer.Name)
}

func TestGet_FallbackResolution(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	in := sampleOrder()
	in.ID = "LD-12345"
	_, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	for _, id := range []string{"LD-12345", "ld-12345", "ORD12345", "ord12345", "12345"} {
		order, err := f.svc.Get(id)
		require.NoError(t, err, id)
		require.Equal(t, "LD-12345", order.ID, id)
	}

	_, err = f.svc.Get("99999")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Get("   ")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveOrderIndex_TierOrder(t *testing.T) {
	t.Parallel()

	orders := []models.Order{{ID: "ORD777"}, {ID: "ld-777"}, {ID: "LD-777"}}

	idx, tier := resolveOrderIndex(orders, "LD-777")
	require.Equal(t, 2, idx)
	require.Equal(t, tierExact, tier)

	idx, tier = resolveOrderIndex(orders, "Ld-777")
	require.Equal(t, 1, idx)
	require.Equal(t, tierCaseInsensitive, tier)

	idx, tier = resolveOrderIndex([]models.Order{{ID: "ORD777"}}, "LD-777")
	require.Equal(t, 0, idx)
	require.Equal(t, tierPrefixSwap, tier)

	idx, tier = resolveOrderIndex([]models.Order{{ID: "X-1"}, {ID: "ORD777"}}, "#777")
	require.Equal(t, 1, idx)
	require.Equal(t, tierDigits, tier)

	idx, _ = resolveOrderIndex(orders, "abc")
	require.Equal(t, -1, idx)
}

func TestUpdateStatus_RestampOverwritesInPlace(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, sampleOrder())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.UpdateStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)

	require.Equal(t, 2, updated.StatusHistory.Len())
	at, _ := updated.StatusHistory.Get(models.StatusProcessing)
	require.Equal(t, testEpoch.Add(2*time.Hour), at)

	raw, err := json.Marshal(updated.StatusHistory)
	require.NoError(t, err)
	require.Regexp(t, `^\{"pending":"[^"]+","processing":"[^"]+"\}$`, string(raw))

	require.Equal(t, []EventType{EventCreated, EventStatusUpdated, EventStatusUpdated}, f.notifier.Types())
}

func TestUpdateStatus_StrictPolicy(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, sampleOrder())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, order.ID, "washing")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusReady)
	require.NoError(t, err, "skipping forward is allowed")

	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusPending)
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Contains(t, err.Error(), "ready, completed")

	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusProcessing)
	require.ErrorIs(t, err, apperr.ErrValidation)

	stored, err := f.svc.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, stored.Status)
}

func TestUpdateStatus_LoosePolicy(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, false)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, sampleOrder())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusCompleted)
	require.NoError(t, err)
	back, err := f.svc.UpdateStatus(ctx, order.ID, models.StatusPending)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, back.Status)

	_, err = f.svc.UpdateStatus(ctx, order.ID, "lost")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	_, err := f.svc.UpdateStatus(context.Background(), "LD-404", models.StatusReady)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdate_PinsStoredID(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	in := sampleOrder()
	in.ID = "LD-555"
	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	patch := sampleOrder(models.ServiceItem{Name: "Dry Cleaning", Quantity: 2, Price: 12.5})
	patch.ID = "something-else"
	patch.Status = models.StatusProcessing

	updated, err := f.svc.Update(ctx, "ord555", patch)
	require.NoError(t, err)
	require.Equal(t, "LD-555", updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.True(t, updated.StatusHistory.Has(models.StatusPending))
	require.True(t, updated.StatusHistory.Has(models.StatusProcessing))
	require.Equal(t, created.CreatedAt.Add(72*time.Hour), updated.ExpectedDelivery)
	require.InDelta(t, 25.0, updated.TotalAmount, 1e-9)

	require.Len(t, f.svc.List(), 1)
	require.Equal(t, []EventType{EventCreated, EventUpdated}, f.notifier.Types())
}

func TestUpdate_KeepsPendingEntry(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	in := sampleOrder()
	in.ID = "LD-600"
	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	patch := sampleOrder()
	patch.Status = models.StatusProcessing
	patch.StatusHistory = models.NewStatusHistory(models.StatusEntry{Status: models.StatusProcessing, At: f.clock.Now()})

	updated, err := f.svc.Update(ctx, "LD-600", patch)
	require.NoError(t, err)
	entries := updated.StatusHistory.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, models.StatusPending, entries[0].Status)
	require.Equal(t, created.CreatedAt, entries[0].At)
	require.Equal(t, models.StatusProcessing, entries[1].Status)
}

func TestUpdate_RejectsUnknownHistoryStatus(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	in := sampleOrder()
	in.ID = "LD-601"
	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	patch := sampleOrder()
	patch.Status = models.StatusProcessing
	require.NoError(t, json.Unmarshal(
		[]byte(`{"processing": "2024-03-01T10:00:00Z", "shipped": "2024-03-01T10:00:00Z"}`),
		&patch.StatusHistory,
	))

	_, err = f.svc.Update(ctx, "LD-601", patch)
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Contains(t, apperr.PublicMessage(err), "shipped")

	stored, err := f.svc.Get("LD-601")
	require.NoError(t, err)
	require.Equal(t, created.StatusHistory.Entries(), stored.StatusHistory.Entries())
	require.Equal(t, []EventType{EventCreated}, f.notifier.Types())
}

func TestMerge_RejectsUnknownHistoryStatus(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	synced := sampleOrder()
	synced.ID = "LD-602"
	synced.Status = models.StatusReady
	synced.CreatedAt = testEpoch.Add(-2 * time.Hour)
	synced.StatusHistory = models.NewStatusHistory(
		models.StatusEntry{Status: models.StatusPending, At: synced.CreatedAt},
		models.StatusEntry{Status: "shipped", At: testEpoch.Add(-time.Hour)},
	)

	result, err := f.svc.Merge(context.Background(), []models.Order{synced})
	require.NoError(t, err)
	require.Equal(t, SyncResult{Invalid: 1}, result)
	require.Empty(t, f.svc.List())
}

func TestDelete(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	in := sampleOrder()
	in.ID = "LD-900"
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	removed, err := f.svc.Delete(ctx, "900")
	require.NoError(t, err)
	require.Equal(t, "LD-900", removed.ID)
	require.Empty(t, f.svc.List())

	_, err = f.svc.Delete(ctx, "LD-900")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, []EventType{EventCreated, EventDeleted}, f.notifier.Types())
}

func TestListForUser(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()

	mine := sampleOrder()
	_, err := f.svc.Create(ctx, mine)
	require.NoError(t, err)

	other := sampleOrder()
	other.Customer.Email = "Ada@example.com"
	_, err = f.svc.Create(ctx, other)
	require.NoError(t, err)

	require.Len(t, f.svc.ListForUser("ada@example.com"), 1)
	require.Empty(t, f.svc.ListForUser(""))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()

	existing := sampleOrder()
	existing.ID = "LD-1"
	_, err := f.svc.Create(ctx, existing)
	require.NoError(t, err)

	offline := sampleOrder()
	offline.ID = "LD-2"
	offline.Status = models.StatusProcessing
	offline.CreatedAt = testEpoch.Add(-time.Hour)
	offline.StatusHistory = models.NewStatusHistory(models.StatusEntry{Status: models.StatusProcessing, At: testEpoch.Add(-time.Minute)})

	dup := sampleOrder()
	dup.ID = "LD-1"
	dup.Status = models.StatusPending

	badStatus := sampleOrder()
	badStatus.ID = "LD-3"
	badStatus.Status = "lost"

	noID := sampleOrder()
	noID.Status = models.StatusPending

	result, err := f.svc.Merge(ctx, []models.Order{offline, dup, badStatus, noID, offline})
	require.NoError(t, err)
	require.Equal(t, SyncResult{Added: 1, Skipped: 2, Invalid: 2}, result)

	merged, err := f.svc.Get("LD-2")
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, merged.Status)
	entries := merged.StatusHistory.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, models.StatusPending, entries[0].Status)
	require.Equal(t, offline.CreatedAt, entries[0].At)
	require.Equal(t, offline.CreatedAt.Add(48*time.Hour), merged.ExpectedDelivery)

	require.Equal(t, []EventType{EventCreated, EventCreated}, f.notifier.Types())
}

func TestOrderService_StorageFailure(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, sampleOrder())
	require.NoError(t, err)

	f.backend.FailSave = errors.New("disk full")
	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusProcessing)
	require.ErrorIs(t, err, apperr.ErrStorage)

	stored, err := f.svc.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)
	require.Equal(t, []EventType{EventCreated}, f.notifier.Types())
}

func TestOrderStore_PersistsAcrossReload(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t, true)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, sampleOrder())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)

	reloaded := NewOrderStore(f.backend, nil)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get(order.ID)
	require.True(t, ok)
	require.Equal(t, models.StatusProcessing, got.Status)
	require.Equal(t, 2, got.StatusHistory.Len())

	data, err := f.backend.Load(ctx, storage.Orders)
	require.NoError(t, err)
	require.Contains(t, string(data), `"statusHistory"`)
}
