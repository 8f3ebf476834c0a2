package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/metrics"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

const (
	standardTurnaround = 2 * 24 * time.Hour
	extendedTurnaround = 3 * 24 * time.Hour
)

// Service names that need the longer turnaround (matched as substrings, case ignored).
var extendedServices = []string{"dry cleaning", "stain removal"}

// SyncResult reports what a Merge did with the client's orders.
type SyncResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

type OrderServiceOptions struct {
	Notifier          Notifier
	StrictTransitions bool
	Now               func() time.Time
	Logger            *zap.Logger
}

// OrderService holds the order lifecycle rules. Writes go through OrderStore
// and are announced to the Notifier once persisted.
type OrderService struct {
	store    *OrderStore
	notifier Notifier
	policy   TransitionPolicy
	now      func() time.Time
	log      *zap.Logger
}

func NewOrderService(store *OrderStore, opts OrderServiceOptions) *OrderService {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &OrderService{
		store:    store,
		notifier: opts.Notifier,
		policy:   TransitionPolicy{Strict: opts.StrictTransitions},
		now:      opts.Now,
		log:      opts.Logger.With(zap.String("component", "order_service")),
	}
}

func (s *OrderService) Store() *OrderStore { return s.store }

// Create stores a new pending order. A caller-supplied id is kept (and
// replaces any order already stored under it); otherwise one is generated.
func (s *OrderService) Create(ctx context.Context, in models.Order) (models.Order, error) {
	now := s.now().UTC()

	order := in.Clone()
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" {
		order.ID = utils.NewOrderID(now)
	}
	order.CreatedAt = now
	order.Status = models.StatusPending
	order.StatusHistory = models.NewStatusHistory(models.StatusEntry{Status: models.StatusPending, At: now})

	if err := validateLines(order.Services); err != nil {
		return models.Order{}, err
	}
	if err := fillDelivery(&order); err != nil {
		return models.Order{}, err
	}
	if order.TotalAmount == 0 {
		order.TotalAmount = order.Subtotal()
	}

	stored, err := s.store.Put(ctx, order)
	if err != nil {
		return models.Order{}, err
	}

	s.log.Info("order created", zap.String("order_id", stored.ID))
	s.notify(ctx, OrderEvent{Type: EventCreated, Order: stored})
	return stored, nil
}

func (s *OrderService) Get(id string) (models.Order, error) {
	order, ok := s.store.Get(id)
	if !ok {
		return models.Order{}, apperr.NotFound("Order not found")
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	status = models.OrderStatus(strings.TrimSpace(string(status)))
	if status == "" {
		return models.Order{}, apperr.Validation("Status is required")
	}

	now := s.now().UTC()
	updated, err := s.store.Replace(ctx, id, func(stored models.Order) (models.Order, error) {
		if err := s.policy.Check(stored.Status, status); err != nil {
			return models.Order{}, err
		}
		stored.Status = status
		stored.StatusHistory.Set(status, now)
		return stored, nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.log.Info("order status updated", zap.String("order_id", updated.ID), zap.String("status", string(status)))
	s.notify(ctx, OrderEvent{Type: EventStatusUpdated, Order: updated})
	return updated, nil
}

// Update replaces the order that id resolves to. The stored id is kept, and
// the stored creation time and status fill in when the input omits them.
func (s *OrderService) Update(ctx context.Context, id string, in models.Order) (models.Order, error) {
	if err := validateLines(in.Services); err != nil {
		return models.Order{}, err
	}

	now := s.now().UTC()
	updated, err := s.store.Replace(ctx, id, func(stored models.Order) (models.Order, error) {
		next := in.Clone()
		next.ID = stored.ID
		if next.CreatedAt.IsZero() {
			next.CreatedAt = stored.CreatedAt
		}
		if next.Status == "" {
			next.Status = stored.Status
		}
		if err := s.policy.Check(stored.Status, next.Status); err != nil {
			return models.Order{}, err
		}
		if next.StatusHistory.Len() == 0 {
			next.StatusHistory = stored.StatusHistory.Clone()
		}
		pendingAt, ok := stored.StatusHistory.Get(models.StatusPending)
		if !ok {
			pendingAt = next.CreatedAt
		}
		history, err := checkHistory(next.StatusHistory, pendingAt)
		if err != nil {
			return models.Order{}, err
		}
		next.StatusHistory = history
		if !next.StatusHistory.Has(next.Status) {
			next.StatusHistory.Set(next.Status, now)
		}
		if err := fillDelivery(&next); err != nil {
			return models.Order{}, err
		}
		if next.TotalAmount == 0 {
			next.TotalAmount = next.Subtotal()
		}
		return next, nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.log.Info("order updated", zap.String("order_id", updated.ID))
	s.notify(ctx, OrderEvent{Type: EventUpdated, Order: updated})
	return updated, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) (models.Order, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	s.log.Info("order deleted", zap.String("order_id", removed.ID))
	s.notify(ctx, OrderEvent{Type: EventDeleted, Order: removed})
	return removed, nil
}

func (s *OrderService) List() []models.Order {
	return s.store.All()
}

// ListForUser returns the orders whose customer email equals email exactly.
func (s *OrderService) ListForUser(email string) []models.Order {
	out := []models.Order{}
	if email == "" {
		return out
	}
	for _, o := range s.store.All() {
		if o.Customer.Email == email {
			out = append(out, o)
		}
	}
	return out
}

// Merge reconciles orders a client created while offline. Orders whose id is
// already stored are skipped, malformed ones are counted as invalid, the
// rest are inserted as sent with missing bookkeeping filled in.
func (s *OrderService) Merge(ctx context.Context, incoming []models.Order) (SyncResult, error) {
	var result SyncResult
	now := s.now().UTC()

	candidates := make([]models.Order, 0, len(incoming))
	for _, in := range incoming {
		order, ok := repairSynced(in, now)
		if !ok {
			result.Invalid++
			continue
		}
		candidates = append(candidates, order)
	}

	var added []models.Order
	if len(candidates) > 0 {
		var err error
		added, err = s.store.InsertMissing(ctx, candidates)
		if err != nil {
			return SyncResult{}, err
		}
	}
	result.Added = len(added)
	result.Skipped = len(candidates) - len(added)

	s.log.Info("orders merged",
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
	)
	for _, o := range added {
		s.notify(ctx, OrderEvent{Type: EventCreated, Order: o})
	}
	return result, nil
}

func repairSynced(in models.Order, now time.Time) (models.Order, bool) {
	order := in.Clone()
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" || !order.Status.Valid() {
		return models.Order{}, false
	}
	if validateLines(order.Services) != nil {
		return models.Order{}, false
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	history, err := checkHistory(order.StatusHistory, order.CreatedAt)
	if err != nil {
		return models.Order{}, false
	}
	order.StatusHistory = history
	if fillDelivery(&order) != nil {
		return models.Order{}, false
	}
	if order.TotalAmount == 0 {
		order.TotalAmount = order.Subtotal()
	}
	return order, true
}

// checkHistory rejects unknown statuses and puts a pending entry at
// pendingAt first when the history lacks one.
func checkHistory(h models.StatusHistory, pendingAt time.Time) (models.StatusHistory, error) {
	for _, e := range h.Entries() {
		if !e.Status.Valid() {
			return models.StatusHistory{}, apperr.Validation("Invalid status '" + string(e.Status) + "' in status history")
		}
	}
	if h.Has(models.StatusPending) {
		return h, nil
	}
	entries := append([]models.StatusEntry{{Status: models.StatusPending, At: pendingAt}}, h.Entries()...)
	return models.NewStatusHistory(entries...), nil
}

func (s *OrderService) notify(ctx context.Context, event OrderEvent) {
	metrics.OrderEvents.WithLabelValues(string(event.Type)).Inc()
	s.notifier.Notify(ctx, event)
}

// ExpectedDelivery is created plus two days, or three when any line is a
// dry cleaning or stain removal service.
func ExpectedDelivery(created time.Time, services []models.ServiceItem) time.Time {
	for _, svc := range services {
		name := strings.ToLower(svc.Name)
		for _, ext := range extendedServices {
			if strings.Contains(name, ext) {
				return created.Add(extendedTurnaround)
			}
		}
	}
	return created.Add(standardTurnaround)
}

func fillDelivery(o *models.Order) error {
	if o.ExpectedDelivery.IsZero() {
		o.ExpectedDelivery = ExpectedDelivery(o.CreatedAt, o.Services)
		return nil
	}
	if o.ExpectedDelivery.Before(o.CreatedAt) {
		return apperr.Validation("Expected delivery cannot be before the order date")
	}
	return nil
}

func validateLines(services []models.ServiceItem) error {
	for _, svc := range services {
		if svc.Quantity < 0 {
			return apperr.Validation("Service quantity cannot be negative")
		}
		if svc.Price < 0 {
			return apperr.Validation("Service price cannot be negative")
		}
	}
	return nil
}
