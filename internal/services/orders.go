package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/metrics"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/storage"
)

// OrderStore owns the orders collection. Every lookup by id goes through
// resolveOrderIndex.
type OrderStore struct {
	orders *storage.Collection[models.Order]
	log    *zap.Logger
}

func NewOrderStore(backend storage.Backend, log *zap.Logger) *OrderStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderStore{
		orders: storage.NewCollection(backend, storage.Orders, models.Order.Clone),
		log:    log.With(zap.String("component", "orders")),
	}
}

// Load reads the persisted orders.
func (s *OrderStore) Load(ctx context.Context) error {
	return s.orders.Load(ctx)
}

func (s *OrderStore) All() []models.Order {
	return s.orders.Snapshot()
}

// Get resolves id and returns a copy of the order.
func (s *OrderStore) Get(id string) (models.Order, bool) {
	var (
		found models.Order
		ok    bool
	)
	s.orders.Read(func(orders []models.Order) {
		idx := s.resolve(orders, id)
		if idx >= 0 {
			found, ok = orders[idx].Clone(), true
		}
	})
	return found, ok
}

// ContainsExact reports whether an order with exactly this id is stored.
func (s *OrderStore) ContainsExact(id string) bool {
	_, ok := s.orders.Find(func(o models.Order) bool { return o.ID == id })
	return ok
}

// Put stores order under its own id, replacing a record with the same exact
// id in place or appending otherwise.
func (s *OrderStore) Put(ctx context.Context, order models.Order) (models.Order, error) {
	err := s.orders.Mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		for i := range orders {
			if orders[i].ID == order.ID {
				orders[i] = order
				return orders, nil
			}
		}
		return append(orders, order), nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order.Clone(), nil
}

// Replace resolves id and swaps the stored order for fn's result, all under
// the collection write lock. An error from fn leaves the store untouched.
func (s *OrderStore) Replace(ctx context.Context, id string, fn func(stored models.Order) (models.Order, error)) (models.Order, error) {
	var next models.Order
	err := s.orders.Mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		idx := s.resolve(orders, id)
		if idx < 0 {
			return nil, apperr.NotFound("Order not found")
		}
		updated, err := fn(orders[idx])
		if err != nil {
			return nil, err
		}
		orders[idx] = updated
		next = updated
		return orders, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return next.Clone(), nil
}

// Delete resolves id, removes the order and returns it.
func (s *OrderStore) Delete(ctx context.Context, id string) (models.Order, error) {
	var removed models.Order
	err := s.orders.Mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		idx := s.resolve(orders, id)
		if idx < 0 {
			return nil, apperr.NotFound("Order not found")
		}
		removed = orders[idx]
		return append(orders[:idx], orders[idx+1:]...), nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return removed, nil
}

// InsertMissing appends every order whose exact id is not stored yet, in one
// persist. It returns the orders that were added.
func (s *OrderStore) InsertMissing(ctx context.Context, candidates []models.Order) ([]models.Order, error) {
	var added []models.Order
	err := s.orders.Mutate(ctx, func(orders []models.Order) ([]models.Order, error) {
		added = added[:0]
		seen := make(map[string]struct{}, len(orders)+len(candidates))
		for _, o := range orders {
			seen[o.ID] = struct{}{}
		}
		for _, c := range candidates {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			orders = append(orders, c)
			added = append(added, c.Clone())
		}
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *OrderStore) resolve(orders []models.Order, id string) int {
	idx, tier := resolveOrderIndex(orders, id)
	if idx >= 0 && tier != tierExact {
		s.log.Warn("order id matched by fallback",
			zap.String("requested", id),
			zap.String("matched", orders[idx].ID),
			zap.String("tier", string(tier)),
		)
		metrics.LookupFallbacks.WithLabelValues(string(tier)).Inc()
	}
	return idx
}
