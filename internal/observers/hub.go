package observers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

// Reader is the part of the store the hub needs for initial snapshots and
// query re-runs.
type Reader interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, q repositories.Query) ([]*models.Order, error)
}

// Hub fans committed order changes out to subscribers. Every subscriber has
// its own goroutine, so a slow callback delays only itself. Changes that pile
// up behind a slow callback are coalesced: an order subscriber sees the
// newest version next, a query subscriber re-runs its query once.
type Hub struct {
	reader Reader
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

func NewHub(reader Reader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		reader: reader,
		logger: logger.With("component", "observers"),
		subs:   make(map[uint64]*subscriber),
	}
}

// Publish queues order for every interested subscriber. It never blocks on
// delivery and is safe to use as a repositories.ChangeHandler.
func (h *Hub) Publish(order *models.Order) {
	if order == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.orderID != "" && s.orderID != order.ID {
			continue
		}
		s.push(order.Clone())
	}
}

// SubscribeOrder calls fn with the current order and then after every
// committed change to it. The returned function unsubscribes; cancelling ctx
// does the same.
func (h *Hub) SubscribeOrder(ctx context.Context, orderID string, fn func(*models.Order)) func() {
	s := newSubscriber(orderID)
	var lastVersion int64 = -1
	deliver := func(order *models.Order) {
		// the initial load and a queued change may carry the same write
		if order.Version <= lastVersion {
			return
		}
		lastVersion = order.Version
		fn(order)
	}
	s.deliver = func(batch []*models.Order) {
		for _, order := range batch {
			deliver(order)
		}
	}
	s.initial = func() {
		current, err := h.reader.GetByID(ctx, orderID)
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("failed to load initial order snapshot", "order_id", orderID, "error", err)
			}
			return
		}
		if current != nil {
			deliver(current)
		}
	}
	return h.add(ctx, s)
}

// SubscribeQuery calls fn with the result of q now and again after every
// committed change that touches the result set, either because the changed
// order matches q or because it was part of the previous result.
func (h *Hub) SubscribeQuery(ctx context.Context, q repositories.Query, fn func([]*models.Order)) func() {
	s := newSubscriber("")
	previous := map[string]struct{}{}
	run := func() {
		orders, err := h.reader.List(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Error("failed to re-run order query", "error", err)
			}
			return
		}
		previous = make(map[string]struct{}, len(orders))
		for _, o := range orders {
			previous[o.ID] = struct{}{}
		}
		fn(orders)
	}
	s.initial = run
	s.deliver = func(batch []*models.Order) {
		for _, order := range batch {
			if _, wasIn := previous[order.ID]; wasIn || q.Matches(order) {
				run()
				return
			}
		}
	}
	return h.add(ctx, s)
}

func (h *Hub) add(ctx context.Context, s *subscriber) func() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = s
	h.mu.Unlock()

	go s.run()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			s.stop()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-s.done:
		}
	}()
	return unsubscribe
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close stops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.closed = true
	h.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}
