package observers

import (
	"sort"
	"sync"

	"github.com/chrisdamba/foodatrack/internal/models"
)

type subscriber struct {
	orderID string

	initial func()
	// deliver gets every change that arrived since the previous call, at
	// most one version per order.
	deliver func([]*models.Order)

	mu      sync.Mutex
	pending map[string]*models.Order
	wake    chan struct{}

	// held while a callback runs so stop can wait for it
	deliverMu sync.Mutex
	stopped   bool
	stopOnce  sync.Once
	done      chan struct{}
}

func newSubscriber(orderID string) *subscriber {
	return &subscriber{
		orderID: orderID,
		pending: make(map[string]*models.Order),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// push keeps only the newest version of each order until the callback
// goroutine catches up.
func (s *subscriber) push(order *models.Order) {
	s.mu.Lock()
	if cur, ok := s.pending[order.ID]; !ok || order.Version > cur.Version {
		s.pending[order.ID] = order
	}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// take empties the pending set, oldest change first.
func (s *subscriber) take() []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	batch := make([]*models.Order, 0, len(s.pending))
	for id, o := range s.pending {
		batch = append(batch, o)
		delete(s.pending, id)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].UpdatedAt.Before(batch[j].UpdatedAt) })
	return batch
}

func (s *subscriber) backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *subscriber) run() {
	if s.initial != nil && !s.call(s.initial) {
		return
	}
	for {
		if batch := s.take(); batch != nil {
			if !s.call(func() { s.deliver(batch) }) {
				return
			}
			continue
		}
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
	}
}

// call runs fn unless the subscriber has been stopped.
func (s *subscriber) call(fn func()) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stopped {
		return false
	}
	fn()
	return true
}

// stop waits for an in-flight callback, so no callback starts after it
// returns. It must not be called from inside a callback; cancel the
// subscription context there instead.
func (s *subscriber) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.deliverMu.Lock()
		s.stopped = true
		s.deliverMu.Unlock()
	})
}
