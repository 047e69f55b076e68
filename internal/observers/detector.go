package observers

import (
	"sync"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// NewOrderDetector finds orders that appeared between two snapshots of a
// dashboard query. There is no dedicated "created" event; the id sets of
// consecutive snapshots are diffed instead.
type NewOrderDetector struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	primed bool
}

func NewNewOrderDetector() *NewOrderDetector {
	return &NewOrderDetector{seen: make(map[string]struct{})}
}

// Detect returns the PENDING orders of snapshot whose ids were absent from
// the previous snapshot. The first snapshot only primes the detector.
func (d *NewOrderDetector) Detect(snapshot []*models.Order) []*models.Order {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := make(map[string]struct{}, len(snapshot))
	var fresh []*models.Order
	for _, o := range snapshot {
		current[o.ID] = struct{}{}
		if !d.primed {
			continue
		}
		if _, ok := d.seen[o.ID]; ok {
			continue
		}
		if o.Status == models.OrderStatusPending {
			fresh = append(fresh, o)
		}
	}
	d.seen = current
	d.primed = true
	return fresh
}
