package models

import "time"

type TrafficCondition struct {
	Time     time.Time `json:"time"`
	Location Location  `json:"location"`
	Density  float64   `json:"density"` // Traffic density score, 0..1
}

// Factor turns the density into the multiplier used by delivery
// estimates: free-flowing traffic is 1.0, gridlock doubles the time.
func (t TrafficCondition) Factor() float64 {
	d := t.Density
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	return 1 + d
}
