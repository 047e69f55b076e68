package models

// Restaurant is the slice of restaurant data the tracker and the
// simulator need: where orders are picked up and how long they take.
type Restaurant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Location    Location `json:"location"`
	Cuisines    []string `json:"cuisines"`
	MinPrepTime float64  `json:"min_prep_time"`
	AvgPrepTime float64  `json:"avg_prep_time"` // Average preparation time in minutes
	MenuItems   []string `json:"menu_item_ids"`
}
