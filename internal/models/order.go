package models

import "time"

// LineItem is one ordered dish.
type LineItem struct {
	Name      string  `json:"name" parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Quantity  int     `json:"quantity" parquet:"name=quantity,type=INT32"`
	UnitPrice float64 `json:"unit_price" parquet:"name=unit_price,type=DOUBLE"`
}

// Order is one customer purchase. The embedded Tracking is persisted with
// the order as a single document.
type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id"`
	RestaurantID  string      `json:"restaurant_id"`
	Items         []LineItem  `json:"items"`
	Address       Address     `json:"delivery_address"`
	Contact       Contact     `json:"contact"`
	PaymentMethod string      `json:"payment_method"` // e.g., "card", "cash", "wallet"
	TotalAmount   float64     `json:"total_amount"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Version       int64       `json:"version"`
	Tracking      *Tracking   `json:"tracking,omitempty"`
}

// Subtotal sums quantity times unit price over the line items.
func (o *Order) Subtotal() float64 {
	var subtotal float64
	for _, item := range o.Items {
		subtotal += float64(item.Quantity) * item.UnitPrice
	}
	return subtotal
}

// Clone returns a deep copy so observers never share state with writers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	if o.Address.Location != nil {
		loc := *o.Address.Location
		c.Address.Location = &loc
	}
	c.Tracking = o.Tracking.Clone()
	return &c
}
