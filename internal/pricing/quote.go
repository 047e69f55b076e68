package pricing

import (
	"math"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// Quote is the price breakdown of an order.
type Quote struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	ServiceFee  float64 `json:"service_fee"`
	DeliveryFee float64 `json:"delivery_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Calculate prices items under cfg. Every amount is rounded to cents.
func Calculate(cfg models.PricingConfig, items []models.LineItem) Quote {
	var subtotal float64
	for _, item := range items {
		subtotal += float64(item.Quantity) * item.UnitPrice
	}

	var discount float64
	if cfg.MinOrderForDiscount > 0 && subtotal >= cfg.MinOrderForDiscount {
		discount = subtotal * cfg.DiscountPercentage
		if cfg.MaxDiscountAmount > 0 && discount > cfg.MaxDiscountAmount {
			discount = cfg.MaxDiscountAmount
		}
	}

	q := Quote{
		Subtotal:    roundCents(subtotal),
		Tax:         roundCents(subtotal * cfg.TaxRate),
		ServiceFee:  roundCents(subtotal * cfg.ServiceFeePercentage),
		DeliveryFee: roundCents(DeliveryFee(cfg, subtotal)),
		Discount:    roundCents(discount),
	}
	q.Total = roundCents(q.Subtotal + q.Tax + q.DeliveryFee + q.ServiceFee - q.Discount)
	return q
}

// DeliveryFee is free above the threshold and carries a surcharge for
// small orders.
func DeliveryFee(cfg models.PricingConfig, subtotal float64) float64 {
	if cfg.FreeDeliveryThreshold > 0 && subtotal >= cfg.FreeDeliveryThreshold {
		return 0
	}
	fee := cfg.BaseDeliveryFee
	if subtotal < cfg.SmallOrderThreshold {
		fee += cfg.SmallOrderFee
	}
	return fee
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
