package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var cfg = models.PricingConfig{
	TaxRate:               0.08,
	ServiceFeePercentage:  0.05,
	DiscountPercentage:    0.1,
	MinOrderForDiscount:   300,
	MaxDiscountAmount:     50,
	BaseDeliveryFee:       20,
	FreeDeliveryThreshold: 250,
	SmallOrderThreshold:   80,
	SmallOrderFee:         10,
}

func TestCalculate_SmallOrder(t *testing.T) {
	q := Calculate(cfg, []models.LineItem{{Name: "Simit", Quantity: 2, UnitPrice: 15}})
	assert.Equal(t, 30.0, q.Subtotal)
	assert.Equal(t, 2.4, q.Tax)
	assert.Equal(t, 1.5, q.ServiceFee)
	assert.Equal(t, 30.0, q.DeliveryFee)
	assert.Equal(t, 0.0, q.Discount)
	assert.Equal(t, 63.9, q.Total)
}

func TestCalculate_FreeDelivery(t *testing.T) {
	q := Calculate(cfg, []models.LineItem{{Name: "Kebap", Quantity: 1, UnitPrice: 260}})
	assert.Equal(t, 0.0, q.DeliveryFee)
	assert.Equal(t, 0.0, q.Discount)
	assert.Equal(t, 293.8, q.Total)
}

func TestCalculate_DiscountIsCapped(t *testing.T) {
	q := Calculate(cfg, []models.LineItem{{Name: "Catering", Quantity: 1, UnitPrice: 1000}})
	assert.Equal(t, 50.0, q.Discount)
	assert.Equal(t, 1080.0, q.Total)

	q = Calculate(cfg, []models.LineItem{{Name: "Tepsi", Quantity: 1, UnitPrice: 400}})
	assert.Equal(t, 40.0, q.Discount)
}

func TestCalculate_Empty(t *testing.T) {
	q := Calculate(models.PricingConfig{}, nil)
	assert.Equal(t, Quote{}, q)
}
