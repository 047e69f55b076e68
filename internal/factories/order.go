package factories

import (
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

type OrderFactory struct {
	*Source
	Customers *CustomerFactory
}

// CreateOrder picks one to four dishes from menu for customer.
func (of *OrderFactory) CreateOrder(customer *models.Customer, restaurant *models.Restaurant, menu []models.MenuItem) tracking.NewOrder {
	count := of.rng.Intn(4) + 1
	items := make([]models.LineItem, 0, count)
	seen := make(map[string]int)
	for i := 0; i < count && len(menu) > 0; i++ {
		item := menu[of.rng.Intn(len(menu))]
		if idx, ok := seen[item.Name]; ok {
			items[idx].Quantity++
			continue
		}
		seen[item.Name] = len(items)
		items = append(items, item.LineItem(1))
	}
	return tracking.NewOrder{
		CustomerID:    customer.ID,
		RestaurantID:  restaurant.ID,
		Items:         items,
		Address:       of.Customers.CreateAddress(customer),
		Contact:       customer.Contact(),
		PaymentMethod: of.Customers.PaymentMethod(),
	}
}
