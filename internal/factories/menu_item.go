package factories

import (
	"math"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var dishesByCuisine = map[string][]string{
	"Turkish":       {"Lahmacun", "Adana Kebap", "Mercimek Çorbası", "Pide", "Künefe"},
	"Italian":       {"Margherita Pizza", "Spaghetti Carbonara", "Lasagna", "Tiramisu"},
	"Indian":        {"Chicken Tikka Masala", "Vegetable Curry", "Naan Bread", "Biryani"},
	"American":      {"Cheeseburger", "Hot Dog", "BBQ Ribs", "Apple Pie"},
	"Japanese":      {"Sushi Roll", "Ramen", "Tempura", "Miso Soup"},
	"Mexican":       {"Tacos", "Burrito", "Guacamole", "Quesadilla"},
	"Chinese":       {"Kung Pao Chicken", "Fried Rice", "Dumplings", "Mapo Tofu"},
	"Thai":          {"Pad Thai", "Green Curry", "Tom Yum Soup", "Mango Sticky Rice"},
	"Greek":         {"Gyros", "Greek Salad", "Moussaka", "Baklava"},
	"French":        {"Coq au Vin", "Ratatouille", "Croque Monsieur", "Crème Brûlée"},
	"Mediterranean": {"Falafel", "Hummus", "Tabbouleh", "Grilled Halloumi"},
	"Kebabs":        {"Döner Dürüm", "İskender", "Şiş Tavuk"},
	"Burgers":       {"Classic Cheeseburger", "Veggie Burger", "BBQ Bacon Burger"},
	"Street Food":   {"Kumpir", "Midye Dolma", "Simit", "Tantuni"},
}

var categories = []string{"appetizer", "main course", "side dish", "dessert", "drink"}

type MenuItemFactory struct {
	*Source
}

func (mf *MenuItemFactory) CreateMenuItem(restaurant *models.Restaurant) models.MenuItem {
	return models.MenuItem{
		ID:           mf.fake.UUID().V4(),
		RestaurantID: restaurant.ID,
		Name:         mf.dishFor(restaurant.Cuisines),
		Price:        math.Round(mf.fake.Float64(2, 40, 350)*100) / 100,
		PrepTime:     float64(mf.fake.IntBetween(5, 30)),
		Category:     mf.pick(categories),
	}
}

func (mf *MenuItemFactory) dishFor(cuisines []string) string {
	if len(cuisines) == 0 {
		return "Special of the Day"
	}
	if dishes, ok := dishesByCuisine[mf.pick(cuisines)]; ok {
		return mf.pick(dishes)
	}
	return "Special of the Day"
}
