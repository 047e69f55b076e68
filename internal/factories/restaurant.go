package factories

import (
	"fmt"
	"sync"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var allCuisines = []string{"Turkish", "Italian", "Indian", "American", "Japanese", "Mexican", "Chinese", "Thai", "Greek", "French", "Mediterranean", "Kebabs", "Burgers", "Street Food"}

type RestaurantFactory struct {
	*Source
	names sync.Map // to keep names unique
}

func (rf *RestaurantFactory) CreateRestaurant(cfg models.SimulationConfig) *models.Restaurant {
	minPrep, maxPrep := cfg.MinPrepTime, cfg.MaxPrepTime
	if maxPrep <= minPrep {
		maxPrep = minPrep + 1
	}
	avgPrepTime := float64(minPrep + rf.rng.Intn(maxPrep-minPrep+1))

	return &models.Restaurant{
		ID:          cuid.New(),
		Name:        rf.uniqueName(rf.fake.Company().Name()),
		Phone:       rf.fake.Phone().Number(),
		Location:    rf.locationNear(cfg),
		Cuisines:    rf.randomCuisines(),
		MinPrepTime: float64(minPrep),
		AvgPrepTime: avgPrepTime,
		MenuItems:   make([]string, 0),
	}
}

func (rf *RestaurantFactory) uniqueName(name string) string {
	candidate := name
	for counter := 2; ; counter++ {
		if _, exists := rf.names.LoadOrStore(candidate, true); !exists {
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", name, counter)
	}
}

func (rf *RestaurantFactory) randomCuisines() []string {
	count := rf.rng.Intn(3) + 1 // 1 to 3 cuisines
	cuisines := make([]string, count)
	for i := range cuisines {
		cuisines[i] = rf.pick(allCuisines)
	}
	return cuisines
}
