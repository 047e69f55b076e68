package factories

import (
	"github.com/lucsky/cuid"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var vehicles = []models.VehicleType{models.VehicleMotorcycle, models.VehicleScooter, models.VehicleBicycle, models.VehicleCar}

type DriverFactory struct {
	*Source
}

// CreateDriver returns a courier and its starting position.
func (df *DriverFactory) CreateDriver(cfg models.SimulationConfig) (models.Driver, models.Location) {
	return models.Driver{
		ID:          cuid.New(),
		Name:        df.fake.Person().FirstName(),
		Phone:       df.fake.Phone().Number(),
		VehicleType: vehicles[df.rng.Intn(len(vehicles))],
	}, df.locationNear(cfg)
}
