package models

// Driver is a delivery courier. A tracking record references the driver
// while it is assigned; only CurrentLocation changes after assignment.
type Driver struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Phone           string      `json:"phone,omitempty"`
	VehicleType     VehicleType `json:"vehicle_type"`
	CurrentLocation *GeoFix     `json:"current_location,omitempty"`
}
