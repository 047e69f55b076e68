package models

import "time"

type Location struct {
	Lat float64 `json:"lat" parquet:"name=lat,type=DOUBLE"`
	Lon float64 `json:"lon" parquet:"name=lon,type=DOUBLE"`
}

// LocationPoint is one breadcrumb on the courier trail.
type LocationPoint struct {
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Timestamp   time.Time   `json:"timestamp"`
	Status      OrderStatus `json:"status"`
	Description string      `json:"description,omitempty"`
}

// GeoFix is a courier position at a point in time.
type GeoFix struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
