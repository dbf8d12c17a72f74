package domain

// Route metadata consumed by the engine. The polyline is a precomputed
// ordered sequence of points with a known total length; the engine never
// restitches geometry.
type Route struct {
	RouteID           int
	Name              string
	Polyline          []Coordinates
	TotalLengthMeters float64
}

// Depot metadata: a physical yard where vehicles start and outbound
// commuters gather.
type Depot struct {
	DepotID  int
	Name     string
	Centroid Coordinates
	Capacity int
}
