package dto

type CoordinatorStatsResponse struct {
	Name          string  `json:"name"`
	Running       bool    `json:"running"`
	SpawnInterval string  `json:"spawn_interval"`
	TimeWindow    string  `json:"time_window"`
	TotalSpawned  int64   `json:"total_spawned"`
	TotalFailed   int64   `json:"total_failed"`
	TotalExpired  int64   `json:"total_expired"`
	SuccessRate   float64 `json:"success_rate"`
}

type PartitionSizeResponse struct {
	Partition string `json:"partition"`
	Pending   int    `json:"pending"`
}

type ConductorSessionResponse struct {
	VehicleID      int      `json:"vehicle_id"`
	State          string   `json:"state"`
	PassengerCount int      `json:"passenger_count"`
	Capacity       int      `json:"capacity"`
	Position       *LatLon  `json:"position,omitempty"`
	PreservedGPS   *LatLon  `json:"preserved_gps,omitempty"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StatsResponse struct {
	Coordinators []CoordinatorStatsResponse `json:"coordinators"`
	Reservoir    []PartitionSizeResponse    `json:"reservoir"`
	Conductors   []ConductorSessionResponse `json:"conductors"`
}

type VehicleResponse struct {
	VehicleID         int    `json:"vehicle_id"`
	RouteID           int    `json:"route_id"`
	Capacity          int    `json:"capacity"`
	State             string `json:"state"`
	Direction         string `json:"direction"`
	PassengersOnboard int    `json:"passengers_onboard"`
	PickupCount       int    `json:"pickup_count"`
}

type ListVehiclesResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
}

type PositionRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StopRequestBody struct {
	Reason string `json:"reason"`
}

type IntervalRequest struct {
	Interval string `json:"interval"`
}
