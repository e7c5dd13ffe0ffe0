package models

import "time"

// RouteProgram is one scheduled special-transport run assigned to a vehicle.
type RouteProgram struct {
	ID        int64     `json:"idprogramacion"`
	VehicleID string    `json:"idvehiculo"`
	RouteID   int64     `json:"idruta"`
	Departure time.Time `json:"fechasalida"`
	Finished  string    `json:"finalizado"`
	Canceled  string    `json:"cancelada"`
	Active    string    `json:"activa"`
}

// RouteCheckpoint is one ordered control point of a special route, with its
// expected cumulative time offset in minutes from departure.
type RouteCheckpoint struct {
	RouteID           int64    `json:"idruta"`
	CheckpointID      int64    `json:"idpunto"`
	Order             int      `json:"orden"`
	CumulativeMinutes *float64 `json:"tiempoglobal"`
	Latitude          float64  `json:"latitud"`
	Longitude         float64  `json:"longitud"`
	RadiusMeters      float64  `json:"radio"`
}

// RouteControlEntry records the timing deviation observed when a vehicle
// reached a checkpoint of its scheduled route.
type RouteControlEntry struct {
	ProgramID       int64     `json:"idprogramacion"`
	CheckpointID    int64     `json:"idpunto"`
	Timestamp       time.Time `json:"fecha"`
	ElapsedMinutes  float64   `json:"tiempoint"`
	GlobalMinutes   float64   `json:"tiempoglobal"`
	Deviation       float64   `json:"diferenciaint"`
	GlobalDeviation float64   `json:"diferenciaglobal"`
	Order           int       `json:"orden"`
}
