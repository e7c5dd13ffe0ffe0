package models

import "time"

// ActivePeriod is a vehicle occupancy interval bounded by ignition on/off.
// At most one open period (To == nil) exists per vehicle.
type ActivePeriod struct {
	ID        int64      `json:"idperiodo"`
	VehicleID string     `json:"idvehiculo"`
	DriverID  *int64     `json:"idconductor"`
	From      time.Time  `json:"fechadesde"`
	To        *time.Time `json:"fechahasta"`
}

// Open reports whether the period has not been closed yet.
func (p *ActivePeriod) Open() bool {
	return p != nil && p.To == nil
}

// DriverPeriod is a driver's assignment interval to a vehicle. A restart
// within one minute of a prior close reopens the period instead of creating a
// new one, collapsing brief ignition blips.
type DriverPeriod struct {
	ID        int64      `json:"idperiodo"`
	VehicleID string     `json:"idvehiculo"`
	DriverID  int64      `json:"idconductor"`
	From      time.Time  `json:"fechadesde"`
	To        *time.Time `json:"fechahasta"`
}
