package models

import "time"

// Event type discriminators as sent by the tracking modems.
const (
	EventTypeNormal   = 0
	EventTypeExtended = 300
	EventTypeOTA      = 128
)

// Well-known event codes.
const (
	EventCodeKeepAlive   = 1
	EventCodeIgnitionOn  = 5
	EventCodeIgnitionOff = 6
)

// Ignition codes stored on the vehicle snapshot (legacy enc_apa column).
const (
	IgnitionCodeOn  = "5"
	IgnitionCodeOff = "6"
)

// VehicleEvent is one inbound telemetry frame plus the fields derived while
// processing it. It lives for the duration of a single request; its persisted
// projection is an eventos row.
type VehicleEvent struct {
	EventType     int        `json:"tipo"`
	VehicleID     string     `json:"idveh"`
	EventCode     int        `json:"idevento"`
	SystemDate    string     `json:"fechasys"`
	RawSpeed      float64    `json:"speed"`
	RawLatitude   string     `json:"lat"`
	RawLongitude  string     `json:"lon"`
	Odometer      *float64   `json:"odometer,omitempty"`
	ModemIP       string     `json:"ip"`
	ModemPort     int        `json:"port"`
	GeofenceIndex *int       `json:"indexgeocerca,omitempty"`
	VehicleOn     *bool      `json:"vehicleon,omitempty"`
	SignalStatus  *string    `json:"signal,omitempty"`
	RealtimeDate  *time.Time `json:"realtime,omitempty"`
	Address       *string    `json:"address,omitempty"`
	City          *string    `json:"city,omitempty"`
	Department    *string    `json:"department,omitempty"`
	KeepAliveDate time.Time  `json:"fechakeep"`

	// Derived during processing.
	Latitude      *float64     `json:"latitud,omitempty"`
	Longitude     *float64     `json:"longitud,omitempty"`
	Geolocation   *Geolocation `json:"geolocation,omitempty"`
	Speed         float64      `json:"velocidad"`
	EffectiveDate time.Time    `json:"fecha"`
	IsStatic      bool         `json:"estatico"`
	IgnitionCode  *string      `json:"enc_apa,omitempty"`
	DriverID      *int64       `json:"idconductor,omitempty"`
	PeriodID      *int64       `json:"idperiodo,omitempty"`
	EventID       *int64       `json:"idevento_db,omitempty"`
}

// On reports whether the modem flagged the ignition as on.
func (e *VehicleEvent) On() bool {
	return e.VehicleOn != nil && *e.VehicleOn
}

// HasPosition reports whether the event ended up with a usable fix. A parsed
// latitude of exactly 0.0 is treated as no fix, matching the modems' behavior
// of reporting zeros when the GPS has no lock.
func (e *VehicleEvent) HasPosition() bool {
	return e.Latitude != nil && *e.Latitude != 0 && e.Longitude != nil && *e.Longitude != 0
}
