package models

import "time"

// VehicleActive is the estado value of a trackable vehicle.
const VehicleActive = "Y"

// Vehicle is the live snapshot of one physical vehicle. Every processed event
// for the vehicle mutates this record; it is never deleted by the processor.
type Vehicle struct {
	ID              string     `json:"idvehiculo" db:"idvehiculo"`
	Status          string     `json:"estado" db:"estado"`
	ModemType       *string    `json:"tipo_modem" db:"tipo_modem"`
	Speed           *float64   `json:"velocidad" db:"velocidad"`
	Address         *string    `json:"direccion" db:"direccion"`
	RawLatitude     *string    `json:"latitud" db:"latitud"`
	RawLongitude    *string    `json:"longitud" db:"longitud"`
	City            *string    `json:"municipio" db:"municipio"`
	Department      *string    `json:"departamento" db:"departamento"`
	LastPeriodID    *int64     `json:"ultperiodo" db:"ultperiodo"`
	IgnitionCode    *string    `json:"enc_apa" db:"enc_apa"`
	DriverID        *int64     `json:"idconductor" db:"idconductor"`
	CurrentDriverID *int64     `json:"idconductor_actual" db:"idconductor_actual"`
	LastUpdate      *time.Time `json:"ultimaactualizacion" db:"ultimaactualizacion"`
	LastEventCode   *int       `json:"ultimoevento" db:"ultimoevento"`
	Heading         *int       `json:"rumbo" db:"rumbo"`
	TimelineHeading *int       `json:"rumbo_linea_tiempo" db:"rumbo_linea_tiempo"`
	GeofenceIndex   *int       `json:"indexgeoc" db:"indexgeoc"`
	SignalStatus    *string    `json:"estadosenal" db:"estadosenal"`
	IgnitionOn      *bool      `json:"encendido" db:"encendido"`
	LastEventID     *int64     `json:"indexevento" db:"indexevento"`
	Contractor      *string    `json:"contratista" db:"contratista"`
	Resource        *string    `json:"recurso" db:"recurso"`
}
