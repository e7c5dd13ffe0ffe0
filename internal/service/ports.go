package service

import (
	"context"
	"time"

	"github.com/movitrak/avl/internal/models"
)

// VehicleStore reads and writes vehicle snapshots and their contractor and
// resource reference data.
type VehicleStore interface {
	GetActive(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	UpdateSnapshot(ctx context.Context, v *models.Vehicle) error
	ToleranceMinutes(ctx context.Context, contractor string) (int, error)
	UpdateResourceGPS(ctx context.Context, resource, contractor string, at time.Time, ok bool) error
}

// EventStore persists events and their derived rollups.
type EventStore interface {
	SaveEvent(ctx context.Context, e *models.VehicleEvent) (int64, error)
	SaveOdometer(ctx context.Context, vehicleID string, value float64, at time.Time) error
	IsStaticEvent(ctx context.Context, eventCode int) (bool, error)
	BumpSummary(ctx context.Context, vehicleID string, eventCode int, date time.Time, hour int) error
	InsertRoadIndex(ctx context.Context, address, city, department string, lat, lon float64) error
}

// PeriodStore persists occupancy and driver-assignment periods.
type PeriodStore interface {
	GetActivePeriod(ctx context.Context, periodID int64) (*models.ActivePeriod, error)
	CreateActivePeriod(ctx context.Context, vehicleID string, start time.Time, driverID *int64) (int64, error)
	CloseActivePeriod(ctx context.Context, periodID int64, end time.Time) error
	LastDriverPeriod(ctx context.Context, vehicleID string, driverID int64) (*models.DriverPeriod, error)
	SetDriverPeriodEnd(ctx context.Context, periodID int64, end *time.Time) error
	ClearCurrentDriver(ctx context.Context, vehicleID string, driverID int64) error
}

// RouteStore reads special-route programs and appends control-log entries.
type RouteStore interface {
	ActiveProgram(ctx context.Context, vehicleID string, date time.Time) (*models.RouteProgram, error)
	HasActiveProgram(ctx context.Context, vehicleID string) (bool, error)
	Checkpoints(ctx context.Context, routeID int64) ([]models.RouteCheckpoint, error)
	VisitedCheckpoints(ctx context.Context, programID int64) (map[int64]bool, error)
	AppendControlLog(ctx context.Context, entry *models.RouteControlEntry) error
}

// Geocoder resolves coordinates into a best-effort address. It never fails;
// unusable lookups come back as the "No Disponible" sentinel.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) *models.Geolocation
}

// EventPublisher emits a fully-processed event downstream.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.VehicleEvent) error
}

// TxRunner runs fn atomically; repository calls made under fn share one
// transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
