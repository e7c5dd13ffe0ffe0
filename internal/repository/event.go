package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/movitrak/avl/internal/models"
)

// EventRepository persists event rows, odometer readings, hourly summaries
// and the road-index cache.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates the repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// SaveEvent inserts the persisted projection of a processed event and returns
// the generated id.
func (r *EventRepository) SaveEvent(ctx context.Context, e *models.VehicleEvent) (int64, error) {
	var address, city, department *string
	if e.Geolocation != nil {
		address = &e.Geolocation.Address
		city = &e.Geolocation.City
		department = &e.Geolocation.Department
	}

	query := `
		INSERT INTO eventos (idvehiculo, evento, fecha, velocidad, direccion, latitud, longitud,
			xpos, ypos, municipio, departamento, indicegeocerca, idconductor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9, $10, $11)
		RETURNING idevento
	`
	var id int64
	err := r.db.q(ctx).QueryRow(ctx, query,
		e.VehicleID,
		e.EventCode,
		e.EffectiveDate,
		e.Speed,
		address,
		e.RawLatitude,
		e.RawLongitude,
		city,
		department,
		e.GeofenceIndex,
		e.DriverID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// SaveOdometer persists one odometer reading.
func (r *EventRepository) SaveOdometer(ctx context.Context, vehicleID string, value float64, at time.Time) error {
	query := `INSERT INTO odometros (idvehiculo, valor, fecha) VALUES ($1, $2, $3)`
	if _, err := r.db.q(ctx).Exec(ctx, query, vehicleID, value, at); err != nil {
		return fmt.Errorf("insert odometer: %w", err)
	}
	return nil
}

// IsStaticEvent reports whether the event code is flagged static. Unknown
// codes are not static.
func (r *EventRepository) IsStaticEvent(ctx context.Context, eventCode int) (bool, error) {
	query := `SELECT estatico FROM eventos_desc WHERE evento = $1`
	var flag string
	err := r.db.q(ctx).QueryRow(ctx, query, eventCode).Scan(&flag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get event description: %w", err)
	}
	return flag == "S", nil
}

// BumpSummary increments the hourly occurrence counter for the event code,
// creating the row with value 1 on first occurrence.
func (r *EventRepository) BumpSummary(ctx context.Context, vehicleID string, eventCode int, date time.Time, hour int) error {
	query := `
		INSERT INTO eventos_resumen (idvehiculo, idevento, valor, fecha, hora)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (idvehiculo, idevento, fecha, hora)
		DO UPDATE SET valor = eventos_resumen.valor + 1
	`
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if _, err := r.db.q(ctx).Exec(ctx, query, vehicleID, eventCode, day, hour); err != nil {
		return fmt.Errorf("upsert event summary: %w", err)
	}
	return nil
}

// InsertRoadIndex records a modem-supplied address against its coordinates
// for future reverse lookups.
func (r *EventRepository) InsertRoadIndex(ctx context.Context, address, city, department string, lat, lon float64) error {
	query := `
		INSERT INTO ejes_viales (direccion, municipio, departamento, latitud, longitud, dirnoform, xpos, ypos)
		VALUES ($1, $2, $3, $4, $5, $1, 0, 0)
	`
	if _, err := r.db.q(ctx).Exec(ctx, query, address, city, department, lat, lon); err != nil {
		return fmt.Errorf("insert road index: %w", err)
	}
	return nil
}
