package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/movitrak/avl/internal/models"
)

// PeriodRepository owns the persistence of vehicle occupancy periods and
// driver-assignment periods.
type PeriodRepository struct {
	db *DB
}

// NewPeriodRepository creates the repository.
func NewPeriodRepository(db *DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// GetActivePeriod fetches one occupancy period by id. Returns nil when absent.
func (r *PeriodRepository) GetActivePeriod(ctx context.Context, periodID int64) (*models.ActivePeriod, error) {
	query := `SELECT idperiodo, idvehiculo, idconductor, fechadesde, fechahasta
		FROM periodosactivo WHERE idperiodo = $1`
	p := &models.ActivePeriod{}
	err := r.db.q(ctx).QueryRow(ctx, query, periodID).Scan(
		&p.ID, &p.VehicleID, &p.DriverID, &p.From, &p.To,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active period: %w", err)
	}
	return p, nil
}

// CreateActivePeriod opens a new occupancy period and returns its id.
func (r *PeriodRepository) CreateActivePeriod(ctx context.Context, vehicleID string, start time.Time, driverID *int64) (int64, error) {
	query := `INSERT INTO periodosactivo (idvehiculo, fechadesde, idconductor)
		VALUES ($1, $2, $3) RETURNING idperiodo`
	var id int64
	if err := r.db.q(ctx).QueryRow(ctx, query, vehicleID, start, driverID).Scan(&id); err != nil {
		return 0, fmt.Errorf("create active period: %w", err)
	}
	return id, nil
}

// CloseActivePeriod stamps the end of an open occupancy period.
func (r *PeriodRepository) CloseActivePeriod(ctx context.Context, periodID int64, end time.Time) error {
	query := `UPDATE periodosactivo SET fechahasta = $1 WHERE idperiodo = $2`
	if _, err := r.db.q(ctx).Exec(ctx, query, end, periodID); err != nil {
		return fmt.Errorf("close active period: %w", err)
	}
	return nil
}

// LastDriverPeriod fetches the most recent driver period for the vehicle and
// driver. Returns nil when none exists.
func (r *PeriodRepository) LastDriverPeriod(ctx context.Context, vehicleID string, driverID int64) (*models.DriverPeriod, error) {
	query := `SELECT idperiodo, idvehiculo, idconductor, fechadesde, fechahasta
		FROM periodosconductores
		WHERE idvehiculo = $1 AND idconductor = $2
		ORDER BY fechadesde DESC LIMIT 1`
	p := &models.DriverPeriod{}
	err := r.db.q(ctx).QueryRow(ctx, query, vehicleID, driverID).Scan(
		&p.ID, &p.VehicleID, &p.DriverID, &p.From, &p.To,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last driver period: %w", err)
	}
	return p, nil
}

// SetDriverPeriodEnd sets the end of a driver period. A nil end reopens it.
func (r *PeriodRepository) SetDriverPeriodEnd(ctx context.Context, periodID int64, end *time.Time) error {
	query := `UPDATE periodosconductores SET fechahasta = $1 WHERE idperiodo = $2`
	if _, err := r.db.q(ctx).Exec(ctx, query, end, periodID); err != nil {
		return fmt.Errorf("set driver period end: %w", err)
	}
	return nil
}

// ClearCurrentDriver removes the driver assignment from the vehicle snapshot,
// only if the given driver is still the assigned one.
func (r *PeriodRepository) ClearCurrentDriver(ctx context.Context, vehicleID string, driverID int64) error {
	query := `UPDATE vehiculos SET idconductor_actual = NULL
		WHERE idvehiculo = $1 AND idconductor_actual = $2`
	if _, err := r.db.q(ctx).Exec(ctx, query, vehicleID, driverID); err != nil {
		return fmt.Errorf("clear current driver: %w", err)
	}
	return nil
}
