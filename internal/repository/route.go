package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/movitrak/avl/internal/models"
)

// SpecialRouteRepository reads special-transport programs and their
// checkpoints, and appends control-log entries.
type SpecialRouteRepository struct {
	db *DB
}

// NewSpecialRouteRepository creates the repository.
func NewSpecialRouteRepository(db *DB) *SpecialRouteRepository {
	return &SpecialRouteRepository{db: db}
}

// ActiveProgram finds the vehicle's active, non-finalized, non-canceled
// program departing on the given date. Returns nil when none exists.
func (r *SpecialRouteRepository) ActiveProgram(ctx context.Context, vehicleID string, date time.Time) (*models.RouteProgram, error) {
	query := `SELECT idprogramacion, idvehiculo, idruta, fechasalida, finalizado, cancelada, activa
		FROM progespeciales_vehiculos
		WHERE idvehiculo = $1 AND fechasalida::date = $2::date
			AND finalizado = 'N' AND cancelada = 'N' AND activa = 'S'
		ORDER BY fechasalida DESC LIMIT 1`
	p := &models.RouteProgram{}
	err := r.db.q(ctx).QueryRow(ctx, query, vehicleID, date).Scan(
		&p.ID, &p.VehicleID, &p.RouteID, &p.Departure, &p.Finished, &p.Canceled, &p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active program: %w", err)
	}
	return p, nil
}

// HasActiveProgram reports whether the vehicle has any active program.
func (r *SpecialRouteRepository) HasActiveProgram(ctx context.Context, vehicleID string) (bool, error) {
	query := `SELECT count(*) FROM progespeciales_vehiculos WHERE idvehiculo = $1 AND activa = 'S'`
	var count int
	if err := r.db.q(ctx).QueryRow(ctx, query, vehicleID).Scan(&count); err != nil {
		return false, fmt.Errorf("count active programs: %w", err)
	}
	return count > 0, nil
}

// Checkpoints returns the route's control points in checkpoint order.
func (r *SpecialRouteRepository) Checkpoints(ctx context.Context, routeID int64) ([]models.RouteCheckpoint, error) {
	query := `SELECT d.idruta, d.idpunto, d.orden, d.tiempoglobal, p.latitud, p.longitud, p.radio
		FROM rutas_especiales_detalles d
		JOIN puntoscontrol p ON p.idpunto = d.idpunto
		WHERE d.idruta = $1
		ORDER BY d.orden`
	rows, err := r.db.q(ctx).Query(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("list route checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.RouteCheckpoint
	for rows.Next() {
		var cp models.RouteCheckpoint
		err := rows.Scan(&cp.RouteID, &cp.CheckpointID, &cp.Order, &cp.CumulativeMinutes,
			&cp.Latitude, &cp.Longitude, &cp.RadiusMeters)
		if err != nil {
			return nil, fmt.Errorf("scan route checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// VisitedCheckpoints returns the ids of checkpoints already logged for the
// program.
func (r *SpecialRouteRepository) VisitedCheckpoints(ctx context.Context, programID int64) (map[int64]bool, error) {
	query := `SELECT idpunto FROM rutas_especiales_control WHERE idprogramacion = $1`
	rows, err := r.db.q(ctx).Query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("list visited checkpoints: %w", err)
	}
	defer rows.Close()

	visited := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan visited checkpoint: %w", err)
		}
		visited[id] = true
	}
	return visited, rows.Err()
}

// AppendControlLog records one checkpoint arrival with its timing deviation.
func (r *SpecialRouteRepository) AppendControlLog(ctx context.Context, entry *models.RouteControlEntry) error {
	query := `
		INSERT INTO rutas_especiales_control
			(idprogramacion, idpunto, fecha, tiempoint, tiempoglobal, diferenciaint, diferenciaglobal, orden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.q(ctx).Exec(ctx, query,
		entry.ProgramID,
		entry.CheckpointID,
		entry.Timestamp,
		entry.ElapsedMinutes,
		entry.GlobalMinutes,
		entry.Deviation,
		entry.GlobalDeviation,
		entry.Order,
	)
	if err != nil {
		return fmt.Errorf("insert route control entry: %w", err)
	}
	return nil
}
